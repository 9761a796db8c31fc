package domain

const (
	RoleStudent = "STUDENT"
	RoleAdmin   = "ADMIN"
)

// Referral code kinds.
const (
	CodeKindAdmin   = "admin"
	CodeKindStudent = "student"
)

// CreatorAdmin is the created_by value on staff-issued coupons.
const CreatorAdmin = "admin"

// Discount entry types.
const (
	DiscountSignup   = "signup"
	DiscountCoupon   = "coupon"
	DiscountReferral = "referral"

	// legacyDiscountInitial is how older records labelled the signup entry.
	legacyDiscountInitial = "initial"
)

const (
	MethodCash = "cash"
	MethodUPI  = "upi"
	MethodBank = "bank"
)

// ValidMethod reports whether m is an accepted payment method.
func ValidMethod(m string) bool {
	switch m {
	case MethodCash, MethodUPI, MethodBank:
		return true
	}
	return false
}

// Month status as shown to students.
const (
	MonthPaid    = "paid"
	MonthPending = "pending"
	MonthUnpaid  = "unpaid"
)

// Setting keys for runtime pricing overrides.
const (
	SettingBaseFee        = "billing.base_fee"
	SettingReferralUnit   = "billing.referral_unit"
	SettingSignupDiscount = "billing.signup_discount"
)
