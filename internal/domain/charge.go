package domain

import "github.com/samber/lo"

// DiscountDetail is one itemized discount applied to a payment.
type DiscountDetail struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
	Code   string `json:"code,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// NormalizedType maps legacy entry labels onto the current ones.
func (d DiscountDetail) NormalizedType() string {
	if d.Type == legacyDiscountInitial {
		return DiscountSignup
	}
	return d.Type
}

// CouponDiscount is an admin coupon that has been validated for use.
type CouponDiscount struct {
	Code   string
	Amount int64
}

// ReferralBatch is the set of unused referrals redeemed together.
type ReferralBatch struct {
	Count int
	Unit  int64
}

func (b ReferralBatch) Amount() int64 { return int64(b.Count) * b.Unit }

// ChargeInput collects everything the charge depends on. Zero values mean
// the discount does not apply.
type ChargeInput struct {
	BaseFee  int64
	Signup   int64
	Coupon   *CouponDiscount
	Referral ReferralBatch
}

type Charge struct {
	Amount    int64
	Discounts int64
	Details   []DiscountDetail
}

// ComputeCharge applies signup, coupon and referral discounts in that order.
// Each entry keeps its full amount; only the payable amount is clamped at zero.
func ComputeCharge(in ChargeInput) Charge {
	details := make([]DiscountDetail, 0, 3)
	if in.Signup > 0 {
		details = append(details, DiscountDetail{Type: DiscountSignup, Amount: in.Signup})
	}
	if in.Coupon != nil {
		details = append(details, DiscountDetail{Type: DiscountCoupon, Code: in.Coupon.Code, Amount: in.Coupon.Amount})
	}
	if in.Referral.Count > 0 {
		details = append(details, DiscountDetail{Type: DiscountReferral, Count: in.Referral.Count, Amount: in.Referral.Amount()})
	}
	total := SumDiscounts(details)
	return Charge{
		Amount:    max(0, in.BaseFee-total),
		Discounts: total,
		Details:   details,
	}
}

func SumDiscounts(details []DiscountDetail) int64 {
	return lo.SumBy(details, func(d DiscountDetail) int64 { return d.Amount })
}

// HasReferral reports whether any entry is a referral batch.
func HasReferral(details []DiscountDetail) bool {
	return lo.ContainsBy(details, func(d DiscountDetail) bool { return d.NormalizedType() == DiscountReferral })
}
