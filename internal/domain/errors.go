package domain

import "errors"

// Kind classifies a failure for callers that need to pick a response.
type Kind int

const (
	KindServerFault Kind = iota
	KindUnauthorized
	KindNotFound
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "server_fault"
	}
}

// Error is a classified business error. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or KindServerFault.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindServerFault
}

var (
	ErrUnauthorized       = NewError(KindUnauthorized, "unauthorized")
	ErrInvalidCredentials = NewError(KindUnauthorized, "invalid credentials or account not approved")

	ErrStudentNotFound = NewError(KindNotFound, "student not found")
	ErrPaymentNotFound = NewError(KindNotFound, "payment not found")
	ErrCouponNotFound  = NewError(KindNotFound, "invalid coupon code")

	ErrEmailExists      = NewError(KindConflict, "email already registered")
	ErrDuplicateRequest = NewError(KindConflict, "payment already requested for this month")
	ErrCouponExists     = NewError(KindConflict, "code already exists")
	ErrCouponInUse      = NewError(KindConflict, "cannot delete a coupon that has been used")
	ErrAlreadyApproved  = NewError(KindConflict, "payment already approved")
	ErrReferralsChanged = NewError(KindConflict, "referrals changed while processing, please retry")

	ErrInvalidMonth      = NewError(KindValidation, "invalid month")
	ErrInvalidMethod     = NewError(KindValidation, "invalid payment method")
	ErrReceiptRequired   = NewError(KindValidation, "receipt is required for non-cash payments")
	ErrInvalidReceipt    = NewError(KindValidation, "only jpg, jpeg, png and pdf receipts are allowed")
	ErrCouponWrongType   = NewError(KindValidation, "not a valid discount coupon")
	ErrCouponUsed        = NewError(KindValidation, "coupon already used")
	ErrInvalidReferral   = NewError(KindValidation, "invalid referral code")
	ErrInvalidDiscount   = NewError(KindValidation, "discount must be positive")
	ErrInvalidCouponCode = NewError(KindValidation, "coupon code is required")
)
