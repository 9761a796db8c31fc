package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"feedesk/internal/auth"
	"feedesk/internal/domain"
	"feedesk/internal/events"
	"feedesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRequestPayment_FirstMonthSignupDiscount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	referrer, _ := h.signup(t, "ravi@school.test", "")
	st, id := h.signup(t, "meena@school.test", referrer.ReferralCode)
	require.Equal(t, int64(100), st.SignupDiscount)

	p, err := h.payments.RequestPayment(ctx, id, cash("2025-04"))
	require.NoError(t, err)
	assert.Equal(t, int64(500), p.Amount)
	assert.Equal(t, int64(100), p.Discounts)
	require.Len(t, p.Details(), 1)
	assert.Equal(t, domain.DiscountSignup, p.Details()[0].Type)
	assert.Equal(t, int64(100), p.Details()[0].Amount)
	assert.False(t, p.Approved)
	assert.Nil(t, p.Receipt)

	_, err = h.payments.RequestPayment(ctx, id, cash("2025-04"))
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Equal(t, int64(1), h.paymentCount(t))
	assert.Equal(t, []string{events.PaymentRequested}, h.events.types())
}

func TestRequestPayment_SignupDiscountOnlyOnFirstMonth(t *testing.T) {
	h := newHarness(t)
	referrer, _ := h.signup(t, "ravi@school.test", "")
	_, id := h.signup(t, "meena@school.test", referrer.ReferralCode)

	p, err := h.payments.RequestPayment(context.Background(), id, cash("2025-06"))
	require.NoError(t, err)
	assert.Equal(t, int64(600), p.Amount)
	assert.Empty(t, p.Details())
}

func TestRequestPayment_NoSignupDiscountWithoutReferral(t *testing.T) {
	h := newHarness(t)
	st, id := h.signup(t, "solo@school.test", "")
	assert.Zero(t, st.SignupDiscount)
	assert.Nil(t, st.SignupCouponUsed)

	p, err := h.payments.RequestPayment(context.Background(), id, cash("2025-04"))
	require.NoError(t, err)
	assert.Equal(t, int64(600), p.Amount)
	assert.Zero(t, p.Discounts)
}

func TestRequestPayment_CouponClampsToZero(t *testing.T) {
	h := newHarness(t)
	referrer, _ := h.signup(t, "ravi@school.test", "")
	st, id := h.signup(t, "meena@school.test", referrer.ReferralCode)
	h.coupon(t, "big700", 700)

	p, err := h.payments.RequestPayment(context.Background(), id, PaymentRequest{
		Month: "2025-04", Method: domain.MethodCash, Coupon: "  Big700 ",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Amount)
	assert.Equal(t, int64(800), p.Discounts)
	assert.Equal(t, p.Discounts, domain.SumDiscounts(p.Details()))
	require.NotNil(t, p.DiscountCoupon)
	assert.Equal(t, "BIG700", *p.DiscountCoupon)

	types := []string{p.Details()[0].Type, p.Details()[1].Type}
	assert.Equal(t, []string{domain.DiscountSignup, domain.DiscountCoupon}, types)
	assert.Equal(t, "BIG700", p.Details()[1].Code)

	rc := h.reloadCoupon(t, "BIG700")
	require.NotNil(t, rc.UsedBy)
	assert.Equal(t, st.Email, *rc.UsedBy)
}

func TestRequestPayment_CouponErrorsLeaveNoState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	other, otherID := h.signup(t, "other@school.test", "")
	_, id := h.signup(t, "meena@school.test", "")
	h.coupon(t, "ONCE", 200)

	_, err := h.payments.RequestPayment(ctx, otherID, PaymentRequest{Month: "2025-05", Method: domain.MethodCash, Coupon: "once"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		coupon string
		want   error
	}{
		{"unknown code", "NOPE", domain.ErrCouponNotFound},
		{"student referral code", other.ReferralCode, domain.ErrCouponWrongType},
		{"already used", "ONCE", domain.ErrCouponUsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.payments.RequestPayment(ctx, id, PaymentRequest{Month: "2025-05", Method: domain.MethodCash, Coupon: tt.coupon})
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, int64(1), h.paymentCount(t))
}

func TestRequestPayment_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, id := h.signup(t, "meena@school.test", "")

	tests := []struct {
		name string
		id   auth.Identity
		req  PaymentRequest
		want error
	}{
		{"admin caller", h.admin, cash("2025-04"), domain.ErrUnauthorized},
		{"anonymous caller", auth.Identity{}, cash("2025-04"), domain.ErrUnauthorized},
		{"month outside calendar", id, cash("2026-04"), domain.ErrInvalidMonth},
		{"malformed month", id, cash("April"), domain.ErrInvalidMonth},
		{"unknown method", id, PaymentRequest{Month: "2025-04", Method: "cheque"}, domain.ErrInvalidMethod},
		{"upi without receipt", id, PaymentRequest{Month: "2025-04", Method: domain.MethodUPI}, domain.ErrReceiptRequired},
		{"bank with gif receipt", id, PaymentRequest{
			Month: "2025-04", Method: domain.MethodBank,
			Receipt: &ReceiptUpload{Filename: "proof.gif", Body: strings.NewReader("gif")},
		}, domain.ErrInvalidReceipt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.payments.RequestPayment(ctx, tt.id, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, h.paymentCount(t))
}

func TestRequestPayment_StoresReceipt(t *testing.T) {
	h := newHarness(t)
	_, id := h.signup(t, "meena@school.test", "")

	p, err := h.payments.RequestPayment(context.Background(), id, PaymentRequest{
		Month:   "2025-07",
		Method:  "UPI",
		Receipt: &ReceiptUpload{Filename: "upi.PNG", Body: strings.NewReader("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodUPI, p.Method)
	require.NotNil(t, p.Receipt)
	data, err := os.ReadFile(filepath.Join(h.receiptDir, *p.Receipt))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestRequestPayment_FailedInsertRollsBack(t *testing.T) {
	h := newHarness(t)
	_, id := h.signup(t, "meena@school.test", "")
	h.coupon(t, "RACE", 100)

	err := h.db.Callback().Create().Before("gorm:create").Register("test:refuse_payments", func(tx *gorm.DB) {
		if tx.Statement.Table == "payments" {
			_ = tx.AddError(errors.New("insert refused"))
		}
	})
	require.NoError(t, err)

	_, err = h.payments.RequestPayment(context.Background(), id, PaymentRequest{
		Month: "2025-05", Method: domain.MethodUPI, Coupon: "RACE",
		Receipt: &ReceiptUpload{Filename: "a.png", Body: strings.NewReader("png")},
	})
	require.Error(t, err)

	assert.Nil(t, h.reloadCoupon(t, "RACE").UsedBy)
	entries, err := os.ReadDir(h.receiptDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRequestPayment_ReferralBatchAndReject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st, id := h.signup(t, "ravi@school.test", "")
	h.referN(t, st, 3, "friend")

	p, err := h.payments.RequestPayment(ctx, id, cash("2025-05"))
	require.NoError(t, err)
	require.Len(t, p.Details(), 1)
	entry := p.Details()[0]
	assert.Equal(t, domain.DiscountReferral, entry.Type)
	assert.Equal(t, 3, entry.Count)
	assert.Equal(t, int64(300), entry.Amount)
	assert.Equal(t, int64(300), p.Amount)

	for _, f := range h.referralFacts(t, st.Email) {
		assert.True(t, f.IsUsed)
		require.NotNil(t, f.PaymentID)
		assert.Equal(t, p.ID, *f.PaymentID)
	}
	n, err := h.referrals.CountUnused(st.Email)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, h.review.Reject(ctx, h.admin, p.ID))
	for _, f := range h.referralFacts(t, st.Email) {
		assert.False(t, f.IsUsed)
		assert.Nil(t, f.PaymentID)
	}
	assert.Zero(t, h.paymentCount(t))
}

func TestRequestPayment_FirstMonthKeepsReferrals(t *testing.T) {
	h := newHarness(t)
	st, id := h.signup(t, "ravi@school.test", "")
	h.referN(t, st, 2, "friend")

	p, err := h.payments.RequestPayment(context.Background(), id, cash("2025-04"))
	require.NoError(t, err)
	assert.False(t, domain.HasReferral(p.Details()))

	n, err := h.referrals.CountUnused(st.Email)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestReject_RestoresOnlyThatPaymentsBatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st, id := h.signup(t, "ravi@school.test", "")

	h.referN(t, st, 2, "early")
	may, err := h.payments.RequestPayment(ctx, id, cash("2025-05"))
	require.NoError(t, err)

	h.referN(t, st, 1, "late")
	june, err := h.payments.RequestPayment(ctx, id, cash("2025-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, june.Details()[0].Count)

	require.NoError(t, h.review.Reject(ctx, h.admin, may.ID))

	var used, unused int
	for _, f := range h.referralFacts(t, st.Email) {
		if f.IsUsed {
			used++
			assert.Equal(t, june.ID, *f.PaymentID)
		} else {
			unused++
		}
	}
	assert.Equal(t, 1, used)
	assert.Equal(t, 2, unused)
}

// Facts written before payment tagging have no payment id; rejecting a
// payment with a referral entry falls back to releasing all of them.
func TestReject_UntaggedReferralsFallBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st, _ := h.signup(t, "ravi@school.test", "")

	for _, email := range []string{"a@school.test", "b@school.test"} {
		require.NoError(t, h.db.Create(&models.StudentReferral{ReferrerEmail: st.Email, ReferredEmail: email, IsUsed: true}).Error)
	}
	legacy := &models.Payment{
		StudentEmail: st.Email,
		Month:        "2025-08",
		Amount:       400,
		Method:       domain.MethodCash,
		Discounts:    200,
		DiscountDetails: []domain.DiscountDetail{
			{Type: domain.DiscountReferral, Count: 2, Amount: 200},
		},
	}
	require.NoError(t, h.db.Create(legacy).Error)

	require.NoError(t, h.review.Reject(ctx, h.admin, legacy.ID))
	n, err := h.referrals.CountUnused(st.Email)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestReject_ReleasesCoupon(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, id := h.signup(t, "meena@school.test", "")
	_, otherID := h.signup(t, "other@school.test", "")
	h.coupon(t, "WELCOME", 150)

	p, err := h.payments.RequestPayment(ctx, id, PaymentRequest{Month: "2025-05", Method: domain.MethodCash, Coupon: "welcome"})
	require.NoError(t, err)
	assert.Equal(t, int64(450), p.Amount)

	require.NoError(t, h.review.Reject(ctx, h.admin, p.ID))
	assert.Nil(t, h.reloadCoupon(t, "WELCOME").UsedBy)

	_, err = h.payments.RequestPayment(ctx, otherID, PaymentRequest{Month: "2025-05", Method: domain.MethodCash, Coupon: "WELCOME"})
	require.NoError(t, err)

	var notes []models.Notification
	require.NoError(t, h.db.Where("recipient = ? AND type = ?", "meena@school.test", NotifyPaymentRejected).Find(&notes).Error)
	assert.Len(t, notes, 1)
}

func TestApprove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, id := h.signup(t, "meena@school.test", "")
	p, err := h.payments.RequestPayment(ctx, id, cash("2025-05"))
	require.NoError(t, err)

	_, err = h.review.Approve(ctx, id, p.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	approved, err := h.review.Approve(ctx, h.admin, p.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	assert.NotNil(t, approved.ApprovedAt)

	_, err = h.review.Approve(ctx, h.admin, p.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyApproved)
	_, err = h.review.Approve(ctx, h.admin, 9999)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	err = h.review.Reject(ctx, h.admin, p.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyApproved)
	err = h.review.Reject(ctx, h.admin, 9999)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	assert.Equal(t, []string{events.PaymentRequested, events.PaymentApproved}, h.events.types())
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, id := h.signup(t, "meena@school.test", "")
	_, otherID := h.signup(t, "other@school.test", "")
	h.coupon(t, "SAVE", 100)

	approved, err := h.payments.RequestPayment(ctx, id, cash("2025-04"))
	require.NoError(t, err)
	_, err = h.review.Approve(ctx, h.admin, approved.ID)
	require.NoError(t, err)

	pending, err := h.payments.RequestPayment(ctx, id, PaymentRequest{Month: "2025-05", Method: domain.MethodCash, Coupon: "SAVE"})
	require.NoError(t, err)

	t.Run("approved payment", func(t *testing.T) {
		err := h.payments.Cancel(ctx, id, approved.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyApproved)
	})
	t.Run("someone else's payment", func(t *testing.T) {
		err := h.payments.Cancel(ctx, otherID, pending.ID)
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})
	t.Run("admin cannot cancel", func(t *testing.T) {
		err := h.payments.Cancel(ctx, h.admin, pending.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
	t.Run("own pending payment", func(t *testing.T) {
		require.NoError(t, h.payments.Cancel(ctx, id, pending.ID))
		assert.Nil(t, h.reloadCoupon(t, "SAVE").UsedBy)
		_, err := h.paymentRepo.GetByID(pending.ID)
		assert.Error(t, err)
	})
	t.Run("month can be requested again", func(t *testing.T) {
		_, err := h.payments.RequestPayment(ctx, id, cash("2025-05"))
		assert.NoError(t, err)
	})
}

func TestCancel_RestoresReferralBatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st, id := h.signup(t, "ravi@school.test", "")
	h.referN(t, st, 2, "friend")

	p, err := h.payments.RequestPayment(ctx, id, cash("2025-06"))
	require.NoError(t, err)
	require.True(t, domain.HasReferral(p.Details()))
	assert.Equal(t, int64(400), p.Amount)

	require.NoError(t, h.payments.Cancel(ctx, id, p.ID))

	facts := h.referralFacts(t, st.Email)
	require.Len(t, facts, 2)
	for _, f := range facts {
		assert.False(t, f.IsUsed)
		assert.Nil(t, f.PaymentID)
	}
	assert.Zero(t, h.paymentCount(t))
	assert.Equal(t, []string{events.PaymentRequested, events.PaymentCancelled}, h.events.types())
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st, id := h.signup(t, "ravi@school.test", "")
	h.referN(t, st, 2, "friend")

	first, err := h.payments.RequestPayment(ctx, id, cash("2025-04"))
	require.NoError(t, err)
	_, err = h.review.Approve(ctx, h.admin, first.ID)
	require.NoError(t, err)
	second, err := h.payments.RequestPayment(ctx, id, cash("2025-06"))
	require.NoError(t, err)

	d, err := h.payments.Dashboard(id)
	require.NoError(t, err)
	require.Len(t, d.Months, 12)
	assert.Equal(t, domain.MonthPaid, d.Months[0].Status)
	assert.Equal(t, first.ID, *d.Months[0].PaymentID)
	assert.Equal(t, domain.MonthUnpaid, d.Months[1].Status)
	assert.Nil(t, d.Months[1].PaymentID)
	assert.Equal(t, domain.MonthPending, d.Months[2].Status)
	assert.Equal(t, second.ID, *d.Months[2].PaymentID)

	// The June payment redeemed both referrals.
	assert.Zero(t, d.ReferralCount)
	assert.Zero(t, d.ReferralDiscount)
	assert.Equal(t, int64(600), d.BaseFee)

	h.referN(t, st, 1, "late")
	d, err = h.payments.Dashboard(id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ReferralCount)
	assert.Equal(t, int64(100), d.ReferralDiscount)

	_, err = h.payments.Dashboard(h.admin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRequestPayment_UsesPricingOverrides(t *testing.T) {
	h := newHarness(t)
	st, id := h.signup(t, "ravi@school.test", "")
	h.referN(t, st, 1, "friend")
	require.NoError(t, h.settings.UpdatePricing(Pricing{BaseFee: 800, ReferralUnit: 150, SignupDiscount: 100}))

	p, err := h.payments.RequestPayment(context.Background(), id, cash("2025-05"))
	require.NoError(t, err)
	assert.Equal(t, int64(650), p.Amount)
	assert.Equal(t, int64(150), p.Discounts)
}
