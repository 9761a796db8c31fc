package service

import (
	"context"
	"testing"

	"feedesk/internal/domain"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponService_Create(t *testing.T) {
	h := newHarness(t)

	rc, err := h.coupons.Create(" diwali25 ", 250)
	require.NoError(t, err)
	assert.Equal(t, "DIWALI25", rc.Code)
	assert.Equal(t, domain.CodeKindAdmin, rc.Kind)
	assert.Equal(t, domain.CreatorAdmin, rc.CreatedBy)
	assert.Nil(t, rc.UsedBy)

	_, err = h.coupons.Create("DIWALI25", 100)
	assert.ErrorIs(t, err, domain.ErrCouponExists)
	_, err = h.coupons.Create("  ", 100)
	assert.ErrorIs(t, err, domain.ErrInvalidCouponCode)
	_, err = h.coupons.Create("FREE", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)
}

func TestCouponService_ConsumeOnce(t *testing.T) {
	h := newHarness(t)
	h.coupon(t, "ONE", 100)

	c, err := h.coupons.Consume("one", "a@school.test")
	require.NoError(t, err)
	assert.True(t, c.Consumed())
	assert.Equal(t, int64(100), c.Discount)

	_, err = h.coupons.Consume("ONE", "b@school.test")
	assert.ErrorIs(t, err, domain.ErrCouponUsed)
	assert.Equal(t, "a@school.test", *h.reloadCoupon(t, "ONE").UsedBy)

	require.NoError(t, h.coupons.Release("one"))
	require.NoError(t, h.coupons.Release("one"))
	_, err = h.coupons.Validate("ONE")
	assert.NoError(t, err)
}

func TestCouponService_Delete(t *testing.T) {
	h := newHarness(t)
	st, _ := h.signup(t, "asha@school.test", "")
	free := h.coupon(t, "FREE", 100)
	used := h.coupon(t, "USED", 100)
	_, err := h.coupons.Consume("USED", st.Email)
	require.NoError(t, err)

	assert.ErrorIs(t, h.coupons.Delete(used.ID), domain.ErrCouponInUse)
	assert.ErrorIs(t, h.coupons.Delete(h.reloadCoupon(t, st.ReferralCode).ID), domain.ErrCouponWrongType)
	assert.ErrorIs(t, h.coupons.Delete(9999), domain.ErrCouponNotFound)

	require.NoError(t, h.coupons.Delete(free.ID))
	_, err = h.coupons.Validate("FREE")
	assert.ErrorIs(t, err, domain.ErrCouponNotFound)

	views, err := h.coupons.ListAdmin()
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "USED", views[0].Code)
	assert.Equal(t, 1, views[0].UsedCount)
}

func TestReferralService_ListCodes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ravi, raviID := h.signup(t, "ravi@school.test", "")
	meena, _ := h.signup(t, "meena@school.test", ravi.ReferralCode)
	h.referN(t, ravi, 1, "friend")
	h.coupon(t, "STAFF", 100)
	_, err := h.coupons.Consume("STAFF", meena.Email)
	require.NoError(t, err)

	_, err = h.payments.RequestPayment(ctx, raviID, cash("2025-05"))
	require.NoError(t, err)

	list, err := h.referrals.ListCodes()
	require.NoError(t, err)
	byCode := lo.KeyBy(list, func(l CodeListing) string { return l.Code })

	staff := byCode["STAFF"]
	require.NotNil(t, staff.CreatorName)
	assert.Equal(t, "Admin", *staff.CreatorName)
	assert.Nil(t, staff.DiscountApplied)
	require.NotNil(t, staff.UsedByName)
	assert.Equal(t, meena.Name, *staff.UsedByName)
	assert.Equal(t, meena.RollNo, *staff.UsedByRoll)

	raviCode := byCode[ravi.ReferralCode]
	assert.Equal(t, ravi.RollNo, *raviCode.CreatorRoll)
	require.NotNil(t, raviCode.DiscountApplied)
	assert.True(t, *raviCode.DiscountApplied)

	meenaCode := byCode[meena.ReferralCode]
	require.NotNil(t, meenaCode.DiscountApplied)
	assert.False(t, *meenaCode.DiscountApplied)
}

func TestSettingsService_Pricing(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, Pricing{BaseFee: 600, ReferralUnit: 100, SignupDiscount: 100}, h.settings.Pricing())

	require.NoError(t, h.settings.UpdatePricing(Pricing{BaseFee: 700, ReferralUnit: 50, SignupDiscount: 0}))
	assert.Equal(t, Pricing{BaseFee: 700, ReferralUnit: 50, SignupDiscount: 0}, h.settings.Pricing())

	err := h.settings.UpdatePricing(Pricing{BaseFee: -1})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}
