package service

import (
	"context"
	"errors"
	"fmt"

	"feedesk/internal/domain"
	"feedesk/internal/models"
	"feedesk/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// paymentReverser deletes a pending payment and hands back the coupon and
// referrals it consumed, all in one transaction.
type paymentReverser struct {
	db        *gorm.DB
	payments  *repository.PaymentRepository
	coupons   *CouponService
	referrals *ReferralService
	log       *zap.Logger
}

// reverse runs check against the loaded payment before anything is changed.
func (r *paymentReverser) reverse(ctx context.Context, paymentID uint, check func(*models.Payment) error) (*models.Payment, error) {
	var p *models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := r.payments.WithTx(tx)
		var err error
		p, err = payments.GetByID(paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPaymentNotFound
			}
			return fmt.Errorf("load payment: %w", err)
		}
		if check != nil {
			if err := check(p); err != nil {
				return err
			}
		}
		if p.Approved {
			return domain.ErrAlreadyApproved
		}
		deleted, err := payments.DeletePending(p.ID)
		if err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		if !deleted {
			return domain.ErrAlreadyApproved
		}
		if p.DiscountCoupon != nil {
			if err := r.coupons.WithTx(tx).Release(*p.DiscountCoupon); err != nil {
				return fmt.Errorf("release coupon: %w", err)
			}
		}
		if domain.HasReferral(p.Details()) {
			if _, err := r.referrals.WithTx(tx).Restore(p.StudentEmail, p.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("payment reversed",
		zap.Uint("payment_id", p.ID),
		zap.String("student", p.StudentEmail),
		zap.String("month", p.Month))
	return p, nil
}
