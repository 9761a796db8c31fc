package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feedesk/internal/auth"
	"feedesk/internal/domain"
	"feedesk/internal/events"
	"feedesk/internal/models"
	"feedesk/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReviewService is the admin side of a payment: approve it for good, or
// reject it and return whatever discounts it consumed.
type ReviewService struct {
	payments  *repository.PaymentRepository
	reverser  *paymentReverser
	notifier  *NotificationService
	publisher events.Publisher
	log       *zap.Logger
}

func NewReviewService(
	db *gorm.DB,
	payments *repository.PaymentRepository,
	coupons *CouponService,
	referrals *ReferralService,
	notifier *NotificationService,
	publisher events.Publisher,
	log *zap.Logger,
) *ReviewService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ReviewService{
		payments:  payments,
		reverser:  &paymentReverser{db: db, payments: payments, coupons: coupons, referrals: referrals, log: log},
		notifier:  notifier,
		publisher: publisher,
		log:       log,
	}
}

// Approve moves a pending payment to approved. Approval is final.
func (s *ReviewService) Approve(ctx context.Context, id auth.Identity, paymentID uint) (*models.Payment, error) {
	if err := id.RequireAdmin(); err != nil {
		return nil, err
	}
	ok, err := s.payments.Approve(paymentID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("approve payment: %w", err)
	}
	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAlreadyApproved
	}
	s.log.Info("payment approved", zap.Uint("payment_id", p.ID), zap.String("by", id.Email))
	s.notifier.PaymentApproved(p)
	s.publish(ctx, events.PaymentApproved, p)
	return p, nil
}

// Reject deletes a pending payment after releasing its coupon and referrals.
func (s *ReviewService) Reject(ctx context.Context, id auth.Identity, paymentID uint) error {
	if err := id.RequireAdmin(); err != nil {
		return err
	}
	p, err := s.reverser.reverse(ctx, paymentID, nil)
	if err != nil {
		return err
	}
	s.notifier.PaymentRejected(p)
	s.publish(ctx, events.PaymentRejected, p)
	return nil
}

func (s *ReviewService) publish(ctx context.Context, typ string, p *models.Payment) {
	err := s.publisher.Publish(ctx, events.PaymentEvent{
		Type:         typ,
		PaymentID:    p.ID,
		StudentEmail: p.StudentEmail,
		Month:        p.Month,
		Amount:       p.Amount,
		Discounts:    p.Discounts,
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("publish event", zap.String("type", typ), zap.Uint("payment_id", p.ID), zap.Error(err))
	}
}
