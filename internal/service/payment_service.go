package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"feedesk/internal/auth"
	"feedesk/internal/domain"
	"feedesk/internal/events"
	"feedesk/internal/models"
	"feedesk/internal/repository"
	"feedesk/pkg/receipt"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReceiptUpload is an uploaded proof of payment.
type ReceiptUpload struct {
	Filename string
	Body     io.Reader
}

type PaymentRequest struct {
	Month   string
	Method  string
	Coupon  string
	Receipt *ReceiptUpload
}

type MonthStatus struct {
	Month     string `json:"month"`
	Status    string `json:"status"`
	PaymentID *uint  `json:"payment_id"`
}

// StudentDashboard is what a student sees on their home page.
type StudentDashboard struct {
	Student          *models.Student `json:"student"`
	ReferralCount    int64           `json:"referral_count"`
	ReferralDiscount int64           `json:"referral_discount"`
	BaseFee          int64           `json:"base_fee"`
	Months           []MonthStatus   `json:"months"`
}

type PaymentService struct {
	db        *gorm.DB
	calendar  *domain.Calendar
	students  *repository.StudentRepository
	payments  *repository.PaymentRepository
	coupons   *CouponService
	referrals *ReferralService
	settings  *SettingsService
	receipts  receipt.Store
	notifier  *NotificationService
	publisher events.Publisher
	reverser  *paymentReverser
	log       *zap.Logger
}

func NewPaymentService(
	db *gorm.DB,
	calendar *domain.Calendar,
	students *repository.StudentRepository,
	payments *repository.PaymentRepository,
	coupons *CouponService,
	referrals *ReferralService,
	settings *SettingsService,
	receipts receipt.Store,
	notifier *NotificationService,
	publisher events.Publisher,
	log *zap.Logger,
) *PaymentService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &PaymentService{
		db:        db,
		calendar:  calendar,
		students:  students,
		payments:  payments,
		coupons:   coupons,
		referrals: referrals,
		settings:  settings,
		receipts:  receipts,
		notifier:  notifier,
		publisher: publisher,
		reverser:  &paymentReverser{db: db, payments: payments, coupons: coupons, referrals: referrals, log: log},
		log:       log,
	}
}

// RequestPayment creates a pending payment for one allowed month. Coupon
// consumption, referral redemption and the insert commit together or not at all.
func (s *PaymentService) RequestPayment(ctx context.Context, id auth.Identity, req PaymentRequest) (*models.Payment, error) {
	if err := id.RequireStudent(); err != nil {
		return nil, err
	}
	if !s.calendar.Allowed(req.Month) {
		return nil, domain.ErrInvalidMonth
	}
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	if !domain.ValidMethod(req.Method) {
		return nil, domain.ErrInvalidMethod
	}
	if req.Method != domain.MethodCash && req.Receipt == nil {
		return nil, domain.ErrReceiptRequired
	}
	if req.Receipt != nil {
		if _, err := receipt.Ext(req.Receipt.Filename); err != nil {
			return nil, domain.ErrInvalidReceipt
		}
	}

	dup, err := s.payments.ExistsForMonth(id.Email, req.Month)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if dup {
		return nil, domain.ErrDuplicateRequest
	}
	st, err := s.students.GetByEmail(id.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, fmt.Errorf("load student: %w", err)
	}

	coupon := strings.TrimSpace(req.Coupon)
	if coupon != "" {
		if _, err := s.coupons.Validate(coupon); err != nil {
			return nil, err
		}
	}

	var handle *string
	if req.Receipt != nil {
		h, err := s.receipts.Save(ctx, req.Receipt.Filename, req.Receipt.Body)
		if err != nil {
			if errors.Is(err, receipt.ErrUnsupportedType) {
				return nil, domain.ErrInvalidReceipt
			}
			return nil, fmt.Errorf("store receipt: %w", err)
		}
		handle = &h
	}

	pricing := s.settings.Pricing()
	first := s.calendar.IsFirst(req.Month)
	in := domain.ChargeInput{BaseFee: pricing.BaseFee}
	if first && st.SignupDiscount > 0 {
		in.Signup = st.SignupDiscount
	}

	p := &models.Payment{
		StudentEmail: st.Email,
		StudentRoll:  st.RollNo,
		StudentName:  st.Name,
		Month:        req.Month,
		Method:       req.Method,
		Receipt:      handle,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if coupon != "" {
			c, err := s.coupons.WithTx(tx).Consume(coupon, st.Email)
			if err != nil {
				return err
			}
			in.Coupon = &domain.CouponDiscount{Code: c.Code, Amount: c.Discount}
			p.DiscountCoupon = &c.Code
		}

		var referralIDs []uint
		referrals := s.referrals.WithTx(tx)
		if !first {
			var err error
			in.Referral, referralIDs, err = referrals.UnusedBatch(st.Email, pricing.ReferralUnit)
			if err != nil {
				return err
			}
		}

		charge := domain.ComputeCharge(in)
		p.Amount = charge.Amount
		p.Discounts = charge.Discounts
		p.DiscountDetails = datatypes.JSONSlice[domain.DiscountDetail](charge.Details)

		if err := s.payments.WithTx(tx).Create(p); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateRequest
			}
			return fmt.Errorf("insert payment: %w", err)
		}
		if len(referralIDs) > 0 {
			return referrals.Redeem(referralIDs, p.ID)
		}
		return nil
	})
	if err != nil {
		s.discardReceipt(handle)
		return nil, err
	}

	s.log.Info("payment requested",
		zap.Uint("payment_id", p.ID),
		zap.String("student", p.StudentEmail),
		zap.String("month", p.Month),
		zap.Int64("amount", p.Amount),
		zap.Int64("discounts", p.Discounts))
	s.publish(ctx, events.PaymentRequested, p)
	return p, nil
}

// Cancel withdraws the caller's own pending payment and returns any
// discounts it used. Payments of other students look like missing ones.
func (s *PaymentService) Cancel(ctx context.Context, id auth.Identity, paymentID uint) error {
	if err := id.RequireStudent(); err != nil {
		return err
	}
	p, err := s.reverser.reverse(ctx, paymentID, func(p *models.Payment) error {
		if p.StudentEmail != id.Email {
			return domain.ErrPaymentNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.PaymentCancelled, p)
	return nil
}

func (s *PaymentService) ListMine(id auth.Identity) ([]models.Payment, error) {
	if err := id.RequireStudent(); err != nil {
		return nil, err
	}
	return s.payments.ListByStudent(id.Email)
}

// Dashboard reports each calendar month as paid, pending or unpaid, and the
// referral discount the student would get on their next unpaid month.
func (s *PaymentService) Dashboard(id auth.Identity) (*StudentDashboard, error) {
	if err := id.RequireStudent(); err != nil {
		return nil, err
	}
	st, err := s.students.GetByEmail(id.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, err
	}
	unused, err := s.referrals.CountUnused(st.Email)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByStudent(st.Email)
	if err != nil {
		return nil, err
	}
	byMonth := lo.KeyBy(payments, func(p models.Payment) string { return p.Month })
	months := lo.Map(s.calendar.Months(), func(m string, _ int) MonthStatus {
		p, ok := byMonth[m]
		switch {
		case !ok:
			return MonthStatus{Month: m, Status: domain.MonthUnpaid}
		case p.Approved:
			return MonthStatus{Month: m, Status: domain.MonthPaid, PaymentID: lo.ToPtr(p.ID)}
		default:
			return MonthStatus{Month: m, Status: domain.MonthPending, PaymentID: lo.ToPtr(p.ID)}
		}
	})

	pricing := s.settings.Pricing()
	d := &StudentDashboard{
		Student:       st,
		ReferralCount: unused,
		BaseFee:       pricing.BaseFee,
		Months:        months,
	}
	if lo.ContainsBy(months, func(m MonthStatus) bool { return m.Status == domain.MonthUnpaid }) {
		d.ReferralDiscount = unused * pricing.ReferralUnit
	}
	return d, nil
}

func (s *PaymentService) publish(ctx context.Context, typ string, p *models.Payment) {
	e := events.PaymentEvent{
		Type:         typ,
		PaymentID:    p.ID,
		StudentEmail: p.StudentEmail,
		Month:        p.Month,
		Amount:       p.Amount,
		Discounts:    p.Discounts,
		OccurredAt:   time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("publish event", zap.String("type", typ), zap.Uint("payment_id", p.ID), zap.Error(err))
	}
}

// discardReceipt removes a stored receipt when the request that uploaded it failed.
func (s *PaymentService) discardReceipt(handle *string) {
	if handle == nil {
		return
	}
	rm, ok := s.receipts.(interface{ Remove(string) error })
	if !ok {
		return
	}
	if err := rm.Remove(*handle); err != nil {
		s.log.Warn("remove orphan receipt", zap.String("receipt", *handle), zap.Error(err))
	}
}
