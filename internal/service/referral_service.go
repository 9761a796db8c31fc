package service

import (
	"errors"
	"fmt"

	"feedesk/internal/domain"
	"feedesk/internal/models"
	"feedesk/internal/repository"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CodeListing is a referral code with the people attached to it resolved.
type CodeListing struct {
	models.ReferralCode
	CreatorName     *string `json:"creator_name"`
	CreatorRoll     *string `json:"creator_roll"`
	UsedByName      *string `json:"used_by_name"`
	UsedByRoll      *string `json:"used_by_roll"`
	DiscountApplied *bool   `json:"discount_applied"`
}

// ReferralService manages referral facts: recording them at signup,
// redeeming a student's unused ones as a batch and restoring them.
type ReferralService struct {
	referrals *repository.ReferralRepository
	codes     *repository.CouponRepository
	students  *repository.StudentRepository
	payments  *repository.PaymentRepository
	log       *zap.Logger
}

func NewReferralService(
	referrals *repository.ReferralRepository,
	codes *repository.CouponRepository,
	students *repository.StudentRepository,
	payments *repository.PaymentRepository,
	log *zap.Logger,
) *ReferralService {
	return &ReferralService{referrals: referrals, codes: codes, students: students, payments: payments, log: log}
}

func (s *ReferralService) WithTx(tx *gorm.DB) *ReferralService {
	return &ReferralService{
		referrals: s.referrals.WithTx(tx),
		codes:     s.codes.WithTx(tx),
		students:  s.students.WithTx(tx),
		payments:  s.payments.WithTx(tx),
		log:       s.log,
	}
}

func (s *ReferralService) CountUnused(referrerEmail string) (int64, error) {
	return s.referrals.CountUnused(referrerEmail)
}

// UnusedBatch returns every unused fact of the referrer as one batch.
// Batches are all-or-nothing; there is no partial redemption.
func (s *ReferralService) UnusedBatch(referrerEmail string, unit int64) (domain.ReferralBatch, []uint, error) {
	ids, err := s.referrals.UnusedIDs(referrerEmail)
	if err != nil {
		return domain.ReferralBatch{}, nil, fmt.Errorf("load referrals: %w", err)
	}
	return domain.ReferralBatch{Count: len(ids), Unit: unit}, ids, nil
}

// Redeem marks the batch used by paymentID. If any fact was consumed in the
// meantime the whole redemption fails with domain.ErrReferralsChanged.
func (s *ReferralService) Redeem(ids []uint, paymentID uint) error {
	n, err := s.referrals.MarkUsed(ids, paymentID)
	if err != nil {
		return fmt.Errorf("mark referrals used: %w", err)
	}
	if n != int64(len(ids)) {
		return domain.ErrReferralsChanged
	}
	return nil
}

// Restore releases the facts redeemed by paymentID. Facts used before
// payment tagging existed carry no tag; when nothing tagged is found those are
// released for the referrer instead.
func (s *ReferralService) Restore(referrerEmail string, paymentID uint) (int64, error) {
	n, err := s.referrals.RestoreByPayment(paymentID)
	if err != nil {
		return 0, fmt.Errorf("restore referrals: %w", err)
	}
	if n > 0 {
		return n, nil
	}
	n, err = s.referrals.RestoreUntagged(referrerEmail)
	if err != nil {
		return 0, fmt.Errorf("restore untagged referrals: %w", err)
	}
	if n > 0 {
		s.log.Warn("restored untagged referrals",
			zap.String("referrer", referrerEmail),
			zap.Uint("payment_id", paymentID),
			zap.Int64("count", n))
	}
	return n, nil
}

// ResolveStudentCode returns the referrer behind a student referral code.
// Codes whose owner has been deleted are invalid, including when the same
// email later signs up again and receives a new code.
func (s *ReferralService) ResolveStudentCode(code string) (models.StudentCode, error) {
	rc, err := s.codes.GetByCode(NormalizeCode(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StudentCode{}, domain.ErrInvalidReferral
		}
		return models.StudentCode{}, fmt.Errorf("load referral code: %w", err)
	}
	sc, ok := rc.StudentCode()
	if !ok {
		return models.StudentCode{}, domain.ErrInvalidReferral
	}
	owner, err := s.students.GetByEmail(sc.Owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StudentCode{}, domain.ErrInvalidReferral
		}
		return models.StudentCode{}, fmt.Errorf("load referrer: %w", err)
	}
	if owner.ReferralCode != sc.Code {
		return models.StudentCode{}, domain.ErrInvalidReferral
	}
	return sc, nil
}

// RecordSignup stores that referrerEmail brought referredEmail in.
func (s *ReferralService) RecordSignup(referrerEmail, referredEmail string) error {
	return s.referrals.Create(&models.StudentReferral{
		ReferrerEmail: referrerEmail,
		ReferredEmail: referredEmail,
	})
}

// ListByReferrer returns the facts recorded for a referrer, newest first.
func (s *ReferralService) ListByReferrer(referrerEmail string) ([]models.StudentReferral, error) {
	return s.referrals.ListByReferrer(referrerEmail)
}

// ListCodes returns every code with creator and consumer details. For
// student codes DiscountApplied reports whether the owner has a payment
// carrying a referral discount.
func (s *ReferralService) ListCodes() ([]CodeListing, error) {
	codes, err := s.codes.ListAll()
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(codes)*2)
	for _, rc := range codes {
		if rc.CreatedBy != domain.CreatorAdmin {
			emails = append(emails, rc.CreatedBy)
		}
		if rc.UsedBy != nil {
			emails = append(emails, *rc.UsedBy)
		}
	}
	people, err := s.students.FindByEmails(lo.Uniq(emails))
	if err != nil {
		return nil, err
	}
	applied, err := s.payments.StudentsWithReferralDiscount()
	if err != nil {
		return nil, err
	}

	out := make([]CodeListing, 0, len(codes))
	for _, rc := range codes {
		l := CodeListing{ReferralCode: rc}
		if rc.CreatedBy == domain.CreatorAdmin {
			l.CreatorName = lo.ToPtr("Admin")
		} else if st, ok := people[rc.CreatedBy]; ok {
			l.CreatorName, l.CreatorRoll = lo.ToPtr(st.Name), lo.ToPtr(st.RollNo)
		}
		if rc.UsedBy != nil {
			if st, ok := people[*rc.UsedBy]; ok {
				l.UsedByName, l.UsedByRoll = lo.ToPtr(st.Name), lo.ToPtr(st.RollNo)
			}
		}
		if sc, ok := rc.StudentCode(); ok {
			l.DiscountApplied = lo.ToPtr(applied[sc.Owner])
		}
		out = append(out, l)
	}
	return out, nil
}
