package service

import (
	"errors"
	"fmt"
	"strings"

	"feedesk/internal/domain"
	"feedesk/internal/models"
	"feedesk/internal/repository"

	"gorm.io/gorm"
)

// NormalizeCode trims and upper-cases a coupon or referral code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CouponView is an admin coupon as listed to staff.
type CouponView struct {
	models.ReferralCode
	UsedCount int `json:"used_count"`
}

// CouponService owns the lifecycle of staff-issued coupons:
// available -> consumed -> available, or available -> deleted.
type CouponService struct {
	repo *repository.CouponRepository
}

func NewCouponService(repo *repository.CouponRepository) *CouponService {
	return &CouponService{repo: repo}
}

// WithTx returns a service whose writes go through tx.
func (s *CouponService) WithTx(tx *gorm.DB) *CouponService {
	return &CouponService{repo: s.repo.WithTx(tx)}
}

// Validate checks that code names an available admin coupon.
func (s *CouponService) Validate(code string) (models.AdminCoupon, error) {
	rc, err := s.repo.GetByCode(NormalizeCode(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AdminCoupon{}, domain.ErrCouponNotFound
		}
		return models.AdminCoupon{}, fmt.Errorf("load coupon: %w", err)
	}
	c, ok := rc.AdminCoupon()
	if !ok {
		return models.AdminCoupon{}, domain.ErrCouponWrongType
	}
	if c.Consumed() {
		return models.AdminCoupon{}, domain.ErrCouponUsed
	}
	return c, nil
}

// Consume marks the coupon used by consumer. The check and the write are a
// single conditional update, so two requests cannot both consume it.
func (s *CouponService) Consume(code, consumer string) (models.AdminCoupon, error) {
	code = NormalizeCode(code)
	ok, err := s.repo.Consume(code, consumer)
	if err != nil {
		return models.AdminCoupon{}, fmt.Errorf("consume coupon: %w", err)
	}
	if !ok {
		if _, err := s.Validate(code); err != nil {
			return models.AdminCoupon{}, err
		}
		return models.AdminCoupon{}, domain.ErrCouponUsed
	}
	rc, err := s.repo.GetByCode(code)
	if err != nil {
		return models.AdminCoupon{}, fmt.Errorf("reload coupon: %w", err)
	}
	c, _ := rc.AdminCoupon()
	return c, nil
}

// Release makes a consumed coupon available again. It is idempotent.
func (s *CouponService) Release(code string) error {
	return s.repo.Release(NormalizeCode(code))
}

func (s *CouponService) Create(code string, discount int64) (*models.ReferralCode, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, domain.ErrInvalidCouponCode
	}
	if discount <= 0 {
		return nil, domain.ErrInvalidDiscount
	}
	exists, err := s.repo.CodeExists(code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrCouponExists
	}
	rc := &models.ReferralCode{
		Code:      code,
		Discount:  discount,
		CreatedBy: domain.CreatorAdmin,
		Kind:      domain.CodeKindAdmin,
	}
	if err := s.repo.Create(rc); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrCouponExists
		}
		return nil, err
	}
	return rc, nil
}

// Delete removes an admin coupon that has not been consumed.
func (s *CouponService) Delete(id uint) error {
	rc, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrCouponNotFound
		}
		return err
	}
	c, ok := rc.AdminCoupon()
	if !ok {
		return domain.ErrCouponWrongType
	}
	if c.Consumed() {
		return domain.ErrCouponInUse
	}
	deleted, err := s.repo.DeleteAvailable(id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrCouponInUse
	}
	return nil
}

func (s *CouponService) ListAdmin() ([]CouponView, error) {
	list, err := s.repo.ListByKind(domain.CodeKindAdmin)
	if err != nil {
		return nil, err
	}
	out := make([]CouponView, 0, len(list))
	for _, rc := range list {
		v := CouponView{ReferralCode: rc}
		if rc.UsedBy != nil {
			v.UsedCount = 1
		}
		out = append(out, v)
	}
	return out, nil
}
