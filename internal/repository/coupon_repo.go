package repository

import (
	"feedesk/internal/domain"
	"feedesk/internal/models"

	"gorm.io/gorm"
)

// CouponRepository stores referral_codes rows of both kinds.
type CouponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) WithTx(tx *gorm.DB) *CouponRepository {
	return &CouponRepository{db: tx}
}

func (r *CouponRepository) Create(rc *models.ReferralCode) error {
	return r.db.Create(rc).Error
}

func (r *CouponRepository) GetByCode(code string) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	if err := r.db.Where("code = ?", code).First(&rc).Error; err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *CouponRepository) GetByID(id uint) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	if err := r.db.First(&rc, id).Error; err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *CouponRepository) CodeExists(code string) (bool, error) {
	var n int64
	err := r.db.Model(&models.ReferralCode{}).Where("code = ?", code).Count(&n).Error
	return n > 0, err
}

// Consume sets used_by on an available admin coupon in one conditional
// update. It reports false when the coupon was not available.
func (r *CouponRepository) Consume(code, consumer string) (bool, error) {
	res := r.db.Model(&models.ReferralCode{}).
		Where("code = ? AND type = ? AND used_by IS NULL", code, domain.CodeKindAdmin).
		Update("used_by", consumer)
	return res.RowsAffected == 1, res.Error
}

// Release clears used_by. Releasing an available coupon is a no-op.
func (r *CouponRepository) Release(code string) error {
	return r.db.Model(&models.ReferralCode{}).
		Where("code = ? AND type = ?", code, domain.CodeKindAdmin).
		Update("used_by", nil).Error
}

// DeleteAvailable deletes an admin coupon only if it is not consumed.
func (r *CouponRepository) DeleteAvailable(id uint) (bool, error) {
	res := r.db.Where("type = ? AND used_by IS NULL", domain.CodeKindAdmin).Delete(&models.ReferralCode{}, id)
	return res.RowsAffected == 1, res.Error
}

func (r *CouponRepository) ListByKind(kind string) ([]models.ReferralCode, error) {
	var list []models.ReferralCode
	err := r.db.Where("type = ?", kind).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *CouponRepository) ListAll() ([]models.ReferralCode, error) {
	var list []models.ReferralCode
	err := r.db.Order("created_at DESC").Find(&list).Error
	return list, err
}
