package repository

import (
	"crypto/rand"
	"errors"

	"feedesk/internal/models"

	"gorm.io/gorm"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrCodeGeneration is returned when no unique code could be produced.
var ErrCodeGeneration = errors.New("failed to generate a unique referral code after retries")

// GenerateReferralCode returns an 8-character uppercase alphanumeric code.
func GenerateReferralCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

// ReferralRepository stores student_referrals facts.
type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) WithTx(tx *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: tx}
}

func (r *ReferralRepository) Create(ref *models.StudentReferral) error {
	return r.db.Create(ref).Error
}

func (r *ReferralRepository) CountUnused(referrerEmail string) (int64, error) {
	var n int64
	err := r.db.Model(&models.StudentReferral{}).
		Where("referrer_email = ? AND is_used = ?", referrerEmail, false).
		Count(&n).Error
	return n, err
}

// UnusedIDs returns the ids of every unused fact for the referrer.
func (r *ReferralRepository) UnusedIDs(referrerEmail string) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.StudentReferral{}).
		Where("referrer_email = ? AND is_used = ?", referrerEmail, false).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// MarkUsed tags the given unused facts with paymentID. Facts that were
// consumed concurrently are skipped, so callers compare the returned count.
func (r *ReferralRepository) MarkUsed(ids []uint, paymentID uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.Model(&models.StudentReferral{}).
		Where("id IN ? AND is_used = ?", ids, false).
		Updates(map[string]interface{}{"is_used": true, "payment_id": paymentID})
	return res.RowsAffected, res.Error
}

// RestoreByPayment releases the facts consumed by paymentID.
func (r *ReferralRepository) RestoreByPayment(paymentID uint) (int64, error) {
	res := r.db.Model(&models.StudentReferral{}).
		Where("payment_id = ? AND is_used = ?", paymentID, true).
		Updates(map[string]interface{}{"is_used": false, "payment_id": nil})
	return res.RowsAffected, res.Error
}

// RestoreUntagged releases used facts of the referrer that carry no payment
// tag. Rows written before tagging existed look like this.
func (r *ReferralRepository) RestoreUntagged(referrerEmail string) (int64, error) {
	res := r.db.Model(&models.StudentReferral{}).
		Where("referrer_email = ? AND is_used = ? AND payment_id IS NULL", referrerEmail, true).
		Update("is_used", false)
	return res.RowsAffected, res.Error
}

func (r *ReferralRepository) ListByReferrer(referrerEmail string) ([]models.StudentReferral, error) {
	var list []models.StudentReferral
	err := r.db.Where("referrer_email = ?", referrerEmail).Order("created_at DESC").Find(&list).Error
	return list, err
}
