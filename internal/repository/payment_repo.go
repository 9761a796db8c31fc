package repository

import (
	"time"

	"feedesk/internal/domain"
	"feedesk/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

// Create inserts the payment. A second request for the same student and
// month fails with gorm.ErrDuplicatedKey when error translation is on.
func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ExistsForMonth(email, month string) (bool, error) {
	var n int64
	err := r.db.Model(&models.Payment{}).
		Where("student_email = ? AND month = ?", email, month).
		Count(&n).Error
	return n > 0, err
}

func (r *PaymentRepository) ListByStudent(email string) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Where("student_email = ?", email).Order("month ASC").Find(&list).Error
	return list, err
}

// List returns payments newest first, optionally limited to one month.
func (r *PaymentRepository) List(month string, limit, offset int) ([]models.Payment, int64, error) {
	q := r.db.Model(&models.Payment{})
	if month != "" {
		q = q.Where("month = ?", month)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Payment
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

// Approve flips a pending payment to approved. It reports false when no
// pending payment with that id exists.
func (r *PaymentRepository) Approve(id uint, at time.Time) (bool, error) {
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND approved = ?", id, false).
		Updates(map[string]interface{}{"approved": true, "approved_at": at})
	return res.RowsAffected == 1, res.Error
}

// DeletePending removes a payment only while it is still pending.
func (r *PaymentRepository) DeletePending(id uint) (bool, error) {
	res := r.db.Where("approved = ?", false).Delete(&models.Payment{}, id)
	return res.RowsAffected == 1, res.Error
}

// StudentsWithReferralDiscount returns the emails of students with at least one
// payment whose details include a referral entry.
func (r *PaymentRepository) StudentsWithReferralDiscount() (map[string]bool, error) {
	var list []models.Payment
	err := r.db.Select("student_email", "discount_details").
		Where("discount_details LIKE ?", `%"referral"%`).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(list))
	for _, p := range list {
		if domain.HasReferral(p.Details()) {
			out[p.StudentEmail] = true
		}
	}
	return out, nil
}
