package repository

import (
	"feedesk/internal/models"

	"gorm.io/gorm"
)

type StudentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *StudentRepository) WithTx(tx *gorm.DB) *StudentRepository {
	return &StudentRepository{db: tx}
}

func (r *StudentRepository) Create(s *models.Student) error {
	return r.db.Create(s).Error
}

func (r *StudentRepository) GetByID(id uint) (*models.Student, error) {
	var s models.Student
	if err := r.db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) GetByEmail(email string) (*models.Student, error) {
	var s models.Student
	if err := r.db.Where("email = ?", email).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) EmailExists(email string) (bool, error) {
	var n int64
	err := r.db.Model(&models.Student{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

// FindByEmails returns students keyed by email.
func (r *StudentRepository) FindByEmails(emails []string) (map[string]models.Student, error) {
	out := make(map[string]models.Student, len(emails))
	if len(emails) == 0 {
		return out, nil
	}
	var list []models.Student
	if err := r.db.Where("email IN ?", emails).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, s := range list {
		out[s.Email] = s
	}
	return out, nil
}

func (r *StudentRepository) ListPending() ([]models.Student, error) {
	var list []models.Student
	err := r.db.Where("approved = ?", false).Order("created_at ASC").Find(&list).Error
	return list, err
}

// Search matches name or roll number, case-insensitively.
func (r *StudentRepository) Search(q string) ([]models.Student, error) {
	var list []models.Student
	like := "%" + q + "%"
	err := r.db.Where("LOWER(name) LIKE LOWER(?) OR LOWER(roll_no) LIKE LOWER(?)", like, like).
		Order("name ASC").
		Find(&list).Error
	return list, err
}

// Approve marks the student approved. Returns gorm.ErrRecordNotFound if no row matched.
func (r *StudentRepository) Approve(id uint) error {
	res := r.db.Model(&models.Student{}).Where("id = ?", id).Update("approved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL reports zero affected rows when the student was already approved.
	var n int64
	if err := r.db.Model(&models.Student{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the student. Their payments are left in place.
func (r *StudentRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Student{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
