package service

import (
	"errors"

	"feedesk/internal/domain"
	"feedesk/internal/models"
	"feedesk/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StudentService covers admin actions on student accounts.
type StudentService struct {
	students *repository.StudentRepository
	notifier *NotificationService
	log      *zap.Logger
}

func NewStudentService(students *repository.StudentRepository, notifier *NotificationService, log *zap.Logger) *StudentService {
	return &StudentService{students: students, notifier: notifier, log: log}
}

// Approve lets the student log in.
func (s *StudentService) Approve(id uint) (*models.Student, error) {
	if err := s.students.Approve(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, err
	}
	st, err := s.students.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.notifier.AccountApproved(st)
	return st, nil
}

// Delete removes the account. Existing payments stay for the record.
func (s *StudentService) Delete(id uint) error {
	if err := s.students.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrStudentNotFound
		}
		return err
	}
	s.log.Info("student deleted", zap.Uint("student_id", id))
	return nil
}
