package service

import (
	"encoding/json"
	"fmt"

	"feedesk/internal/models"
	"feedesk/internal/repository"

	"go.uber.org/zap"
)

const (
	NotifyPaymentApproved = "PAYMENT_APPROVED"
	NotifyPaymentRejected = "PAYMENT_REJECTED"
	NotifyAccountApproved = "ACCOUNT_APPROVED"
)

type NotificationService struct {
	repo *repository.NotificationRepository
	log  *zap.Logger
}

func NewNotificationService(repo *repository.NotificationRepository, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, log: log}
}

func (s *NotificationService) Notify(recipient, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	return s.repo.Create(&models.Notification{
		Recipient: recipient,
		Type:      notifType,
		Title:     title,
		Body:      body,
		Data:      dataJSON,
	})
}

// notifyBestEffort logs instead of returning failures.
func (s *NotificationService) notifyBestEffort(recipient, notifType, title, body string, data map[string]interface{}) {
	if err := s.Notify(recipient, notifType, title, body, data); err != nil {
		s.log.Warn("notification not stored",
			zap.String("recipient", recipient),
			zap.String("type", notifType),
			zap.Error(err))
	}
}

func (s *NotificationService) PaymentApproved(p *models.Payment) {
	s.notifyBestEffort(p.StudentEmail, NotifyPaymentApproved, "Payment approved",
		fmt.Sprintf("Your payment of %d for %s has been approved.", p.Amount, p.Month),
		map[string]interface{}{"payment_id": p.ID, "month": p.Month})
}

func (s *NotificationService) PaymentRejected(p *models.Payment) {
	s.notifyBestEffort(p.StudentEmail, NotifyPaymentRejected, "Payment rejected",
		fmt.Sprintf("Your payment request for %s was rejected. Any discounts used have been returned.", p.Month),
		map[string]interface{}{"month": p.Month})
}

func (s *NotificationService) AccountApproved(st *models.Student) {
	s.notifyBestEffort(st.Email, NotifyAccountApproved, "Account approved",
		"Your account has been approved. You can now log in.", nil)
}

func (s *NotificationService) List(recipient string, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListByRecipient(recipient, limit, offset)
}

func (s *NotificationService) MarkRead(id uint, recipient string) error {
	return s.repo.MarkRead(id, recipient)
}
