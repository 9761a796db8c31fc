package repository

import (
	"time"

	"feedesk/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

func (r *NotificationRepository) ListByRecipient(recipient string, limit, offset int) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.Where("recipient = ?", recipient).Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *NotificationRepository) MarkRead(id uint, recipient string) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND recipient = ? AND read_at IS NULL", id, recipient).
		Update("read_at", time.Now()).Error
}
