package models

import (
	"time"

	"feedesk/internal/domain"

	"gorm.io/datatypes"
)

// Payment is a monthly fee request. Rejected and cancelled requests are
// deleted, so a row is either pending or approved.
type Payment struct {
	ID              uint                                       `gorm:"primaryKey" json:"id"`
	StudentEmail    string                                     `gorm:"size:255;not null;uniqueIndex:idx_payments_student_month" json:"student_email"`
	StudentRoll     string                                     `gorm:"size:64" json:"student_roll"`
	StudentName     string                                     `gorm:"size:255" json:"student_name"`
	Month           string                                     `gorm:"size:7;not null;uniqueIndex:idx_payments_student_month" json:"month"`
	Amount          int64                                      `gorm:"not null" json:"amount"`
	Method          string                                     `gorm:"size:16;not null" json:"method"`
	Receipt         *string                                    `gorm:"size:512" json:"receipt"`
	Approved        bool                                       `gorm:"not null;default:false;index" json:"approved"`
	ApprovedAt      *time.Time                                 `json:"approved_at"`
	DiscountCoupon  *string                                    `gorm:"size:32;index" json:"discount_coupon"`
	Discounts       int64                                      `gorm:"not null;default:0" json:"discounts"`
	DiscountDetails datatypes.JSONSlice[domain.DiscountDetail] `json:"discount_details"`
	CreatedAt       time.Time                                  `gorm:"index" json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// Details returns the discount entries as a plain slice.
func (p *Payment) Details() []domain.DiscountDetail {
	return []domain.DiscountDetail(p.DiscountDetails)
}
