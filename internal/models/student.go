package models

import "time"

type Student struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RollNo           string    `gorm:"uniqueIndex;size:64;not null" json:"roll_no"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	Email            string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Class            string    `gorm:"size:32;not null" json:"class"`
	Board            string    `gorm:"size:32;not null" json:"board"`
	PasswordHash     string    `gorm:"size:255;not null" json:"-"`
	ReferralCode     string    `gorm:"uniqueIndex;size:16;not null" json:"referral_code"`
	SignupCouponUsed *string   `gorm:"size:32" json:"signup_coupon_used"`
	SignupDiscount   int64     `gorm:"not null;default:0" json:"signup_discount"`
	Approved         bool      `gorm:"not null;default:false;index" json:"approved"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Student) TableName() string {
	return "students"
}

// Counter is a named monotonically increasing sequence.
type Counter struct {
	Name string `gorm:"primaryKey;size:64"`
	Seq  int64  `gorm:"not null;default:0"`
}

func (Counter) TableName() string { return "counters" }
