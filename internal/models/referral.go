package models

import (
	"time"

	"feedesk/internal/domain"
)

// ReferralCode holds both staff-issued coupons and students' own referral
// codes. Use AdminCoupon or StudentCode to work with a specific kind.
type ReferralCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"uniqueIndex;size:32;not null" json:"code"`
	Discount  int64     `gorm:"not null;default:0" json:"discount"`
	CreatedBy string    `gorm:"size:255;not null;index" json:"created_by"`
	UsedBy    *string   `gorm:"size:255;index" json:"used_by"`
	Kind      string    `gorm:"column:type;size:16;not null;index" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReferralCode) TableName() string {
	return "referral_codes"
}

// AdminCoupon is a single-use discount code issued by staff.
type AdminCoupon struct {
	ID       uint
	Code     string
	Discount int64
	UsedBy   *string
}

func (c AdminCoupon) Consumed() bool { return c.UsedBy != nil }

// StudentCode is a student's permanent, reusable referral code.
type StudentCode struct {
	ID    uint
	Code  string
	Owner string
}

func (r *ReferralCode) AdminCoupon() (AdminCoupon, bool) {
	if r.Kind != domain.CodeKindAdmin {
		return AdminCoupon{}, false
	}
	return AdminCoupon{ID: r.ID, Code: r.Code, Discount: r.Discount, UsedBy: r.UsedBy}, true
}

func (r *ReferralCode) StudentCode() (StudentCode, bool) {
	if r.Kind != domain.CodeKindStudent {
		return StudentCode{}, false
	}
	return StudentCode{ID: r.ID, Code: r.Code, Owner: r.CreatedBy}, true
}

// StudentReferral records that ReferrerEmail brought ReferredEmail in.
// PaymentID names the payment whose referral batch consumed it.
type StudentReferral struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ReferrerEmail string    `gorm:"size:255;not null;index" json:"referrer_email"`
	ReferredEmail string    `gorm:"size:255;not null;index" json:"referred_email"`
	IsUsed        bool      `gorm:"not null;default:false;index" json:"is_used"`
	PaymentID     *uint     `gorm:"index" json:"payment_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (StudentReferral) TableName() string {
	return "student_referrals"
}
