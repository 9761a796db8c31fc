package repository

import (
	"time"

	"feedesk/internal/domain"
	"feedesk/internal/models"

	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalStudents       int64 `json:"total_students"`
	PendingStudents     int64 `json:"pending_students"`
	PendingPayments     int64 `json:"pending_payments"`
	ApprovedPayments    int64 `json:"approved_payments"`
	CollectedAmount     int64 `json:"collected_amount"`
	DiscountsGranted    int64 `json:"discounts_granted"`
	CouponsIssued       int64 `json:"coupons_issued"`
	CouponsConsumed     int64 `json:"coupons_consumed"`
	OutstandingReferral int64 `json:"outstanding_referrals"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// StudentSummary is a student row with the time of their latest payment request.
type StudentSummary struct {
	ID          uint       `json:"id"`
	RollNo      string     `json:"roll_no"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Class       string     `json:"class"`
	Board       string     `json:"board"`
	Approved    bool       `json:"approved"`
	LastPayment *time.Time `json:"last_payment"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetDashboardStats() (*DashboardStats, error) {
	var s DashboardStats
	counts := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&s.TotalStudents, &models.Student{}, "", nil},
		{&s.PendingStudents, &models.Student{}, "approved = ?", []interface{}{false}},
		{&s.PendingPayments, &models.Payment{}, "approved = ?", []interface{}{false}},
		{&s.ApprovedPayments, &models.Payment{}, "approved = ?", []interface{}{true}},
		{&s.CouponsIssued, &models.ReferralCode{}, "type = ?", []interface{}{domain.CodeKindAdmin}},
		{&s.CouponsConsumed, &models.ReferralCode{}, "type = ? AND used_by IS NOT NULL", []interface{}{domain.CodeKindAdmin}},
		{&s.OutstandingReferral, &models.StudentReferral{}, "is_used = ?", []interface{}{false}},
	}
	for _, c := range counts {
		q := r.db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	var sums struct {
		Collected int64
		Discounts int64
	}
	err := r.db.Model(&models.Payment{}).
		Select("COALESCE(SUM(CASE WHEN approved THEN amount ELSE 0 END), 0) AS collected, COALESCE(SUM(discounts), 0) AS discounts").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}
	s.CollectedAmount = sums.Collected
	s.DiscountsGranted = sums.Discounts
	return &s, nil
}

// MonthlyCounts returns the number of payment requests per month.
func (r *AdminRepository) MonthlyCounts() ([]MonthCount, error) {
	var out []MonthCount
	err := r.db.Model(&models.Payment{}).
		Select("month, COUNT(*) AS count").
		Group("month").
		Order("month ASC").
		Scan(&out).Error
	return out, err
}

// ListStudentSummaries returns every student with their latest payment time.
func (r *AdminRepository) ListStudentSummaries() ([]StudentSummary, error) {
	var students []models.Student
	if err := r.db.Order("roll_no ASC").Find(&students).Error; err != nil {
		return nil, err
	}
	var payments []models.Payment
	if err := r.db.Select("student_email", "created_at").Find(&payments).Error; err != nil {
		return nil, err
	}
	last := make(map[string]time.Time, len(payments))
	for _, p := range payments {
		if p.CreatedAt.After(last[p.StudentEmail]) {
			last[p.StudentEmail] = p.CreatedAt
		}
	}
	out := make([]StudentSummary, 0, len(students))
	for _, st := range students {
		sum := StudentSummary{
			ID:       st.ID,
			RollNo:   st.RollNo,
			Name:     st.Name,
			Email:    st.Email,
			Class:    st.Class,
			Board:    st.Board,
			Approved: st.Approved,
		}
		if t, ok := last[st.Email]; ok {
			sum.LastPayment = &t
		}
		out = append(out, sum)
	}
	return out, nil
}
