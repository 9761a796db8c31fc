package handler

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"feedesk/internal/middleware"
	"feedesk/internal/models"
	"feedesk/internal/repository"
	"feedesk/internal/service"
	"feedesk/pkg/receipt"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ReceiptOpener reads receipts kept on local disk.
type ReceiptOpener interface {
	Open(handle string) (*os.File, error)
}

type AdminHandler struct {
	adminRepo   *repository.AdminRepository
	studentRepo *repository.StudentRepository
	paymentRepo *repository.PaymentRepository
	students    *service.StudentService
	review      *service.ReviewService
	coupons     *service.CouponService
	referrals   *service.ReferralService
	settings    *service.SettingsService
	receipts    ReceiptOpener
}

func NewAdminHandler(
	adminRepo *repository.AdminRepository,
	studentRepo *repository.StudentRepository,
	paymentRepo *repository.PaymentRepository,
	students *service.StudentService,
	review *service.ReviewService,
	coupons *service.CouponService,
	referrals *service.ReferralService,
	settings *service.SettingsService,
	receipts ReceiptOpener,
) *AdminHandler {
	return &AdminHandler{
		adminRepo:   adminRepo,
		studentRepo: studentRepo,
		paymentRepo: paymentRepo,
		students:    students,
		review:      review,
		coupons:     coupons,
		referrals:   referrals,
		settings:    settings,
		receipts:    receipts,
	}
}

// Dashboard handles GET /api/admin/dashboard.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.adminRepo.GetDashboardStats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PendingStudents handles GET /api/admin/students/pending.
func (h *AdminHandler) PendingStudents(c *gin.Context) {
	list, err := h.studentRepo.ListPending()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// ListStudents handles GET /api/admin/students?search=.
func (h *AdminHandler) ListStudents(c *gin.Context) {
	if q := strings.TrimSpace(c.Query("search")); q != "" {
		list, err := h.studentRepo.Search(q)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list})
		return
	}
	list, err := h.adminRepo.ListStudentSummaries()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// ApproveStudent handles POST /api/admin/students/:id/approve.
func (h *AdminHandler) ApproveStudent(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	st, err := h.students.Approve(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// DeleteStudent handles DELETE /api/admin/students/:id.
func (h *AdminHandler) DeleteStudent(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.students.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListPayments handles GET /api/admin/payments?month=&page=&limit=.
func (h *AdminHandler) ListPayments(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.paymentRepo.List(c.Query("month"), limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

// ApprovePayment handles POST /api/admin/payments/:id/approve.
func (h *AdminHandler) ApprovePayment(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := h.review.Approve(c.Request.Context(), middleware.GetIdentity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// RejectPayment handles POST /api/admin/payments/:id/reject.
func (h *AdminHandler) RejectPayment(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.review.Reject(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PaymentReceipt handles GET /api/admin/payments/:id/receipt.
func (h *AdminHandler) PaymentReceipt(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := h.paymentRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		respondError(c, err)
		return
	}
	if p.Receipt == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no receipt for this payment"})
		return
	}
	h.serveReceipt(c, *p.Receipt)
}

// Receipt handles GET /api/admin/receipts/:handle.
func (h *AdminHandler) Receipt(c *gin.Context) {
	h.serveReceipt(c, c.Param("handle"))
}

func (h *AdminHandler) serveReceipt(c *gin.Context, handle string) {
	if receipt.IsRemote(handle) {
		c.Redirect(http.StatusFound, handle)
		return
	}
	if h.receipts == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
		return
	}
	f, err := h.receipts.Open(handle)
	if err != nil {
		if errors.Is(err, receipt.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
			return
		}
		respondError(c, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", receipt.ContentType(handle))
	http.ServeContent(c.Writer, c.Request, handle, info.ModTime(), f)
}

// CreateCoupon handles POST /api/admin/coupons.
func (h *AdminHandler) CreateCoupon(c *gin.Context) {
	var req struct {
		Code     string `json:"code" binding:"required"`
		Discount int64  `json:"discount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rc, err := h.coupons.Create(req.Code, req.Discount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rc)
}

// ListCoupons handles GET /api/admin/coupons.
func (h *AdminHandler) ListCoupons(c *gin.Context) {
	list, err := h.coupons.ListAdmin()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// DeleteCoupon handles DELETE /api/admin/coupons/:id.
func (h *AdminHandler) DeleteCoupon(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.coupons.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListReferralCodes handles GET /api/admin/referral-codes.
func (h *AdminHandler) ListReferralCodes(c *gin.Context) {
	list, err := h.referrals.ListCodes()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// MonthlyStats handles GET /api/admin/stats/monthly.
func (h *AdminHandler) MonthlyStats(c *gin.Context) {
	counts, err := h.adminRepo.MonthlyCounts()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": counts})
}

// MonthDetails handles GET /api/admin/stats/months/:month.
func (h *AdminHandler) MonthDetails(c *gin.Context) {
	month := c.Param("month")
	list, total, err := h.paymentRepo.List(month, -1, -1)
	if err != nil {
		respondError(c, err)
		return
	}
	approved := lo.Filter(list, func(p models.Payment, _ int) bool { return p.Approved })
	c.JSON(http.StatusOK, gin.H{
		"month":     month,
		"requests":  total,
		"approved":  len(approved),
		"collected": lo.SumBy(approved, func(p models.Payment) int64 { return p.Amount }),
		"discounts": lo.SumBy(list, func(p models.Payment) int64 { return p.Discounts }),
		"payments":  list,
	})
}

// GetSettings handles GET /api/admin/settings.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Pricing())
}

// UpdateSettings handles PUT /api/admin/settings. Omitted amounts keep their
// current value.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	req := h.settings.Pricing()
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.settings.UpdatePricing(req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.settings.Pricing())
}
