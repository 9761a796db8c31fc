package handler

import (
	"errors"
	"net/http"

	"feedesk/internal/middleware"
	"feedesk/internal/service"

	"github.com/gin-gonic/gin"
)

type StudentHandler struct {
	payments   *service.PaymentService
	coupons    *service.CouponService
	referrals  *service.ReferralService
	notifier   *service.NotificationService
	maxReceipt int64
}

func NewStudentHandler(
	payments *service.PaymentService,
	coupons *service.CouponService,
	referrals *service.ReferralService,
	notifier *service.NotificationService,
	maxReceipt int64,
) *StudentHandler {
	return &StudentHandler{payments: payments, coupons: coupons, referrals: referrals, notifier: notifier, maxReceipt: maxReceipt}
}

// Me handles GET /api/student/me.
func (h *StudentHandler) Me(c *gin.Context) {
	d, err := h.payments.Dashboard(middleware.GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ValidateCoupon handles GET /api/student/coupon/:code.
func (h *StudentHandler) ValidateCoupon(c *gin.Context) {
	coupon, err := h.coupons.Validate(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": coupon.Code, "discount": coupon.Discount})
}

// Pay handles POST /api/student/pay (multipart: month, method,
// discountCoupon, screenshot).
func (h *StudentHandler) Pay(c *gin.Context) {
	req := service.PaymentRequest{
		Month:  c.PostForm("month"),
		Method: c.PostForm("method"),
		Coupon: c.PostForm("discountCoupon"),
	}
	fh, err := c.FormFile("screenshot")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// cash payments come without a receipt
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	default:
		if h.maxReceipt > 0 && fh.Size > h.maxReceipt {
			c.JSON(http.StatusBadRequest, gin.H{"error": "receipt too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable receipt"})
			return
		}
		defer f.Close()
		req.Receipt = &service.ReceiptUpload{Filename: fh.Filename, Body: f}
	}

	p, err := h.payments.RequestPayment(c.Request.Context(), middleware.GetIdentity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "payment request submitted", "payment": p})
}

// Cancel handles DELETE /api/student/pay/:id.
func (h *StudentHandler) Cancel(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.payments.Cancel(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Payments handles GET /api/student/payments.
func (h *StudentHandler) Payments(c *gin.Context) {
	list, err := h.payments.ListMine(middleware.GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *StudentHandler) Notifications(c *gin.Context) {
	page, limit := parsePagination(c)
	list, err := h.notifier.List(middleware.GetIdentity(c).Email, limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *StudentHandler) MarkNotificationRead(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.notifier.MarkRead(id, middleware.GetIdentity(c).Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Referrals handles GET /api/student/referrals: the students this student
// brought in and whether each referral has been redeemed.
func (h *StudentHandler) Referrals(c *gin.Context) {
	list, err := h.referrals.ListByReferrer(middleware.GetIdentity(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	unused := 0
	for _, r := range list {
		if !r.IsUsed {
			unused++
		}
	}
	c.JSON(http.StatusOK, gin.H{"referrals": list, "unused": unused})
}
