package router

import (
	"net/http"

	"feedesk/config"
	"feedesk/internal/domain"
	"feedesk/internal/events"
	"feedesk/internal/handler"
	"feedesk/internal/logger"
	"feedesk/internal/middleware"
	"feedesk/internal/repository"
	"feedesk/internal/service"
	"feedesk/internal/ws"
	"feedesk/pkg/receipt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the infrastructure pieces built by main.
type Deps struct {
	Receipts  receipt.Store
	Limiter   middleware.Limiter
	Publisher events.Publisher
	Hub       *ws.Hub
	Log       *zap.Logger
}

func Setup(cfg *config.Config, db *gorm.DB, deps Deps) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	calendar, err := domain.NewCalendar(cfg.Billing.StartMonth, cfg.Billing.Months)
	if err != nil {
		return nil, err
	}
	hub := deps.Hub
	if hub == nil {
		hub = ws.NewHub()
	}
	publisher := events.Fanout{hub}
	if deps.Publisher != nil {
		publisher = append(publisher, deps.Publisher)
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewInMemoryRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log))
	r.Use(middleware.RateLimit(limiter, cfg.RateLimit.Requests))

	// Repositories
	studentRepo := repository.NewStudentRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	// Services
	settingsSvc := service.NewSettingsService(settingRepo, cfg.Billing, log)
	couponSvc := service.NewCouponService(couponRepo)
	referralSvc := service.NewReferralService(referralRepo, couponRepo, studentRepo, paymentRepo, log)
	notifSvc := service.NewNotificationService(notificationRepo, log)
	authSvc := service.NewAuthService(cfg, db, studentRepo, counterRepo, couponRepo, referralSvc, settingsSvc, log)
	studentSvc := service.NewStudentService(studentRepo, notifSvc, log)
	paymentSvc := service.NewPaymentService(db, calendar, studentRepo, paymentRepo, couponSvc, referralSvc, settingsSvc, deps.Receipts, notifSvc, publisher, log)
	reviewSvc := service.NewReviewService(db, paymentRepo, couponSvc, referralSvc, notifSvc, publisher, log)

	// Handlers
	opener, _ := deps.Receipts.(handler.ReceiptOpener)
	authHandler := handler.NewAuthHandler(authSvc, &cfg.JWT)
	studentHandler := handler.NewStudentHandler(paymentSvc, couponSvc, referralSvc, notifSvc, cfg.Receipts.MaxSize)
	adminHandler := handler.NewAdminHandler(adminRepo, studentRepo, paymentRepo, studentSvc, reviewSvc, couponSvc, referralSvc, settingsSvc, opener)

	authMw := middleware.AuthRequired(&cfg.JWT)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/login", authHandler.Login)
			authGroup.GET("/status", authHandler.Status)
			authGroup.POST("/logout", authHandler.Logout)
		}

		student := api.Group("/student")
		student.Use(authMw, middleware.RequireRole(domain.RoleStudent))
		{
			student.GET("/me", studentHandler.Me)
			student.GET("/coupon/:code", studentHandler.ValidateCoupon)
			student.POST("/pay", studentHandler.Pay)
			student.DELETE("/pay/:id", studentHandler.Cancel)
			student.GET("/payments", studentHandler.Payments)
			student.GET("/referrals", studentHandler.Referrals)
			student.GET("/notifications", studentHandler.Notifications)
			student.PUT("/notifications/:id/read", studentHandler.MarkNotificationRead)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/students", adminHandler.ListStudents)
			admin.GET("/students/pending", adminHandler.PendingStudents)
			admin.POST("/students/:id/approve", adminHandler.ApproveStudent)
			admin.DELETE("/students/:id", adminHandler.DeleteStudent)
			admin.GET("/payments", adminHandler.ListPayments)
			admin.POST("/payments/:id/approve", adminHandler.ApprovePayment)
			admin.POST("/payments/:id/reject", adminHandler.RejectPayment)
			admin.GET("/payments/:id/receipt", adminHandler.PaymentReceipt)
			admin.GET("/receipts/:handle", adminHandler.Receipt)
			admin.GET("/coupons", adminHandler.ListCoupons)
			admin.POST("/coupons", adminHandler.CreateCoupon)
			admin.DELETE("/coupons/:id", adminHandler.DeleteCoupon)
			admin.GET("/referral-codes", adminHandler.ListReferralCodes)
			admin.GET("/stats/monthly", adminHandler.MonthlyStats)
			admin.GET("/stats/months/:month", adminHandler.MonthDetails)
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
		}
	}

	r.GET("/ws/admin", ws.UpgradeAdminFeed(&cfg.JWT, hub))

	return r, nil
}
