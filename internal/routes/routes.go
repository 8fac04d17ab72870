package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/config"
	"github.com/societyhub/society_backend/internal/controllers"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/middleware"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/services"
	"github.com/societyhub/society_backend/internal/ws"
)

// Deps are the long-lived collaborators the routes are built from.
// Hubs and Limiter are optional.
type Deps struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Log      logging.Logger
	Hubs     *ws.Hubs
	Limiter  middleware.Limiter
	Payments *services.PaymentService
	Media    *services.MediaService
}

var (
	memberRoles  = append([]models.Role{models.RoleSuperAdmin}, models.SocietyMembers...)
	bookingRoles = append(append([]models.Role{}, models.ManagerRoles...), models.ResidentRoles...)
)

func Register(r *gin.Engine, d Deps) {
	var notifier services.Notifier
	if d.Hubs != nil {
		notifier = d.Hubs
	}
	log := d.Log

	// Controllers
	cfgCtrl := &controllers.ConfigController{DB: d.DB, Cfg: d.Cfg}
	visitorCtrl := &controllers.VisitorController{
		Svc: services.NewVisitorService(d.DB, log, notifier, d.Cfg.AppBaseURL),
		Log: log,
	}
	gateCtrl := &controllers.GateLogController{Svc: services.NewGateLogService(d.DB, log, notifier), Log: log}
	personCtrl := &controllers.PersonController{DB: d.DB, Log: log}
	societyCtrl := &controllers.SocietyController{DB: d.DB, Log: log}
	buildingCtrl := &controllers.BuildingController{DB: d.DB, Log: log}
	flatCtrl := &controllers.FlatController{DB: d.DB, Log: log}
	joinCtrl := &controllers.JoinRequestController{DB: d.DB, Log: log}
	noticeCtrl := &controllers.NoticeController{DB: d.DB, Log: log, Notifier: notifier}
	contactCtrl := &controllers.EmergencyContactController{DB: d.DB, Log: log}
	staffCtrl := &controllers.StaffController{DB: d.DB, Log: log}
	bookingCtrl := &controllers.BookingController{DB: d.DB, Log: log}

	r.GET("/healthz", cfgCtrl.Health)

	// Public
	public := r.Group("/api/v1/public")
	{
		public.GET("/config", cfgCtrl.Get)
		public.GET("/societies", societyCtrl.PublicList)
		public.GET("/buildings", buildingCtrl.PublicList)
		public.GET("/flats", flatCtrl.PublicList)
	}

	// Protected
	authMW := middleware.AuthMiddleware(d.DB, middleware.AuthConfig{
		JWTSecret: d.Cfg.IdentityJWTSecret,
		Issuer:    d.Cfg.IdentityIssuer,
	}, log)
	handlers := []gin.HandlerFunc{authMW}
	if d.Limiter != nil {
		handlers = append(handlers, middleware.RateLimit(d.Limiter, log, middleware.KeyByPersonOrIP))
	}
	api := r.Group("/api/v1", handlers...)
	{
		api.GET("/me", personCtrl.Me)
		api.PUT("/me", personCtrl.UpdateMe)
		api.POST("/join-requests", joinCtrl.Create)

		// Role checks for pre-approval depend on the flat, so they live in
		// the service.
		api.POST("/visitor/preapprove", visitorCtrl.PreApprove)
		api.GET("/visitors", visitorCtrl.List)

		if d.Payments != nil {
			paymentCtrl := &controllers.PaymentController{Svc: d.Payments, Log: log}
			api.POST("/payments/orders", paymentCtrl.CreateOrder)
			api.POST("/payments/verify", paymentCtrl.Verify)
			api.GET("/payments", paymentCtrl.List)
		}
		if d.Media != nil {
			mediaCtrl := &controllers.MediaController{Svc: d.Media, Log: log}
			api.POST("/media/uploads", mediaCtrl.Presign)
		}

		// Gate (watchman and above)
		gate := api.Group("", middleware.RequireRoles(log, models.GateRoles...))
		{
			gate.GET("/visitor/checkin", visitorCtrl.Preview)
			gate.POST("/visitor/checkin", visitorCtrl.CheckIn)
			gate.POST("/visitor/checkout", visitorCtrl.CheckOut)

			gate.POST("/watchman/logs", gateCtrl.Create)
			gate.PATCH("/watchman/logs", gateCtrl.Exit)
			gate.PATCH("/watchman/logs/:id", gateCtrl.Exit)
			gate.GET("/watchman/logs", gateCtrl.List)
		}

		members := api.Group("", middleware.RequireRoles(log, memberRoles...))
		{
			members.GET("/notices", noticeCtrl.List)
			members.GET("/emergency-contacts", contactCtrl.List)
		}

		bookings := api.Group("/bookings", middleware.RequireRoles(log, bookingRoles...))
		{
			bookings.POST("", bookingCtrl.Create)
			bookings.GET("", bookingCtrl.List)
			bookings.POST("/:id/cancel", bookingCtrl.Cancel)
		}

		// Managers (admins and secretary)
		managers := api.Group("", middleware.RequireRoles(log, models.ManagerRoles...))
		{
			managers.GET("/persons", personCtrl.List)

			managers.POST("/notices", noticeCtrl.Create)
			managers.PUT("/notices/:id", noticeCtrl.Update)
			managers.DELETE("/notices/:id", noticeCtrl.Delete)

			managers.POST("/emergency-contacts", contactCtrl.Create)
			managers.DELETE("/emergency-contacts/:id", contactCtrl.Delete)
		}

		// Admins
		admin := api.Group("", middleware.RequireRoles(log, models.AdminRoles...))
		{
			admin.PATCH("/persons/:id/role", personCtrl.UpdateRole)
			admin.POST("/persons/:id/reset-role", personCtrl.ResetRole)

			admin.POST("/buildings", buildingCtrl.Create)
			admin.GET("/buildings", buildingCtrl.List)

			admin.POST("/flats", flatCtrl.Create)
			admin.POST("/flats/import", flatCtrl.Import)
			admin.GET("/flats", flatCtrl.List)
			admin.PUT("/flats/:id/assign", flatCtrl.Assign)

			admin.GET("/join-requests", joinCtrl.List)
			admin.PATCH("/join-requests/:id", joinCtrl.Decide)

			admin.POST("/staff", staffCtrl.Create)
			admin.GET("/staff", staffCtrl.List)
			admin.PUT("/staff/:id", staffCtrl.Update)
		}

		// Platform
		super := api.Group("/societies", middleware.RequireRoles(log, models.RoleSuperAdmin))
		{
			super.GET("", societyCtrl.List)
			super.POST("", societyCtrl.Create)
			super.GET("/:id", societyCtrl.Get)
			super.PUT("/:id", societyCtrl.Update)
		}
	}

	// Realtime
	if d.Hubs != nil {
		r.GET("/ws/gate", authMW, ws.GateHandler(d.Hubs, middleware.CurrentPerson, log))
		r.GET("/ws/resident", authMW, ws.ResidentHandler(d.Hubs, middleware.CurrentPerson, log))
	}
}
