package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"renthub/internal/api/handlers"
	"renthub/internal/api/middleware"
	"renthub/internal/config"
	"renthub/internal/logging"
	"renthub/internal/models"
	"renthub/internal/services"
)

// Services bundles what the API handlers need.
type Services struct {
	Estimates    services.IEstimateService
	Applications services.IApplicationService
	Payments     services.IPaymentService
	Availability services.IAvailabilityService
	EventLogs    services.IEventLogService
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, svc Services, rateLimiter *middleware.RateLimiterMiddleware) *gin.Engine {
	r := gin.New()

	// Apply global middleware first (order matters)
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger())
	r.Use(middleware.CORSMiddleware())
	if rateLimiter != nil {
		r.Use(rateLimiter.Limit())
	}

	// Initialize handlers
	estimateHandler := handlers.NewRestEstimateHandler(svc.Estimates)
	applicationHandler := handlers.NewRestApplicationHandler(svc.Applications)
	paymentHandler := handlers.NewRestPaymentHandler(svc.Payments, cfg.ProofMaxBytes())
	propertyHandler := handlers.NewRestPropertyHandler(svc.Availability)
	eventLogHandler := handlers.NewRestEventLogHandler(svc.EventLogs)

	tenant := middleware.RequireRoles(models.RoleTenant)
	landlord := middleware.RequireRoles(models.RoleLandlord)
	admin := middleware.AdminMiddleware()

	apiGroup := r.Group("/api")
	{
		// Public Routes
		apiGroup.POST("/rental/calculate", estimateHandler.Calculate)
		apiGroup.POST("/rental/validate-dates", estimateHandler.ValidateDates)
		apiGroup.GET("/rental/properties/:id/pricing", estimateHandler.GetPricing)

		apiGroup.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated Routes
		authRequired := apiGroup.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))

		applications := authRequired.Group("/applications")
		{
			applications.POST("", tenant, applicationHandler.Submit)
			applications.GET("", admin, applicationHandler.ListAll)
			applications.GET("/mine", tenant, applicationHandler.ListMine)
			applications.GET("/received", landlord, applicationHandler.ListReceived)
			applications.GET("/:id", applicationHandler.GetByID)
			applications.PUT("/:id/approve", landlord, applicationHandler.Approve)
			applications.PUT("/:id/reject", landlord, applicationHandler.Reject)
			applications.PUT("/:id/cancel", tenant, applicationHandler.Cancel)
		}

		payments := authRequired.Group("/payments")
		{
			payments.POST("", tenant, paymentHandler.Submit)
			payments.GET("", admin, paymentHandler.ListAll)
			payments.GET("/mine", tenant, paymentHandler.ListMine)
			payments.GET("/landlord", landlord, paymentHandler.ListLandlord)
			payments.GET("/stats", admin, paymentHandler.Stats)
			payments.GET("/:id", paymentHandler.GetByID)
			payments.GET("/:id/proof", paymentHandler.GetProofURL)
			payments.PUT("/:id/verify", admin, paymentHandler.Verify)
			payments.PUT("/:id/release", admin, paymentHandler.Release)
			payments.PUT("/:id/reject", admin, paymentHandler.Reject)
			payments.PUT("/:id/refund", admin, paymentHandler.Refund)
			payments.PUT("/:id/notes", admin, paymentHandler.UpdateNotes)
		}

		properties := authRequired.Group("/properties")
		{
			properties.GET("/:id/review-eligibility", tenant, propertyHandler.ReviewEligibility)
			properties.PUT("/:id/available", tenant, propertyHandler.MarkAvailable)
		}

		eventLogs := authRequired.Group("/event-logs")
		{
			eventLogs.GET("/my-activity", eventLogHandler.MyActivity)
			eventLogs.GET("", admin, eventLogHandler.List)
			eventLogs.GET("/stats", admin, eventLogHandler.Stats)
			eventLogs.DELETE("/old", admin, eventLogHandler.PurgeOld)
		}
	}

	return r
}

// SetupServiceRouter configures the internal service Gin engine: a health check and a shutdown hook.
func SetupServiceRouter(shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/shutdown", func(c *gin.Context) {
		slog.Info("Received shutdown command via service API")
		c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
		select {
		case shutdownChan <- struct{}{}:
		default:
			slog.Warn("Shutdown channel already signaled")
		}
	})
	return r
}
