package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/amanihub/amani/internal/api/handler"
	"github.com/amanihub/amani/internal/api/middleware"
	"github.com/amanihub/amani/internal/config"
	"github.com/amanihub/amani/internal/logger"
	"github.com/amanihub/amani/internal/service"
)

// RouterDeps bundles everything SetupRouter wires into handlers.
type RouterDeps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	ImageJobs *service.ImageJobService
	Reports   *service.ReportService
	Events    *service.EventService
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps) *gin.Engine {
	// Set Gin mode
	switch deps.Config.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  deps.Config.Server.CORS.AllowedOrigins,
		AllowAllOrigins: deps.Config.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Redis)
	imageJobHandler := handler.NewImageJobHandler(deps.ImageJobs)
	reportHandler := handler.NewReportHandler(deps.Reports)
	eventHandler := handler.NewEventHandler(deps.Events)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Image jobs
		v1.POST("/images", imageJobHandler.Upload)
		v1.POST("/images/from-url", imageJobHandler.CreateFromURL)
		v1.GET("/images", imageJobHandler.ListByEntity)
		v1.GET("/images/stats", imageJobHandler.Stats)
		v1.GET("/images/:id", imageJobHandler.Get)
		v1.POST("/images/:id/retry", imageJobHandler.Retry)
		v1.DELETE("/images/:id", imageJobHandler.Delete)

		// Reports
		v1.POST("/reports", reportHandler.Create)
		v1.GET("/reports", reportHandler.List)
		v1.GET("/reports/stale", reportHandler.ListStale)
		v1.GET("/reports/:id", reportHandler.Get)
		v1.POST("/reports/:id/enqueue", reportHandler.Enqueue)
		v1.DELETE("/reports/:id", reportHandler.Delete)

		// Events
		v1.POST("/events", eventHandler.Create)
		v1.GET("/events", eventHandler.List)
		v1.GET("/events/:id", eventHandler.Get)
		v1.DELETE("/events/:id", eventHandler.Delete)

		// Worker callbacks, optionally token-guarded
		callbacks := v1.Group("")
		callbacks.Use(middleware.CallbackAuth(deps.Config.Server.CallbackToken))
		{
			callbacks.PATCH("/images/:id/status", imageJobHandler.UpdateStatus)
			callbacks.PATCH("/reports/:id/result", reportHandler.UpdateResult)
		}
	}

	return r
}
