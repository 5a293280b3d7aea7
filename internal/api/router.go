package api

import (
	"github.com/complytics/memegen/internal/api/handler"
	"github.com/complytics/memegen/internal/api/middleware"
	"github.com/complytics/memegen/internal/service"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	pipeline *service.Pipeline,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	// Set Gin mode
	switch mode {
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
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	sessionHandler := handler.NewSessionHandler(pipeline)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Sessions (wizard stages as resources)
		v1.POST("/sessions", sessionHandler.CreateSession)
		v1.GET("/sessions/:id", sessionHandler.GetSession)
		v1.PUT("/sessions/:id/profile", sessionHandler.SetProfile)

		// Idea table
		v1.POST("/sessions/:id/ideas", sessionHandler.GenerateIdeas)
		v1.GET("/sessions/:id/ideas", sessionHandler.GetIdeas)

		// Memes and export
		v1.POST("/sessions/:id/memes", sessionHandler.GenerateMemes)
		v1.POST("/sessions/:id/export", sessionHandler.Export)
		v1.GET("/sessions/:id/export/workbook", sessionHandler.DownloadWorkbook)
	}

	return r
}
