package api

import (
	"github.com/gin-gonic/gin"
	"gopkg.in/src-d/go-log.v1"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler, logger log.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(logger))

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		datasets := v1.Group("/datasets/:dataset")
		{
			datasets.GET("/summary", handler.GetDatasetSummary)
			datasets.GET("/stats", handler.GetStatsSummary)

			projects := datasets.Group("/projects/:project")
			{
				projects.GET("/summary", handler.GetProjectSummary)
				projects.GET("/bugs", handler.GetProjectBugs)
			}
		}
	}

	return router
}
