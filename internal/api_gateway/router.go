package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/esusu-circle-engine/internal/api_gateway/handler"
	"github.com/esusu-circle-engine/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	groupHandler *handler.GroupHandler,
	requestHandler *handler.RequestHandler,
	contributionHandler *handler.ContributionHandler,
	alertHandler *handler.AlertHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Group lifecycle and live cycle view
		groups := v1.Group("/groups")
		{
			groups.POST("", groupHandler.Create)
			groups.GET("", groupHandler.List)
			groups.GET("/:id", groupHandler.GetByID)
			groups.GET("/:id/status", groupHandler.CycleStatus)

			// Join requests scoped to a group
			groups.POST("/:id/requests", requestHandler.Submit)
			groups.GET("/:id/requests", requestHandler.ListPending)

			// Ledger operations
			groups.POST("/:id/contributions", contributionHandler.Create)
			groups.GET("/:id/contributions", contributionHandler.List)
			groups.GET("/:id/balance", contributionHandler.Balance)

			groups.GET("/:id/alerts", alertHandler.List)
		}

		// Join request review
		requests := v1.Group("/requests")
		{
			requests.POST("/:id/approve", requestHandler.Approve)
			requests.POST("/:id/reject", requestHandler.Reject)
		}

		alerts := v1.Group("/alerts")
		{
			alerts.POST("/:id/read", alertHandler.MarkRead)
		}

		v1.GET("/users/:id/groups", groupHandler.ListByUser)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
