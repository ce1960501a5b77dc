package server

import (
	"github.com/parley-ai/parley/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Derivation routes
	apiRoutes.POST("/graph/conversations", routes.QueueConversationHandler)
	apiRoutes.GET("/graph/conversations/:id", routes.GetConversationGraphHandler)
	apiRoutes.GET("/graph/conversations/:id/timeline", routes.GetConversationTimelineHandler)
	apiRoutes.GET("/graph/conversations/:id/runs", routes.ListConversationRunsHandler)
	apiRoutes.GET("/graph/conversations/:id/speakers/:speaker_id/network", routes.GetSpeakerNetworkHandler)

	// Run bookkeeping routes
	apiRoutes.GET("/jobs/:correlation_id", routes.GetRunHandler)
}
