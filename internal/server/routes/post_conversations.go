package routes

import (
	"encoding/json"
	"net/http"

	"github.com/parley-ai/parley/backend/internal/queue"
	"github.com/parley-ai/parley/backend/internal/server/middleware"
	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

func QueueConversationHandler(c echo.Context) error {
	type queueConversationParams struct {
		ConversationID string              `json:"conversation_id" validate:"required"`
		Segments       []common.RawSegment `json:"segments" validate:"required,min=1"`
	}

	type queueConversationResponse struct {
		Message       string `json:"message"`
		CorrelationID string `json:"correlation_id,omitempty"`
	}

	params := new(queueConversationParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, queueConversationResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, queueConversationResponse{
			Message: "Invalid request params",
		})
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, queueConversationResponse{
			Message: "Internal server error",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	if err := app.Jobs.CreateRun(ctx, correlationID, params.ConversationID); err != nil {
		logger.Error("[Server] Failed to create graph run",
			"conversation_id", params.ConversationID,
			"err", err,
		)
		return c.JSON(http.StatusInternalServerError, queueConversationResponse{
			Message: "Internal server error",
		})
	}

	msg := queue.QueueConversationMsg{
		Message:        "derive_graph",
		ConversationID: params.ConversationID,
		CorrelationID:  correlationID,
		Segments:       params.Segments,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, queueConversationResponse{
			Message: "Internal server error",
		})
	}

	if err := queue.PublishFIFO(app.Queue, queue.GraphQueue, data); err != nil {
		logger.Error("[Server] Failed to publish conversation",
			"conversation_id", params.ConversationID,
			"correlation_id", correlationID,
			"err", err,
		)
		return c.JSON(http.StatusInternalServerError, queueConversationResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, queueConversationResponse{
		Message:       "Conversation queued",
		CorrelationID: correlationID,
	})
}
