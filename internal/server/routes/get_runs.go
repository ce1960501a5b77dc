package routes

import (
	"errors"
	"net/http"

	"github.com/parley-ai/parley/backend/internal/jobs"
	"github.com/parley-ai/parley/backend/internal/server/middleware"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetRunHandler(c echo.Context) error {
	type getRunParams struct {
		CorrelationID string `param:"correlation_id" validate:"required"`
	}

	type getRunResponse struct {
		Message string    `json:"message"`
		Run     *jobs.Run `json:"data,omitempty"`
	}

	params := new(getRunParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getRunResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getRunResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	jobsStore := c.(*middleware.AppContext).App.Jobs

	run, err := jobsStore.GetRun(ctx, params.CorrelationID)
	if err != nil {
		if errors.Is(err, jobs.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, getRunResponse{
				Message: "Run not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, getRunResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getRunResponse{
		Message: "Run found",
		Run:     run,
	})
}

func ListConversationRunsHandler(c echo.Context) error {
	type listRunsParams struct {
		ConversationID string `param:"id" validate:"required"`
		Limit          int    `query:"limit" validate:"omitempty,min=1,max=100"`
	}

	type listRunsResponse struct {
		Message string     `json:"message"`
		Runs    []jobs.Run `json:"data,omitempty"`
	}

	params := new(listRunsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, listRunsResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, listRunsResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	jobsStore := c.(*middleware.AppContext).App.Jobs

	runs, err := jobsStore.ListRunsByConversation(ctx, params.ConversationID, params.Limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, listRunsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, listRunsResponse{
		Message: "Runs found",
		Runs:    runs,
	})
}
