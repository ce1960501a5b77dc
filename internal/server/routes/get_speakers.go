package routes

import (
	"net/http"

	"github.com/parley-ai/parley/backend/internal/server/middleware"
	"github.com/parley-ai/parley/backend/pkg/graph"
	"github.com/parley-ai/parley/backend/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetSpeakerNetworkHandler returns who a speaker talked to in one
// conversation, together with the topics they discussed.
func GetSpeakerNetworkHandler(c echo.Context) error {
	type getSpeakerNetworkParams struct {
		ConversationID string `param:"id" validate:"required"`
		SpeakerID      string `param:"speaker_id" validate:"required"`
	}

	params := new(getSpeakerNetworkParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, subgraphResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, subgraphResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.GraphStore

	speakerKey := graph.SpeakerKey(params.ConversationID, params.SpeakerID)
	sub, err := graphStore.ReadSubgraph(ctx, speakerKey, 1)
	if err != nil {
		return c.JSON(http.StatusNotFound, subgraphResponse{
			Message: "Speaker not found",
		})
	}

	// Segment nodes dominate one-hop speaker neighborhoods and drown out
	// the interaction structure, so they are filtered from the response.
	filtered := &store.Subgraph{}
	for _, n := range sub.Nodes {
		if n.Label == store.LabelSegment {
			continue
		}
		filtered.Nodes = append(filtered.Nodes, n)
	}
	for _, e := range sub.Edges {
		if e.Type == store.EdgePartOf || e.Type == store.EdgeFollows {
			continue
		}
		filtered.Edges = append(filtered.Edges, e)
	}

	return c.JSON(http.StatusOK, subgraphToResponse(filtered))
}
