package routes

import (
	"net/http"
	"sort"

	"github.com/parley-ai/parley/backend/internal/server/middleware"
	"github.com/parley-ai/parley/backend/pkg/graph"
	"github.com/parley-ai/parley/backend/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

type graphNode struct {
	Key   string         `json:"key"`
	Label string         `json:"label"`
	Props map[string]any `json:"props"`
}

type graphEdge struct {
	From  string         `json:"from"`
	To    string         `json:"to"`
	Type  string         `json:"type"`
	Props map[string]any `json:"props"`
}

type subgraphResponse struct {
	Message string      `json:"message"`
	Nodes   []graphNode `json:"nodes,omitempty"`
	Edges   []graphEdge `json:"edges,omitempty"`
}

func subgraphToResponse(sub *store.Subgraph) subgraphResponse {
	resp := subgraphResponse{
		Message: "Subgraph found",
		Nodes:   make([]graphNode, 0, len(sub.Nodes)),
		Edges:   make([]graphEdge, 0, len(sub.Edges)),
	}
	for _, n := range sub.Nodes {
		resp.Nodes = append(resp.Nodes, graphNode{
			Key:   n.Key,
			Label: n.Label,
			Props: n.Props,
		})
	}
	for _, e := range sub.Edges {
		resp.Edges = append(resp.Edges, graphEdge{
			From:  e.FromKey,
			To:    e.ToKey,
			Type:  e.Type,
			Props: e.Props,
		})
	}
	return resp
}

// propInt reads an integer property regardless of whether it came from the
// in-memory store (int) or the Neo4j driver (int64).
func propInt(props map[string]any, key string) int64 {
	switch v := props[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func GetConversationGraphHandler(c echo.Context) error {
	type getConversationGraphParams struct {
		ConversationID string `param:"id" validate:"required"`
		MaxHops        int    `query:"max_hops" validate:"omitempty,min=0,max=5"`
	}

	params := new(getConversationGraphParams)
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
	maxHops := params.MaxHops
	if maxHops == 0 {
		maxHops = 2
	}

	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.GraphStore

	sub, err := graphStore.ReadSubgraph(ctx, graph.ConversationKey(params.ConversationID), maxHops)
	if err != nil {
		return c.JSON(http.StatusNotFound, subgraphResponse{
			Message: "Conversation not found",
		})
	}

	return c.JSON(http.StatusOK, subgraphToResponse(sub))
}

func GetConversationTimelineHandler(c echo.Context) error {
	type getTimelineParams struct {
		ConversationID string `param:"id" validate:"required"`
	}

	type timelineSegment struct {
		Key       string  `json:"key"`
		Index     int64   `json:"index"`
		SpeakerID string  `json:"speaker_id"`
		StartTime float64 `json:"start_time"`
		EndTime   float64 `json:"end_time"`
		Text      string  `json:"text"`
		Sentiment any     `json:"sentiment,omitempty"`
	}

	type getTimelineResponse struct {
		Message  string            `json:"message"`
		Segments []timelineSegment `json:"segments,omitempty"`
	}

	params := new(getTimelineParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getTimelineResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getTimelineResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	graphStore := c.(*middleware.AppContext).App.GraphStore

	sub, err := graphStore.ReadSubgraph(ctx, graph.ConversationKey(params.ConversationID), 1)
	if err != nil {
		return c.JSON(http.StatusNotFound, getTimelineResponse{
			Message: "Conversation not found",
		})
	}

	segments := make([]timelineSegment, 0)
	for _, n := range sub.Nodes {
		if n.Label != store.LabelSegment {
			continue
		}
		seg := timelineSegment{
			Key:   n.Key,
			Index: propInt(n.Props, "index"),
		}
		if v, ok := n.Props["speaker_id"].(string); ok {
			seg.SpeakerID = v
		}
		if v, ok := n.Props["start_time"].(float64); ok {
			seg.StartTime = v
		}
		if v, ok := n.Props["end_time"].(float64); ok {
			seg.EndTime = v
		}
		if v, ok := n.Props["text"].(string); ok {
			seg.Text = v
		}
		if label, ok := n.Props["sentiment_label"]; ok {
			seg.Sentiment = map[string]any{
				"label":     label,
				"score":     n.Props["sentiment_score"],
				"intensity": n.Props["sentiment_intensity"],
			}
		}
		segments = append(segments, seg)
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Index < segments[j].Index
	})

	return c.JSON(http.StatusOK, getTimelineResponse{
		Message:  "Timeline found",
		Segments: segments,
	})
}
