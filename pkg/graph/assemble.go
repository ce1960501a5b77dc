package graph

import (
	"context"

	"github.com/parley-ai/parley/backend/pkg/ai"
	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/extract"
	"github.com/parley-ai/parley/backend/pkg/logger"
	"github.com/parley-ai/parley/backend/pkg/store"
	"github.com/parley-ai/parley/backend/pkg/transcript"
)

// Status is the assembler's processing state for one conversation.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusNormalizing Status = "normalizing"
	StatusExtracting  Status = "extracting"
	StatusBuilding    Status = "building"
	StatusPersisting  Status = "persisting"
	StatusCompleted   Status = "completed"
	// StatusDegradedCompleted means the run finished but at least one
	// category fell back to its rule-based variant.
	StatusDegradedCompleted Status = "degraded-completed"
	StatusFailed            Status = "failed"
)

// Summary is the outcome of deriving one conversation. Node and edge counts
// are the newly created ones, so re-deriving an unchanged conversation
// reports zero of both.
type Summary struct {
	NodeCount          int      `json:"node_count"`
	EdgeCount          int      `json:"edge_count"`
	Status             Status   `json:"status"`
	DegradedCategories []string `json:"degraded_categories"`
}

// Assembler drives one conversation through normalization, extraction,
// graph building and persistence.
//
// An Assembler should be created using NewAssembler.
type Assembler struct {
	cfg           Config
	registry      *extract.Registry
	store         store.GraphStore
	onStateChange func(Status)
}

// NewAssemblerParams defines the configuration for creating an Assembler.
//
// Registry may be nil, in which case one is built from the config and the
// AI client. OnStateChange, when set, is called on every status transition.
type NewAssemblerParams struct {
	Config        Config
	Registry      *extract.Registry
	AIClient      ai.GraphAIClient
	Store         store.GraphStore
	OnStateChange func(Status)
}

// NewAssembler validates the configuration and creates an Assembler.
func NewAssembler(params NewAssemblerParams) (*Assembler, error) {
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}
	if params.Store == nil {
		return nil, &common.ConfigurationError{Field: "store", Reason: "a graph store is required"}
	}

	registry := params.Registry
	if registry == nil {
		if params.Config.NeedsModel() && params.AIClient == nil {
			return nil, &common.ConfigurationError{
				Field:  "ai_client",
				Reason: "a model-based method is configured but no AI client is available",
			}
		}
		var err error
		registry, err = extract.NewRegistry(extract.NewRegistryParams{
			AIClient: params.AIClient,
			Model: extract.ModelParams{
				Model:       params.Config.Model.Model,
				Temperature: params.Config.Model.Temperature,
				MaxTokens:   params.Config.Model.MaxTokens,
			},
		})
		if err != nil {
			return nil, err
		}
	}

	return &Assembler{
		cfg:           params.Config,
		registry:      registry,
		store:         params.Store,
		onStateChange: params.OnStateChange,
	}, nil
}

func (a *Assembler) setStatus(conversationID string, status Status) {
	logger.Info("[Graph] Conversation status changed", "conversation", conversationID, "status", status)
	if a.onStateChange != nil {
		a.onStateChange(status)
	}
}

// Process derives the knowledge graph for one conversation and persists it.
// Malformed segments are skipped; a degraded category downgrades the final
// status, and extraction or persistence failure fails the run.
func (a *Assembler) Process(ctx context.Context, conversationID string, raw []common.RawSegment) (*Summary, error) {
	a.setStatus(conversationID, StatusQueued)

	a.setStatus(conversationID, StatusNormalizing)
	segments, skipped := transcript.Normalize(conversationID, raw)
	if len(skipped) > 0 {
		logger.Warn("[Graph] Skipped invalid segments",
			"conversation", conversationID,
			"skipped", len(skipped),
			"accepted", len(segments),
		)
	}

	a.setStatus(conversationID, StatusExtracting)
	result, degraded, err := runExtraction(ctx, a.cfg, a.registry, segments)
	if err != nil {
		a.setStatus(conversationID, StatusFailed)
		return nil, err
	}

	a.setStatus(conversationID, StatusBuilding)
	nodes, edges := buildGraph(conversationID, segments, result)

	a.setStatus(conversationID, StatusPersisting)
	nodeCount, err := a.store.UpsertNodes(ctx, nodes)
	if err != nil {
		a.setStatus(conversationID, StatusFailed)
		return nil, err
	}
	edgeCount, err := a.store.UpsertEdges(ctx, edges)
	if err != nil {
		a.setStatus(conversationID, StatusFailed)
		return nil, err
	}

	status := StatusCompleted
	degradedCategories := make([]string, 0, len(degraded))
	for _, category := range degraded {
		degradedCategories = append(degradedCategories, string(category))
	}
	if len(degradedCategories) > 0 {
		status = StatusDegradedCompleted
	}
	a.setStatus(conversationID, status)

	return &Summary{
		NodeCount:          nodeCount,
		EdgeCount:          edgeCount,
		Status:             status,
		DegradedCategories: degradedCategories,
	}, nil
}
