package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/parley-ai/parley/backend/internal/jobs"
	"github.com/parley-ai/parley/backend/pkg/ai"
	"github.com/parley-ai/parley/backend/pkg/graph"
	"github.com/parley-ai/parley/backend/pkg/logger"
	"github.com/parley-ai/parley/backend/pkg/store"
)

// ProcessGraphMessage derives and persists the knowledge graph for the
// conversation in the message and keeps the bookkeeping run in sync with
// the assembler's state transitions.
func ProcessGraphMessage(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	graphStore store.GraphStore,
	conn *pgxpool.Pool,
	msg string,
) (err error) {
	data := new(QueueConversationMsg)
	if err = json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to unmarshal graph message: %w", err)
	}
	if data.ConversationID == "" {
		return fmt.Errorf("graph message has no conversation_id")
	}

	correlationID := data.CorrelationID
	if correlationID == "" {
		correlationID, err = gonanoid.New()
		if err != nil {
			return err
		}
	}

	jobsStore := jobs.NewStore(conn)
	if err := jobsStore.CreateRun(ctx, correlationID, data.ConversationID); err != nil {
		return err
	}

	defer func() {
		if err == nil {
			return
		}
		failCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if failErr := jobsStore.FailRun(failCtx, correlationID, err); failErr != nil {
			logger.Warn("[Queue] Failed to mark graph run as failed",
				"conversation_id", data.ConversationID,
				"correlation_id", correlationID,
				"err", failErr,
			)
		}
	}()

	assembler, err := graph.NewAssembler(graph.NewAssemblerParams{
		Config:   graph.ConfigFromEnv(),
		AIClient: aiClient,
		Store:    graphStore,
		OnStateChange: func(status graph.Status) {
			if updateErr := jobsStore.UpdateRunStatus(ctx, correlationID, string(status)); updateErr != nil {
				logger.Warn("[Queue] Failed to update graph run status",
					"correlation_id", correlationID,
					"status", status,
					"err", updateErr,
				)
			}
		},
	})
	if err != nil {
		return err
	}

	start := time.Now()
	summary, err := assembler.Process(ctx, data.ConversationID, data.Segments)
	if err != nil {
		return err
	}

	if err := jobsStore.CompleteRun(
		ctx,
		correlationID,
		string(summary.Status),
		summary.NodeCount,
		summary.EdgeCount,
		summary.DegradedCategories,
	); err != nil {
		return err
	}

	logger.Info("[Queue] Conversation graph derived",
		"conversation_id", data.ConversationID,
		"correlation_id", correlationID,
		"status", summary.Status,
		"nodes_created", summary.NodeCount,
		"edges_created", summary.EdgeCount,
		"degraded", summary.DegradedCategories,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
