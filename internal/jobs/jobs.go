package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/parley-ai/parley/backend/pkg/common"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

// ErrRunNotFound is returned when no run exists for a correlation ID.
var ErrRunNotFound = errors.New("graph run not found")

// Run is the bookkeeping record for one conversation derivation.
type Run struct {
	CorrelationID      string    `json:"correlation_id"`
	ConversationID     string    `json:"conversation_id"`
	Status             string    `json:"status"`
	DegradedCategories []string  `json:"degraded_categories"`
	NodeCount          int       `json:"node_count"`
	EdgeCount          int       `json:"edge_count"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Store persists derivation runs in PostgreSQL.
//
// A Store should be created using NewStore.
type Store struct {
	conn pgxIConn
}

// NewStore creates a Store on an existing connection or pool.
func NewStore(conn pgxIConn) *Store {
	return &Store{conn: conn}
}

// CreateRun records a freshly queued derivation. Re-queueing the same
// correlation ID resets the existing run.
func (s *Store) CreateRun(ctx context.Context, correlationID, conversationID string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO graph_runs (correlation_id, conversation_id, status)
		VALUES ($1, $2, 'queued')
		ON CONFLICT (correlation_id) DO UPDATE
		SET conversation_id = EXCLUDED.conversation_id,
		    status = 'queued',
		    degraded_categories = '{}',
		    node_count = 0,
		    edge_count = 0,
		    error_message = NULL,
		    updated_at = now()
	`, correlationID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to create graph run %s: %w", correlationID, err)
	}
	return nil
}

// UpdateRunStatus moves a run to a new processing status.
func (s *Store) UpdateRunStatus(ctx context.Context, correlationID, status string) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE graph_runs
		SET status = $2, updated_at = now()
		WHERE correlation_id = $1
	`, correlationID, status)
	if err != nil {
		return fmt.Errorf("failed to update graph run %s: %w", correlationID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// CompleteRun records the final outcome of a successful derivation.
func (s *Store) CompleteRun(ctx context.Context, correlationID, status string, nodeCount, edgeCount int, degradedCategories []string) error {
	if degradedCategories == nil {
		degradedCategories = []string{}
	}
	tag, err := s.conn.Exec(ctx, `
		UPDATE graph_runs
		SET status = $2,
		    node_count = $3,
		    edge_count = $4,
		    degraded_categories = $5,
		    error_message = NULL,
		    updated_at = now()
		WHERE correlation_id = $1
	`, correlationID, status, nodeCount, edgeCount, degradedCategories)
	if err != nil {
		return fmt.Errorf("failed to complete graph run %s: %w", correlationID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// FailRun marks a run as failed and stores the error message.
func (s *Store) FailRun(ctx context.Context, correlationID string, runErr error) error {
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	tag, err := s.conn.Exec(ctx, `
		UPDATE graph_runs
		SET status = 'failed', error_message = $2, updated_at = now()
		WHERE correlation_id = $1
	`, correlationID, message)
	if err != nil {
		return fmt.Errorf("failed to mark graph run %s as failed: %w", correlationID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun loads the run for a correlation ID.
func (s *Store) GetRun(ctx context.Context, correlationID string) (*Run, error) {
	var run Run
	var errorMessage *string
	err := s.conn.QueryRow(ctx, `
		SELECT correlation_id, conversation_id, status, degraded_categories,
		       node_count, edge_count, error_message, created_at, updated_at
		FROM graph_runs
		WHERE correlation_id = $1
	`, correlationID).Scan(
		&run.CorrelationID,
		&run.ConversationID,
		&run.Status,
		&run.DegradedCategories,
		&run.NodeCount,
		&run.EdgeCount,
		&errorMessage,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, &common.PersistenceError{Op: "get_run", Err: err}
	}
	if errorMessage != nil {
		run.ErrorMessage = *errorMessage
	}
	return &run, nil
}

// ListRunsByConversation loads the runs recorded for one conversation,
// newest first.
func (s *Store) ListRunsByConversation(ctx context.Context, conversationID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(ctx, `
		SELECT correlation_id, conversation_id, status, degraded_categories,
		       node_count, edge_count, error_message, created_at, updated_at
		FROM graph_runs
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, &common.PersistenceError{Op: "list_runs", Err: err}
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var errorMessage *string
		if err := rows.Scan(
			&run.CorrelationID,
			&run.ConversationID,
			&run.Status,
			&run.DegradedCategories,
			&run.NodeCount,
			&run.EdgeCount,
			&errorMessage,
			&run.CreatedAt,
			&run.UpdatedAt,
		); err != nil {
			return nil, &common.PersistenceError{Op: "list_runs", Err: err}
		}
		if errorMessage != nil {
			run.ErrorMessage = *errorMessage
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, &common.PersistenceError{Op: "list_runs", Err: err}
	}
	return runs, nil
}
