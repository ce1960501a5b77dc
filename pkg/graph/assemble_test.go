package graph

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/store"
	"github.com/parley-ai/parley/backend/pkg/store/memory"
)

func newMemoryStore(t *testing.T) *memory.GraphMemoryStore {
	t.Helper()
	return memory.NewGraphMemoryStore()
}

func rawConversation() []common.RawSegment {
	return []common.RawSegment{
		{SpeakerLabel: "alice", StartTime: 0, EndTime: 4, Text: "the budget for this project looks great"},
		{SpeakerLabel: "bob", StartTime: 5, EndTime: 9, Text: "agreed, send the numbers to a@b.com"},
		{SpeakerLabel: "alice", StartTime: 10, EndTime: 8, Text: "this segment is invalid"},
		{SpeakerLabel: "alice", StartTime: 10, EndTime: 14, Text: "will do after the meeting"},
	}
}

func TestAssembler_Process(t *testing.T) {
	s := newMemoryStore(t)
	var statuses []Status
	assembler, err := NewAssembler(NewAssemblerParams{
		Config:        DefaultConfig(),
		Store:         s,
		OnStateChange: func(status Status) { statuses = append(statuses, status) },
	})
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}

	summary, err := assembler.Process(context.Background(), "conv-1", rawConversation())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if summary.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", summary.Status, StatusCompleted)
	}
	if len(summary.DegradedCategories) != 0 {
		t.Errorf("degraded categories = %v, want none", summary.DegradedCategories)
	}
	if summary.NodeCount == 0 || summary.EdgeCount == 0 {
		t.Errorf("summary counts = %d nodes / %d edges, want > 0", summary.NodeCount, summary.EdgeCount)
	}

	wantStatuses := []Status{
		StatusQueued, StatusNormalizing, StatusExtracting,
		StatusBuilding, StatusPersisting, StatusCompleted,
	}
	if !reflect.DeepEqual(statuses, wantStatuses) {
		t.Errorf("statuses = %v, want %v", statuses, wantStatuses)
	}

	// The invalid segment was skipped: three segments persisted.
	if _, ok := s.Node(common.SegmentID("conv-1", 2)); !ok {
		t.Error("third accepted segment missing")
	}
	if _, ok := s.Node(common.SegmentID("conv-1", 3)); ok {
		t.Error("skipped segment must not shift accepted indexes past 2")
	}
	conv, ok := s.Node(ConversationKey("conv-1"))
	if !ok {
		t.Fatal("conversation node missing")
	}
	if conv.Props["segment_count"] != 3 {
		t.Errorf("segment_count = %v, want 3", conv.Props["segment_count"])
	}
}

func TestAssembler_Process_Idempotent(t *testing.T) {
	s := newMemoryStore(t)
	assembler, err := NewAssembler(NewAssemblerParams{Config: DefaultConfig(), Store: s})
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}

	first, err := assembler.Process(context.Background(), "conv-1", rawConversation())
	if err != nil {
		t.Fatalf("first Process() error = %v", err)
	}
	second, err := assembler.Process(context.Background(), "conv-1", rawConversation())
	if err != nil {
		t.Fatalf("second Process() error = %v", err)
	}

	if first.NodeCount == 0 {
		t.Error("first run created no nodes")
	}
	if second.NodeCount != 0 || second.EdgeCount != 0 {
		t.Errorf("second run created %d nodes / %d edges, want 0 / 0", second.NodeCount, second.EdgeCount)
	}
	if second.Status != StatusCompleted {
		t.Errorf("second run status = %s, want %s", second.Status, StatusCompleted)
	}
}

func TestAssembler_Process_DegradedCompleted(t *testing.T) {
	degradedStore := newMemoryStore(t)
	assembler, err := NewAssembler(NewAssemblerParams{
		Config:   allModelConfig(),
		AIClient: &stubAIClient{err: errors.New("model backend down")},
		Store:    degradedStore,
	})
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}

	summary, err := assembler.Process(context.Background(), "conv-1", rawConversation())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if summary.Status != StatusDegradedCompleted {
		t.Errorf("status = %s, want %s", summary.Status, StatusDegradedCompleted)
	}
	if len(summary.DegradedCategories) != 4 {
		t.Errorf("degraded categories = %v, want all four", summary.DegradedCategories)
	}

	// The degraded graph must equal the graph of a rule-based-only run.
	ruleStore := newMemoryStore(t)
	ruleAssembler, err := NewAssembler(NewAssemblerParams{Config: DefaultConfig(), Store: ruleStore})
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}
	if _, err := ruleAssembler.Process(context.Background(), "conv-1", rawConversation()); err != nil {
		t.Fatalf("rule-based Process() error = %v", err)
	}

	degradedSub, err := degradedStore.ReadSubgraph(context.Background(), ConversationKey("conv-1"), 3)
	if err != nil {
		t.Fatalf("ReadSubgraph() error = %v", err)
	}
	ruleSub, err := ruleStore.ReadSubgraph(context.Background(), ConversationKey("conv-1"), 3)
	if err != nil {
		t.Fatalf("ReadSubgraph() error = %v", err)
	}
	if !reflect.DeepEqual(degradedSub, ruleSub) {
		t.Error("degraded graph differs from rule-based graph")
	}
}

// failingStore fails edge persistence to drive the assembler into the
// failed state.
type failingStore struct {
	*memory.GraphMemoryStore
}

func (s *failingStore) UpsertEdges(ctx context.Context, edges []store.Edge) (int, error) {
	return 0, &common.PersistenceError{Op: "upsert_edges", Err: errors.New("connection lost")}
}

func TestAssembler_Process_PersistenceFailure(t *testing.T) {
	var statuses []Status
	assembler, err := NewAssembler(NewAssemblerParams{
		Config:        DefaultConfig(),
		Store:         &failingStore{GraphMemoryStore: newMemoryStore(t)},
		OnStateChange: func(status Status) { statuses = append(statuses, status) },
	})
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}

	_, err = assembler.Process(context.Background(), "conv-1", rawConversation())
	var persistErr *common.PersistenceError
	if !errors.As(err, &persistErr) {
		t.Fatalf("Process() error = %v, want *common.PersistenceError", err)
	}
	if len(statuses) == 0 || statuses[len(statuses)-1] != StatusFailed {
		t.Errorf("final status = %v, want %s", statuses, StatusFailed)
	}
}

func TestNewAssembler_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWorkers = 0

	_, err := NewAssembler(NewAssemblerParams{Config: cfg, Store: newMemoryStore(t)})
	var confErr *common.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Errorf("NewAssembler() error = %v, want *common.ConfigurationError", err)
	}
}

func TestNewAssembler_ModelWithoutClient(t *testing.T) {
	_, err := NewAssembler(NewAssemblerParams{Config: allModelConfig(), Store: newMemoryStore(t)})
	var confErr *common.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Errorf("NewAssembler() error = %v, want *common.ConfigurationError", err)
	}
}
