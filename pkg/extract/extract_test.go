package extract

import (
	"reflect"
	"testing"

	"github.com/parley-ai/parley/backend/pkg/common"
)

func TestResult_Merge(t *testing.T) {
	a := &Result{
		Topics:     []common.TopicMention{{SegmentIndex: 0, Name: "technology", Category: "technology", Score: 1}},
		Sentiments: []common.SentimentScore{{SegmentIndex: 0, Label: SentimentNeutral}},
	}
	b := &Result{
		Topics:       []common.TopicMention{{SegmentIndex: 1, Name: "business", Category: "business", Score: 2}},
		Entities:     []common.EntityMention{{SegmentIndex: 1, Value: "a@b.com", Type: "email"}},
		Interactions: []common.Interaction{{FromSpeaker: "alice", ToSpeaker: "bob"}},
	}

	a.Merge(b)
	a.Merge(nil)

	if len(a.Topics) != 2 {
		t.Errorf("merged topics = %d, want 2", len(a.Topics))
	}
	if len(a.Entities) != 1 {
		t.Errorf("merged entities = %d, want 1", len(a.Entities))
	}
	if len(a.Sentiments) != 1 {
		t.Errorf("merged sentiments = %d, want 1", len(a.Sentiments))
	}
	if len(a.Interactions) != 1 {
		t.Errorf("merged interactions = %d, want 1", len(a.Interactions))
	}
	if !reflect.DeepEqual(a.Topics[1], b.Topics[0]) {
		t.Errorf("merged topic = %v, want %v", a.Topics[1], b.Topics[0])
	}
}

func TestNewRegistry_RuleBasedOnly(t *testing.T) {
	registry, err := NewRegistry(NewRegistryParams{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	for _, category := range Categories {
		rule := registry.RuleBased(category)
		if rule == nil {
			t.Errorf("RuleBased(%s) = nil, want extractor", category)
			continue
		}
		if rule.Category() != category {
			t.Errorf("RuleBased(%s).Category() = %s", category, rule.Category())
		}
		if registry.ModelBased(category) != nil {
			t.Errorf("ModelBased(%s) without AI client = non-nil", category)
		}
	}
}

func TestNewRegistry_WithAIClient(t *testing.T) {
	registry, err := NewRegistry(NewRegistryParams{
		AIClient: &mockAIClient{payload: `{}`},
		Model:    modelTestParams,
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	for _, category := range Categories {
		model := registry.ModelBased(category)
		if model == nil {
			t.Errorf("ModelBased(%s) = nil, want extractor", category)
			continue
		}
		if model.Category() != category {
			t.Errorf("ModelBased(%s).Category() = %s", category, model.Category())
		}
	}
}

func TestNewRegistry_InvalidEntityPattern(t *testing.T) {
	_, err := NewRegistry(NewRegistryParams{
		EntityPatterns: []EntityPattern{{Type: "broken", Patterns: []string{"["}}},
	})
	if err == nil {
		t.Error("NewRegistry() expected error for invalid pattern, got nil")
	}
}
