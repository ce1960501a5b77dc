package extract

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/parley-ai/parley/backend/pkg/ai"
	"github.com/parley-ai/parley/backend/pkg/common"
)

// mockAIClient replays a canned JSON payload into the response struct of
// GenerateCompletionWithFormat, or fails with err when set.
type mockAIClient struct {
	payload string
	err     error
	calls   int
}

func (m *mockAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.payload, nil
}

func (m *mockAIClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return json.Unmarshal([]byte(m.payload), out)
}

func (m *mockAIClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	return nil
}

func (m *mockAIClient) ResetMetrics() {}

func (m *mockAIClient) GetMetrics() ai.ModelMetrics {
	return ai.ModelMetrics{}
}

var modelTestParams = ModelParams{Model: "test-model", Temperature: 0.1, MaxTokens: 2048}

func TestTopicModelExtractor(t *testing.T) {
	segments := []common.Segment{
		segment(3, "alice", "we should migrate the billing system"),
		segment(4, "bob", "agreed, next sprint"),
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
		want    []common.TopicMention
	}{
		{
			name:    "valid response",
			payload: `{"topics":[{"segment_index":3,"name":"billing migration","category":"technology"}]}`,
			want: []common.TopicMention{
				{SegmentIndex: 3, SpeakerID: "alice", Name: "billing migration", Category: "technology", Score: 1.0},
			},
		},
		{
			name:    "empty response",
			payload: `{"topics":[]}`,
			want:    nil,
		},
		{
			name:    "index outside batch fails whole batch",
			payload: `{"topics":[{"segment_index":3,"name":"billing","category":"technology"},{"segment_index":99,"name":"other","category":"technology"}]}`,
			wantErr: true,
		},
		{
			name:    "unknown category fails whole batch",
			payload: `{"topics":[{"segment_index":3,"name":"billing","category":"gossip"}]}`,
			wantErr: true,
		},
		{
			name:    "empty name fails whole batch",
			payload: `{"topics":[{"segment_index":3,"name":"  ","category":"technology"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockAIClient{payload: tt.payload}
			extractor := NewTopicModelExtractor(client, modelTestParams, []string{"technology", "business"})

			res, err := extractor.Extract(context.Background(), segments)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Extract() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(res.Topics, tt.want) {
				t.Errorf("Extract() topics = %v, want %v", res.Topics, tt.want)
			}
		})
	}
}

func TestEntityModelExtractor(t *testing.T) {
	segments := []common.Segment{
		segment(0, "alice", "send it to a@b.com by friday"),
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
		want    []common.EntityMention
	}{
		{
			name:    "valid response",
			payload: `{"entities":[{"segment_index":0,"value":"a@b.com","type":"email"}]}`,
			want: []common.EntityMention{
				{SegmentIndex: 0, Value: "a@b.com", Type: "email"},
			},
		},
		{
			name:    "unknown type fails whole batch",
			payload: `{"entities":[{"segment_index":0,"value":"friday","type":"weekday"}]}`,
			wantErr: true,
		},
		{
			name:    "index outside batch fails whole batch",
			payload: `{"entities":[{"segment_index":7,"value":"a@b.com","type":"email"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockAIClient{payload: tt.payload}
			extractor := NewEntityModelExtractor(client, modelTestParams, []string{"email", "phone"})

			res, err := extractor.Extract(context.Background(), segments)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Extract() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(res.Entities, tt.want) {
				t.Errorf("Extract() entities = %v, want %v", res.Entities, tt.want)
			}
		})
	}
}

func TestSentimentModelExtractor(t *testing.T) {
	segments := []common.Segment{
		segment(0, "alice", "this went really well"),
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
		want    []common.SentimentScore
	}{
		{
			name:    "valid response",
			payload: `{"sentiments":[{"segment_index":0,"label":"positive","score":0.8,"intensity":0.5}]}`,
			want: []common.SentimentScore{
				{SegmentIndex: 0, Label: "positive", Score: 0.8, Intensity: 0.5},
			},
		},
		{
			name:    "unknown label fails whole batch",
			payload: `{"sentiments":[{"segment_index":0,"label":"ecstatic","score":0.8,"intensity":0.5}]}`,
			wantErr: true,
		},
		{
			name:    "score out of range fails whole batch",
			payload: `{"sentiments":[{"segment_index":0,"label":"positive","score":1.5,"intensity":0.5}]}`,
			wantErr: true,
		},
		{
			name:    "intensity out of range fails whole batch",
			payload: `{"sentiments":[{"segment_index":0,"label":"positive","score":0.8,"intensity":-0.1}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockAIClient{payload: tt.payload}
			extractor := NewSentimentModelExtractor(client, modelTestParams)

			res, err := extractor.Extract(context.Background(), segments)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Extract() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(res.Sentiments, tt.want) {
				t.Errorf("Extract() sentiments = %v, want %v", res.Sentiments, tt.want)
			}
		})
	}
}

func TestRelationshipModelExtractor(t *testing.T) {
	segments := []common.Segment{
		segment(0, "alice", "can you take this one"),
		segment(1, "bob", "sure, on it"),
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
		want    []common.Interaction
	}{
		{
			name:    "valid response",
			payload: `{"interactions":[{"from_speaker":"alice","to_speaker":"bob"}]}`,
			want: []common.Interaction{
				{FromSpeaker: "alice", ToSpeaker: "bob"},
			},
		},
		{
			name:    "unknown speaker fails whole batch",
			payload: `{"interactions":[{"from_speaker":"alice","to_speaker":"carol"}]}`,
			wantErr: true,
		},
		{
			name:    "self interaction fails whole batch",
			payload: `{"interactions":[{"from_speaker":"bob","to_speaker":"bob"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockAIClient{payload: tt.payload}
			extractor := NewRelationshipModelExtractor(client, modelTestParams)

			res, err := extractor.Extract(context.Background(), segments)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Extract() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(res.Interactions, tt.want) {
				t.Errorf("Extract() interactions = %v, want %v", res.Interactions, tt.want)
			}
		})
	}
}

func TestModelExtractor_ClientErrorPropagates(t *testing.T) {
	wantErr := errors.New("backend unavailable")
	client := &mockAIClient{err: wantErr}
	extractor := NewTopicModelExtractor(client, modelTestParams, []string{"technology"})

	_, err := extractor.Extract(context.Background(), []common.Segment{segment(0, "alice", "hi")})
	if !errors.Is(err, wantErr) {
		t.Errorf("Extract() error = %v, want %v", err, wantErr)
	}
}
