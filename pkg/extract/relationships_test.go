package extract

import (
	"context"
	"reflect"
	"testing"

	"github.com/parley-ai/parley/backend/pkg/common"
)

func timedSegment(index int, speaker string, start, end float64) common.Segment {
	s := segment(index, speaker, "some words")
	s.StartTime = start
	s.EndTime = end
	return s
}

func TestInteractionRuleExtractor(t *testing.T) {
	tests := []struct {
		name     string
		segments []common.Segment
		want     []common.Interaction
	}{
		{
			name:     "empty",
			segments: nil,
			want:     nil,
		},
		{
			name: "single speaker never interacts",
			segments: []common.Segment{
				timedSegment(0, "alice", 0, 4),
				timedSegment(1, "alice", 5, 9),
			},
			want: nil,
		},
		{
			name: "adjacent speakers within gap",
			segments: []common.Segment{
				timedSegment(0, "alice", 0, 4),
				timedSegment(1, "bob", 6, 10),
				timedSegment(2, "alice", 12, 15),
			},
			want: []common.Interaction{
				{FromSpeaker: "alice", ToSpeaker: "bob"},
				{FromSpeaker: "bob", ToSpeaker: "alice"},
			},
		},
		{
			name: "gap too large breaks the interaction",
			segments: []common.Segment{
				timedSegment(0, "alice", 0, 4),
				timedSegment(1, "bob", 20, 24),
			},
			want: nil,
		},
		{
			name: "gap exactly at the bound counts",
			segments: []common.Segment{
				timedSegment(0, "alice", 0, 4),
				timedSegment(1, "bob", 14, 18),
			},
			want: []common.Interaction{
				{FromSpeaker: "alice", ToSpeaker: "bob"},
			},
		},
	}

	extractor := NewInteractionRuleExtractor()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := extractor.Extract(context.Background(), tt.segments)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(res.Interactions, tt.want) {
				t.Errorf("Extract() interactions = %v, want %v", res.Interactions, tt.want)
			}
		})
	}
}

func TestInteractionRuleExtractor_OrdersByIndex(t *testing.T) {
	extractor := NewInteractionRuleExtractor()

	// Segments arrive out of order; adjacency follows the index order.
	res, err := extractor.Extract(context.Background(), []common.Segment{
		timedSegment(1, "bob", 5, 9),
		timedSegment(0, "alice", 0, 4),
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := []common.Interaction{{FromSpeaker: "alice", ToSpeaker: "bob"}}
	if !reflect.DeepEqual(res.Interactions, want) {
		t.Errorf("Extract() interactions = %v, want %v", res.Interactions, want)
	}
}
