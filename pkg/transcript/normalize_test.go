package transcript

import (
	"testing"

	"github.com/parley-ai/parley/backend/pkg/common"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		raw         []common.RawSegment
		wantCount   int
		wantSkipped int
	}{
		{
			name:        "empty input",
			raw:         []common.RawSegment{},
			wantCount:   0,
			wantSkipped: 0,
		},
		{
			name: "all valid",
			raw: []common.RawSegment{
				{SpeakerLabel: "alice", StartTime: 0, EndTime: 2, Text: "Hello"},
				{SpeakerLabel: "bob", StartTime: 2, EndTime: 4, Text: "Hi there"},
			},
			wantCount:   2,
			wantSkipped: 0,
		},
		{
			name: "end before start skipped",
			raw: []common.RawSegment{
				{SpeakerLabel: "alice", StartTime: 0, EndTime: 2, Text: "Hello"},
				{SpeakerLabel: "bob", StartTime: 5, EndTime: 3, Text: "Broken"},
				{SpeakerLabel: "alice", StartTime: 4, EndTime: 6, Text: "Still here"},
			},
			wantCount:   2,
			wantSkipped: 1,
		},
		{
			name: "empty text skipped",
			raw: []common.RawSegment{
				{SpeakerLabel: "alice", StartTime: 0, EndTime: 2, Text: "   \n  "},
				{SpeakerLabel: "bob", StartTime: 2, EndTime: 4, Text: "Hi"},
			},
			wantCount:   1,
			wantSkipped: 1,
		},
		{
			name: "non-monotonic start skipped",
			raw: []common.RawSegment{
				{SpeakerLabel: "alice", StartTime: 4, EndTime: 6, Text: "Later"},
				{SpeakerLabel: "bob", StartTime: 1, EndTime: 3, Text: "Earlier"},
			},
			wantCount:   1,
			wantSkipped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, skipped := Normalize("conv-1", tt.raw)
			if len(segments) != tt.wantCount {
				t.Errorf("Normalize() returned %d segments, want %d", len(segments), tt.wantCount)
			}
			if len(skipped) != tt.wantSkipped {
				t.Errorf("Normalize() skipped %d segments, want %d", len(skipped), tt.wantSkipped)
			}
		})
	}
}

func TestNormalize_IndexesAndIDs(t *testing.T) {
	raw := []common.RawSegment{
		{SpeakerLabel: "alice", StartTime: 0, EndTime: 2, Text: "First"},
		{SpeakerLabel: "bob", StartTime: 3, EndTime: 1, Text: "Invalid"},
		{SpeakerLabel: "bob", StartTime: 2, EndTime: 4, Text: "Second"},
	}

	segments, _ := Normalize("conv-1", raw)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	for i, s := range segments {
		if s.Index != i {
			t.Errorf("segment %d has index %d", i, s.Index)
		}
		if s.ID != common.SegmentID("conv-1", i) {
			t.Errorf("segment %d has id %q, want %q", i, s.ID, common.SegmentID("conv-1", i))
		}
		if s.ConversationID != "conv-1" {
			t.Errorf("segment %d has conversation id %q", i, s.ConversationID)
		}
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := []common.RawSegment{
		{SpeakerLabel: "alice", StartTime: 0, EndTime: 2, Text: "Hello  world"},
		{SpeakerLabel: "", StartTime: 2, EndTime: 4, Text: "No label"},
	}

	first, _ := Normalize("conv-9", raw)
	second, _ := Normalize("conv-9", raw)

	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("segment %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}

	if first[1].SpeakerID != UnknownSpeaker {
		t.Errorf("expected unlabeled segment to get speaker %q, got %q", UnknownSpeaker, first[1].SpeakerID)
	}
	if first[0].Text != "Hello world" {
		t.Errorf("expected whitespace collapsed, got %q", first[0].Text)
	}
}
