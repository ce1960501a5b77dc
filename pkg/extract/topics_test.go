package extract

import (
	"context"
	"reflect"
	"testing"

	"github.com/parley-ai/parley/backend/pkg/common"
)

func TestTopicKeywordExtractor(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []common.TopicMention
	}{
		{
			name: "no keywords",
			text: "hello there, how are you doing",
			want: nil,
		},
		{
			name: "single category",
			text: "the software runs on our new platform",
			want: []common.TopicMention{
				{SegmentIndex: 0, SpeakerID: "alice", Name: "technology", Category: "technology", Score: 2},
			},
		},
		{
			name: "highest score wins",
			text: "the client budget and revenue strategy beat the software",
			want: []common.TopicMention{
				{SegmentIndex: 0, SpeakerID: "alice", Name: "business", Category: "business", Score: 4},
			},
		},
		{
			name: "tie resolves to first category in sorted order",
			text: "family dinner after the sprint release",
			want: []common.TopicMention{
				{SegmentIndex: 0, SpeakerID: "alice", Name: "personal", Category: "personal", Score: 2},
			},
		},
	}

	extractor := NewTopicKeywordExtractor(DefaultTopicKeywords())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := extractor.Extract(context.Background(), []common.Segment{segment(0, "alice", tt.text)})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(res.Topics, tt.want) {
				t.Errorf("Extract() topics = %v, want %v", res.Topics, tt.want)
			}
		})
	}
}

func TestTopicKeywordExtractor_MultipleSegments(t *testing.T) {
	extractor := NewTopicKeywordExtractor(DefaultTopicKeywords())

	res, err := extractor.Extract(context.Background(), []common.Segment{
		segment(0, "alice", "the agenda for this meeting has one decision"),
		segment(1, "bob", "nothing topical here"),
		segment(2, "alice", "our vacation plans for the weekend"),
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := []common.TopicMention{
		{SegmentIndex: 0, SpeakerID: "alice", Name: "meeting", Category: "meeting", Score: 2},
		{SegmentIndex: 2, SpeakerID: "alice", Name: "personal", Category: "personal", Score: 2},
	}
	if !reflect.DeepEqual(res.Topics, want) {
		t.Errorf("Extract() topics = %v, want %v", res.Topics, want)
	}
}
