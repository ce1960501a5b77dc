package extract

import (
	"context"
	"math"
	"testing"

	"github.com/parley-ai/parley/backend/pkg/common"
)

func TestSentimentLexiconExtractor(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantLabel     string
		wantScore     float64
		wantIntensity float64
	}{
		{
			name:          "positive",
			text:          "this is great, really great work",
			wantLabel:     SentimentPositive,
			wantScore:     1.0,
			wantIntensity: 2.0 / 6.0,
		},
		{
			name:          "negative",
			text:          "terrible outcome, the deploy was broken",
			wantLabel:     SentimentNegative,
			wantScore:     -1.0,
			wantIntensity: 2.0 / 6.0,
		},
		{
			name:          "neutral without matches",
			text:          "the report covers last quarter",
			wantLabel:     SentimentNeutral,
			wantScore:     0.0,
			wantIntensity: 0.0,
		},
		{
			name:          "mixed polarity cancels out",
			text:          "good idea but bad timing",
			wantLabel:     SentimentNeutral,
			wantScore:     0.0,
			wantIntensity: 2.0 / 5.0,
		},
		{
			name:          "punctuation is stripped before matching",
			text:          "great! thanks.",
			wantLabel:     SentimentPositive,
			wantScore:     1.0,
			wantIntensity: 1.0,
		},
	}

	extractor := NewSentimentLexiconExtractor(DefaultSentimentLexicon())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := extractor.Extract(context.Background(), []common.Segment{segment(0, "alice", tt.text)})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if len(res.Sentiments) != 1 {
				t.Fatalf("Extract() returned %d sentiments, want 1", len(res.Sentiments))
			}

			got := res.Sentiments[0]
			if got.SegmentIndex != 0 {
				t.Errorf("SegmentIndex = %d, want 0", got.SegmentIndex)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("Label = %s, want %s", got.Label, tt.wantLabel)
			}
			if math.Abs(got.Score-tt.wantScore) > 1e-9 {
				t.Errorf("Score = %v, want %v", got.Score, tt.wantScore)
			}
			if math.Abs(got.Intensity-tt.wantIntensity) > 1e-9 {
				t.Errorf("Intensity = %v, want %v", got.Intensity, tt.wantIntensity)
			}
		})
	}
}

func TestSentimentLexiconExtractor_ScoresEverySegment(t *testing.T) {
	extractor := NewSentimentLexiconExtractor(DefaultSentimentLexicon())

	res, err := extractor.Extract(context.Background(), []common.Segment{
		segment(0, "alice", "awesome work"),
		segment(1, "bob", "nothing to report"),
		segment(2, "alice", "that is a problem"),
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(res.Sentiments) != 3 {
		t.Fatalf("Extract() returned %d sentiments, want 3", len(res.Sentiments))
	}
	if res.Sentiments[0].Label != SentimentPositive {
		t.Errorf("segment 0 label = %s, want %s", res.Sentiments[0].Label, SentimentPositive)
	}
	if res.Sentiments[1].Label != SentimentNeutral {
		t.Errorf("segment 1 label = %s, want %s", res.Sentiments[1].Label, SentimentNeutral)
	}
	if res.Sentiments[2].Label != SentimentNegative {
		t.Errorf("segment 2 label = %s, want %s", res.Sentiments[2].Label, SentimentNegative)
	}
}
