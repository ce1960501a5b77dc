package extract

import (
	"context"
	"strings"

	"github.com/parley-ai/parley/backend/pkg/common"
)

// Sentiment labels produced by both strategy variants.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Lexicon holds polarity word lists for rule-based sentiment analysis.
type Lexicon struct {
	Positive []string
	Negative []string
}

// DefaultSentimentLexicon returns the built-in polarity word lists.
func DefaultSentimentLexicon() Lexicon {
	return Lexicon{
		Positive: []string{
			"good", "great", "excellent", "happy", "love", "wonderful", "fantastic",
			"agree", "perfect", "thanks", "awesome", "nice", "glad", "pleased", "success",
		},
		Negative: []string{
			"bad", "terrible", "awful", "hate", "problem", "wrong", "fail", "issue",
			"disagree", "unfortunately", "worried", "angry", "disappointed", "sorry", "broken",
		},
	}
}

// SentimentLexiconExtractor is the rule-based sentiment strategy: polarity
// word counting over a fixed lexicon. It never fails.
type SentimentLexiconExtractor struct {
	lexicon   Lexicon
	threshold float64
}

// NewSentimentLexiconExtractor creates a lexicon-based sentiment extractor.
func NewSentimentLexiconExtractor(lexicon Lexicon) *SentimentLexiconExtractor {
	return &SentimentLexiconExtractor{
		lexicon:   lexicon,
		threshold: 0.1,
	}
}

func (e *SentimentLexiconExtractor) Category() Category {
	return CategorySentiment
}

func (e *SentimentLexiconExtractor) Extract(ctx context.Context, segments []common.Segment) (*Result, error) {
	res := &Result{}
	for _, segment := range segments {
		words := strings.Fields(strings.ToLower(segment.Text))

		positive := 0
		negative := 0
		for _, word := range words {
			word = strings.Trim(word, ".,!?;:'\"()")
			for _, p := range e.lexicon.Positive {
				if word == p {
					positive++
					break
				}
			}
			for _, n := range e.lexicon.Negative {
				if word == n {
					negative++
					break
				}
			}
		}

		matched := positive + negative
		score := 0.0
		if matched > 0 {
			score = float64(positive-negative) / float64(matched)
		}

		label := SentimentNeutral
		if score > e.threshold {
			label = SentimentPositive
		} else if score < -e.threshold {
			label = SentimentNegative
		}

		intensity := 0.0
		if len(words) > 0 {
			intensity = min(1.0, float64(matched)/float64(len(words)))
		}

		res.Sentiments = append(res.Sentiments, common.SentimentScore{
			SegmentIndex: segment.Index,
			Label:        label,
			Score:        score,
			Intensity:    intensity,
		})
	}

	return res, nil
}
