package extract

import (
	"context"
	"sort"
	"strings"

	"github.com/parley-ai/parley/backend/pkg/common"
)

// DefaultTopicKeywords returns the built-in keyword lists per topic
// category, used when the configuration does not supply its own.
func DefaultTopicKeywords() map[string][]string {
	return map[string][]string{
		"technology": {"software", "computer", "app", "digital", "internet", "ai", "data", "code", "system", "platform"},
		"business":   {"meeting", "project", "deadline", "client", "revenue", "budget", "strategy", "market", "sales", "contract"},
		"meeting":    {"agenda", "action item", "follow up", "minutes", "schedule", "discussion", "decision", "review"},
		"project":    {"milestone", "deliverable", "task", "timeline", "scope", "requirement", "sprint", "release"},
		"personal":   {"family", "weekend", "vacation", "lunch", "dinner", "hobby", "weather", "health"},
	}
}

// TopicKeywordExtractor is the rule-based topic strategy. It scores each
// segment against the configured keyword lists and assigns the top-scoring
// category; segments matching nothing get no topic, which is not an error.
type TopicKeywordExtractor struct {
	keywords map[string][]string
	minScore int
}

// NewTopicKeywordExtractor creates a keyword-matching topic extractor.
func NewTopicKeywordExtractor(keywords map[string][]string) *TopicKeywordExtractor {
	return &TopicKeywordExtractor{
		keywords: keywords,
		minScore: 1,
	}
}

func (e *TopicKeywordExtractor) Category() Category {
	return CategoryTopic
}

func (e *TopicKeywordExtractor) Extract(ctx context.Context, segments []common.Segment) (*Result, error) {
	categories := make([]string, 0, len(e.keywords))
	for category := range e.keywords {
		categories = append(categories, category)
	}
	// Stable iteration so ties resolve the same way on every run.
	sort.Strings(categories)

	res := &Result{}
	for _, segment := range segments {
		text := strings.ToLower(segment.Text)

		bestCategory := ""
		bestScore := 0
		for _, category := range categories {
			score := 0
			for _, keyword := range e.keywords[category] {
				if strings.Contains(text, strings.ToLower(keyword)) {
					score++
				}
			}
			if score > bestScore {
				bestCategory = category
				bestScore = score
			}
		}

		if bestScore < e.minScore {
			continue
		}

		res.Topics = append(res.Topics, common.TopicMention{
			SegmentIndex: segment.Index,
			SpeakerID:    segment.SpeakerID,
			Name:         bestCategory,
			Category:     bestCategory,
			Score:        float64(bestScore),
		})
	}

	return res, nil
}
