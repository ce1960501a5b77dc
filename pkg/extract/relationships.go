package extract

import (
	"context"
	"sort"

	"github.com/parley-ai/parley/backend/pkg/common"
)

// maxResponseGapSeconds bounds how far apart two segments may start and
// still count as one speaker responding to the other.
const maxResponseGapSeconds = 10.0

// InteractionRuleExtractor is the rule-based relationship strategy: two
// different speakers in adjacent segments within a bounded time gap are
// taken as speaking to each other. It never fails.
type InteractionRuleExtractor struct{}

// NewInteractionRuleExtractor creates an adjacency-based relationship extractor.
func NewInteractionRuleExtractor() *InteractionRuleExtractor {
	return &InteractionRuleExtractor{}
}

func (e *InteractionRuleExtractor) Category() Category {
	return CategoryRelationship
}

func (e *InteractionRuleExtractor) Extract(ctx context.Context, segments []common.Segment) (*Result, error) {
	ordered := make([]common.Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	res := &Result{}
	for i := 1; i < len(ordered); i++ {
		prev := ordered[i-1]
		curr := ordered[i]

		if prev.SpeakerID == curr.SpeakerID {
			continue
		}
		if curr.StartTime-prev.EndTime > maxResponseGapSeconds {
			continue
		}

		res.Interactions = append(res.Interactions, common.Interaction{
			FromSpeaker: prev.SpeakerID,
			ToSpeaker:   curr.SpeakerID,
		})
	}

	return res, nil
}
