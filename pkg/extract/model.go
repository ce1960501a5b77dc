package extract

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/parley-ai/parley/backend/pkg/ai"
	"github.com/parley-ai/parley/backend/pkg/common"
)

// serializeSegments renders a batch as a numbered listing for the prompt.
// The number is the segment's conversation-wide index so the model can
// reference segments the same way the rest of the pipeline does.
func serializeSegments(segments []common.Segment) string {
	var sb strings.Builder
	for _, segment := range segments {
		fmt.Fprintf(&sb, "[%d] %s: %s\n", segment.Index, segment.SpeakerID, segment.Text)
	}
	return sb.String()
}

// batchIndexes returns the set of segment indexes present in the batch,
// used to validate that the model only references segments it was given.
func batchIndexes(segments []common.Segment) map[int]bool {
	indexes := make(map[int]bool, len(segments))
	for _, segment := range segments {
		indexes[segment.Index] = true
	}
	return indexes
}

// batchSpeakers returns the sorted distinct speaker identifiers of a batch.
func batchSpeakers(segments []common.Segment) []string {
	seen := make(map[string]bool, len(segments))
	speakers := make([]string, 0, len(segments))
	for _, segment := range segments {
		if seen[segment.SpeakerID] {
			continue
		}
		seen[segment.SpeakerID] = true
		speakers = append(speakers, segment.SpeakerID)
	}
	sort.Strings(speakers)
	return speakers
}

func speakerOf(segments []common.Segment, index int) string {
	for _, segment := range segments {
		if segment.Index == index {
			return segment.SpeakerID
		}
	}
	return ""
}

type topicItem struct {
	SegmentIndex int    `json:"segment_index" jsonschema_description:"Index of the segment the topic occurs in, as given in the listing"`
	Name         string `json:"name" jsonschema_description:"Short name of the topic"`
	Category     string `json:"category" jsonschema_description:"Topic category, one of the allowed categories"`
}

type topicResponse struct {
	Topics []topicItem `json:"topics" jsonschema_description:"Topics discussed in the transcript segments"`
}

// TopicModelExtractor is the model-based topic strategy. A batch fails as a
// whole when the response cannot be parsed or any item is invalid.
type TopicModelExtractor struct {
	client     ai.GraphAIClient
	params     ModelParams
	categories []string
}

// NewTopicModelExtractor creates a model-backed topic extractor restricted
// to the given topic categories.
func NewTopicModelExtractor(client ai.GraphAIClient, params ModelParams, categories []string) *TopicModelExtractor {
	sorted := slices.Clone(categories)
	sort.Strings(sorted)
	return &TopicModelExtractor{
		client:     client,
		params:     params,
		categories: sorted,
	}
}

func (e *TopicModelExtractor) Category() Category {
	return CategoryTopic
}

func (e *TopicModelExtractor) Extract(ctx context.Context, segments []common.Segment) (*Result, error) {
	prompt := fmt.Sprintf(TopicPrompt, strings.Join(e.categories, ", "), serializeSegments(segments))

	var response topicResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"topic_extraction",
		"Topics discussed in conversation transcript segments",
		prompt,
		&response,
		ai.WithModel(e.params.Model),
		ai.WithTemperature(e.params.Temperature),
		ai.WithMaxTokens(e.params.MaxTokens),
	)
	if err != nil {
		return nil, err
	}

	indexes := batchIndexes(segments)
	res := &Result{}
	for _, item := range response.Topics {
		if !indexes[item.SegmentIndex] {
			return nil, fmt.Errorf("topic references segment %d outside the batch", item.SegmentIndex)
		}
		if !slices.Contains(e.categories, item.Category) {
			return nil, fmt.Errorf("topic category %q is not an allowed category", item.Category)
		}
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("topic for segment %d has an empty name", item.SegmentIndex)
		}

		res.Topics = append(res.Topics, common.TopicMention{
			SegmentIndex: item.SegmentIndex,
			SpeakerID:    speakerOf(segments, item.SegmentIndex),
			Name:         strings.TrimSpace(item.Name),
			Category:     item.Category,
			Score:        1.0,
		})
	}

	return res, nil
}

type entityItem struct {
	SegmentIndex int    `json:"segment_index" jsonschema_description:"Index of the segment the entity occurs in, as given in the listing"`
	Value        string `json:"value" jsonschema_description:"Entity value exactly as it appears in the text"`
	Type         string `json:"type" jsonschema_description:"Entity type, one of the allowed types"`
}

type entityResponse struct {
	Entities []entityItem `json:"entities" jsonschema_description:"Entities mentioned in the transcript segments"`
}

// EntityModelExtractor is the model-based entity strategy. A batch fails as
// a whole when the response cannot be parsed or any item is invalid.
type EntityModelExtractor struct {
	client ai.GraphAIClient
	params ModelParams
	types  []string
}

// NewEntityModelExtractor creates a model-backed entity extractor restricted
// to the given entity types.
func NewEntityModelExtractor(client ai.GraphAIClient, params ModelParams, types []string) *EntityModelExtractor {
	return &EntityModelExtractor{
		client: client,
		params: params,
		types:  slices.Clone(types),
	}
}

func (e *EntityModelExtractor) Category() Category {
	return CategoryEntity
}

func (e *EntityModelExtractor) Extract(ctx context.Context, segments []common.Segment) (*Result, error) {
	prompt := fmt.Sprintf(EntityPrompt, strings.Join(e.types, ", "), serializeSegments(segments))

	var response entityResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"entity_extraction",
		"Entities mentioned in conversation transcript segments",
		prompt,
		&response,
		ai.WithModel(e.params.Model),
		ai.WithTemperature(e.params.Temperature),
		ai.WithMaxTokens(e.params.MaxTokens),
	)
	if err != nil {
		return nil, err
	}

	indexes := batchIndexes(segments)
	res := &Result{}
	for _, item := range response.Entities {
		if !indexes[item.SegmentIndex] {
			return nil, fmt.Errorf("entity references segment %d outside the batch", item.SegmentIndex)
		}
		if !slices.Contains(e.types, item.Type) {
			return nil, fmt.Errorf("entity type %q is not an allowed type", item.Type)
		}
		if strings.TrimSpace(item.Value) == "" {
			return nil, fmt.Errorf("entity for segment %d has an empty value", item.SegmentIndex)
		}

		res.Entities = append(res.Entities, common.EntityMention{
			SegmentIndex: item.SegmentIndex,
			Value:        strings.TrimSpace(item.Value),
			Type:         item.Type,
		})
	}

	return res, nil
}

type sentimentItem struct {
	SegmentIndex int     `json:"segment_index" jsonschema_description:"Index of the scored segment, as given in the listing"`
	Label        string  `json:"label" jsonschema_description:"Sentiment label: positive, negative or neutral"`
	Score        float64 `json:"score" jsonschema_description:"Sentiment score between -1.0 and 1.0"`
	Intensity    float64 `json:"intensity" jsonschema_description:"Emotional intensity between 0.0 and 1.0"`
}

type sentimentResponse struct {
	Sentiments []sentimentItem `json:"sentiments" jsonschema_description:"One sentiment score per transcript segment"`
}

// SentimentModelExtractor is the model-based sentiment strategy. A batch
// fails as a whole when the response cannot be parsed or any item is invalid.
type SentimentModelExtractor struct {
	client ai.GraphAIClient
	params ModelParams
}

// NewSentimentModelExtractor creates a model-backed sentiment extractor.
func NewSentimentModelExtractor(client ai.GraphAIClient, params ModelParams) *SentimentModelExtractor {
	return &SentimentModelExtractor{
		client: client,
		params: params,
	}
}

func (e *SentimentModelExtractor) Category() Category {
	return CategorySentiment
}

func (e *SentimentModelExtractor) Extract(ctx context.Context, segments []common.Segment) (*Result, error) {
	prompt := fmt.Sprintf(SentimentPrompt, serializeSegments(segments))

	var response sentimentResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"sentiment_scoring",
		"Sentiment scores for conversation transcript segments",
		prompt,
		&response,
		ai.WithModel(e.params.Model),
		ai.WithTemperature(e.params.Temperature),
		ai.WithMaxTokens(e.params.MaxTokens),
	)
	if err != nil {
		return nil, err
	}

	indexes := batchIndexes(segments)
	res := &Result{}
	for _, item := range response.Sentiments {
		if !indexes[item.SegmentIndex] {
			return nil, fmt.Errorf("sentiment references segment %d outside the batch", item.SegmentIndex)
		}
		if item.Label != SentimentPositive && item.Label != SentimentNegative && item.Label != SentimentNeutral {
			return nil, fmt.Errorf("sentiment label %q is not a known label", item.Label)
		}
		if item.Score < -1.0 || item.Score > 1.0 {
			return nil, fmt.Errorf("sentiment score %v for segment %d is out of range", item.Score, item.SegmentIndex)
		}
		if item.Intensity < 0.0 || item.Intensity > 1.0 {
			return nil, fmt.Errorf("sentiment intensity %v for segment %d is out of range", item.Intensity, item.SegmentIndex)
		}

		res.Sentiments = append(res.Sentiments, common.SentimentScore{
			SegmentIndex: item.SegmentIndex,
			Label:        item.Label,
			Score:        item.Score,
			Intensity:    item.Intensity,
		})
	}

	return res, nil
}

type interactionItem struct {
	FromSpeaker string `json:"from_speaker" jsonschema_description:"Speaker doing the addressing, from the known speaker list"`
	ToSpeaker   string `json:"to_speaker" jsonschema_description:"Speaker being addressed, from the known speaker list"`
}

type relationshipResponse struct {
	Interactions []interactionItem `json:"interactions" jsonschema_description:"Speaker-to-speaker interactions in the transcript segments"`
}

// RelationshipModelExtractor is the model-based relationship strategy. A
// batch fails as a whole when the response cannot be parsed or any item is
// invalid.
type RelationshipModelExtractor struct {
	client ai.GraphAIClient
	params ModelParams
}

// NewRelationshipModelExtractor creates a model-backed relationship extractor.
func NewRelationshipModelExtractor(client ai.GraphAIClient, params ModelParams) *RelationshipModelExtractor {
	return &RelationshipModelExtractor{
		client: client,
		params: params,
	}
}

func (e *RelationshipModelExtractor) Category() Category {
	return CategoryRelationship
}

func (e *RelationshipModelExtractor) Extract(ctx context.Context, segments []common.Segment) (*Result, error) {
	speakers := batchSpeakers(segments)
	prompt := fmt.Sprintf(RelationshipPrompt, strings.Join(speakers, ", "), serializeSegments(segments))

	var response relationshipResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"relationship_extraction",
		"Speaker interactions in conversation transcript segments",
		prompt,
		&response,
		ai.WithModel(e.params.Model),
		ai.WithTemperature(e.params.Temperature),
		ai.WithMaxTokens(e.params.MaxTokens),
	)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, item := range response.Interactions {
		if !slices.Contains(speakers, item.FromSpeaker) {
			return nil, fmt.Errorf("interaction names unknown speaker %q", item.FromSpeaker)
		}
		if !slices.Contains(speakers, item.ToSpeaker) {
			return nil, fmt.Errorf("interaction names unknown speaker %q", item.ToSpeaker)
		}
		if item.FromSpeaker == item.ToSpeaker {
			return nil, fmt.Errorf("interaction has speaker %q on both ends", item.FromSpeaker)
		}

		res.Interactions = append(res.Interactions, common.Interaction{
			FromSpeaker: item.FromSpeaker,
			ToSpeaker:   item.ToSpeaker,
		})
	}

	return res, nil
}
