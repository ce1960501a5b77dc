package extract

import (
	"context"

	"github.com/parley-ai/parley/backend/pkg/ai"
	"github.com/parley-ai/parley/backend/pkg/common"
)

// Category identifies one extraction concern. Each category has a rule-based
// and a model-based strategy variant behind the same Extractor interface.
type Category string

const (
	CategoryTopic        Category = "topic"
	CategoryEntity       Category = "entity"
	CategorySentiment    Category = "sentiment"
	CategoryRelationship Category = "relationship"
)

// Categories lists all extraction categories in dispatch order.
var Categories = []Category{CategoryTopic, CategoryEntity, CategorySentiment, CategoryRelationship}

// Result accumulates the outputs of extraction calls. Each extractor fills
// only the slice belonging to its category; results from multiple batches
// and categories are combined with Merge.
type Result struct {
	Topics       []common.TopicMention
	Entities     []common.EntityMention
	Sentiments   []common.SentimentScore
	Interactions []common.Interaction
}

// Merge appends the contents of other into r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Topics = append(r.Topics, other.Topics...)
	r.Entities = append(r.Entities, other.Entities...)
	r.Sentiments = append(r.Sentiments, other.Sentiments...)
	r.Interactions = append(r.Interactions, other.Interactions...)
}

// Extractor is the single capability every strategy variant implements:
// derive category-specific mentions from a batch of normalized segments.
// Rule-based variants are deterministic and never return an error;
// model-based variants are fallible and leave retry policy to the caller.
type Extractor interface {
	Category() Category
	Extract(ctx context.Context, segments []common.Segment) (*Result, error)
}

// Registry holds the configured strategy variants per category.
//
// A Registry should be created using NewRegistry.
type Registry struct {
	rule  map[Category]Extractor
	model map[Category]Extractor
}

// ModelParams selects the model backend settings passed through to the
// model-based extractors.
type ModelParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewRegistryParams defines the configuration for creating a Registry.
//
// AIClient may be nil when no category uses a model-based method; the
// model-based variants are then unavailable.
type NewRegistryParams struct {
	TopicKeywords    map[string][]string
	EntityPatterns   []EntityPattern
	SentimentLexicon Lexicon

	AIClient ai.GraphAIClient
	Model    ModelParams
}

// NewRegistry creates a Registry with rule-based variants for all four
// categories and, when an AI client is supplied, model-based variants as
// well. Invalid entity patterns fail construction.
func NewRegistry(params NewRegistryParams) (*Registry, error) {
	keywords := params.TopicKeywords
	if len(keywords) == 0 {
		keywords = DefaultTopicKeywords()
	}
	patterns := params.EntityPatterns
	if len(patterns) == 0 {
		patterns = DefaultEntityPatterns()
	}
	lexicon := params.SentimentLexicon
	if len(lexicon.Positive) == 0 && len(lexicon.Negative) == 0 {
		lexicon = DefaultSentimentLexicon()
	}

	entityRule, err := NewEntityRegexExtractor(patterns)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		rule: map[Category]Extractor{
			CategoryTopic:        NewTopicKeywordExtractor(keywords),
			CategoryEntity:       entityRule,
			CategorySentiment:    NewSentimentLexiconExtractor(lexicon),
			CategoryRelationship: NewInteractionRuleExtractor(),
		},
		model: map[Category]Extractor{},
	}

	if params.AIClient != nil {
		topicCategories := make([]string, 0, len(keywords))
		for category := range keywords {
			topicCategories = append(topicCategories, category)
		}
		entityTypes := make([]string, 0, len(patterns))
		for _, p := range patterns {
			entityTypes = append(entityTypes, p.Type)
		}

		r.model[CategoryTopic] = NewTopicModelExtractor(params.AIClient, params.Model, topicCategories)
		r.model[CategoryEntity] = NewEntityModelExtractor(params.AIClient, params.Model, entityTypes)
		r.model[CategorySentiment] = NewSentimentModelExtractor(params.AIClient, params.Model)
		r.model[CategoryRelationship] = NewRelationshipModelExtractor(params.AIClient, params.Model)
	}

	return r, nil
}

// RuleBased returns the rule-based variant for the category.
func (r *Registry) RuleBased(category Category) Extractor {
	return r.rule[category]
}

// ModelBased returns the model-based variant for the category, or nil when
// the registry was built without an AI client.
func (r *Registry) ModelBased(category Category) Extractor {
	return r.model[category]
}
