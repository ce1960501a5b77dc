package graph

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator"

	"github.com/parley-ai/parley/backend/internal/util"
	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/extract"
)

// Method selects the extraction strategy variant for one category.
type Method string

const (
	MethodRuleBased  Method = "rule-based"
	MethodModelBased Method = "model-based"
	MethodHybrid     Method = "hybrid"
)

// CategoryConfig configures one extraction category. A disabled category is
// skipped entirely: no extraction runs and nothing of it appears in the
// graph. Sentiment does not support the hybrid method.
type CategoryConfig struct {
	Enabled   bool
	Method    Method `validate:"oneof=rule-based model-based hybrid"`
	BatchSize int    `validate:"min=1"`
}

// ModelConfig configures the model backend used by model-based and hybrid
// categories.
type ModelConfig struct {
	Provider    string `validate:"omitempty,oneof=ollama openai"`
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int     `validate:"min=0"`
	Temperature float64 `validate:"min=0,max=2"`
}

// Config holds the derivation pipeline configuration. All categories must
// be configured; a Config should be created with DefaultConfig or
// ConfigFromEnv and validated before use.
type Config struct {
	Categories map[extract.Category]CategoryConfig `validate:"required,dive"`

	MaxWorkers     int           `validate:"min=1"`
	MaxRetries     int           `validate:"min=1"`
	RetryBaseDelay time.Duration `validate:"min=0"`
	// ModelCallTimeout bounds every single model call so a hung backend
	// fails the attempt instead of stalling the worker. Zero disables it.
	ModelCallTimeout time.Duration `validate:"min=0"`

	Model ModelConfig
}

var configValidator = validator.New()

// DefaultConfig returns a rule-based-only configuration that needs no model
// backend.
func DefaultConfig() Config {
	return Config{
		Categories: map[extract.Category]CategoryConfig{
			extract.CategoryTopic:        {Enabled: true, Method: MethodRuleBased, BatchSize: 10},
			extract.CategoryEntity:       {Enabled: true, Method: MethodRuleBased, BatchSize: 10},
			extract.CategorySentiment:    {Enabled: true, Method: MethodRuleBased, BatchSize: 20},
			extract.CategoryRelationship: {Enabled: true, Method: MethodRuleBased, BatchSize: 50},
		},
		MaxWorkers:       4,
		MaxRetries:       3,
		RetryBaseDelay:   500 * time.Millisecond,
		ModelCallTimeout: 60 * time.Second,
	}
}

// ConfigFromEnv builds a Config from the environment, falling back to the
// defaults for anything unset.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	for category, envSuffix := range map[extract.Category]string{
		extract.CategoryTopic:        "TOPIC",
		extract.CategoryEntity:       "ENTITY",
		extract.CategorySentiment:    "SENTIMENT",
		extract.CategoryRelationship: "RELATIONSHIP",
	} {
		cc := cfg.Categories[category]
		cc.Enabled = util.GetEnvBool("GRAPH_ENABLED_"+envSuffix, cc.Enabled)
		cc.Method = Method(util.GetEnvString("GRAPH_METHOD_"+envSuffix, string(cc.Method)))
		cc.BatchSize = int(util.GetEnvNumeric("GRAPH_BATCH_"+envSuffix, cc.BatchSize))
		cfg.Categories[category] = cc
	}

	cfg.MaxWorkers = int(util.GetEnvNumeric("GRAPH_MAX_WORKERS", cfg.MaxWorkers))
	cfg.MaxRetries = int(util.GetEnvNumeric("GRAPH_MAX_RETRIES", cfg.MaxRetries))
	cfg.RetryBaseDelay = time.Duration(util.GetEnvNumeric("GRAPH_RETRY_BASE_DELAY_MS", int(cfg.RetryBaseDelay.Milliseconds()))) * time.Millisecond
	cfg.ModelCallTimeout = time.Duration(util.GetEnvNumeric("GRAPH_MODEL_CALL_TIMEOUT_MS", int(cfg.ModelCallTimeout.Milliseconds()))) * time.Millisecond

	cfg.Model = ModelConfig{
		Provider:    util.GetEnvString("AI_ADAPTER", ""),
		Model:       util.GetEnv("EXTRACTION_MODEL"),
		MaxTokens:   int(util.GetEnvNumeric("AI_MAX_TOKENS", 4096)),
		Temperature: util.GetEnvNumeric("AI_TEMPERATURE", 0),
	}
	switch cfg.Model.Provider {
	case "openai":
		cfg.Model.BaseURL = util.GetEnv("OPENAI_API_URL")
		cfg.Model.APIKey = util.GetEnv("OPENAI_API_KEY")
	case "ollama":
		cfg.Model.BaseURL = util.GetEnvString("OLLAMA_URL", "http://localhost:11434")
		cfg.Model.APIKey = util.GetEnv("OLLAMA_API_KEY")
	}

	return cfg
}

// NeedsModel reports whether any enabled category is configured to call the
// model backend.
func (c *Config) NeedsModel() bool {
	for _, cc := range c.Categories {
		if cc.Enabled && (cc.Method == MethodModelBased || cc.Method == MethodHybrid) {
			return true
		}
	}
	return false
}

// Validate checks the configuration and returns a ConfigurationError
// describing the first problem found.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return &common.ConfigurationError{
				Field:  fieldErrs[0].Namespace(),
				Reason: fmt.Sprintf("failed validation rule %q", fieldErrs[0].Tag()),
			}
		}
		return &common.ConfigurationError{Field: "config", Reason: err.Error()}
	}

	for _, category := range extract.Categories {
		if _, ok := c.Categories[category]; !ok {
			return &common.ConfigurationError{
				Field:  "categories." + string(category),
				Reason: "category is not configured",
			}
		}
	}

	// Hybrid sentiment would score every segment twice, once per variant;
	// a segment carries exactly one sentiment.
	if cc := c.Categories[extract.CategorySentiment]; cc.Method == MethodHybrid {
		return &common.ConfigurationError{
			Field:  "categories.sentiment.method",
			Reason: "sentiment supports the rule-based and model-based methods only",
		}
	}

	if c.NeedsModel() {
		if c.Model.Provider == "" {
			return &common.ConfigurationError{
				Field:  "model.provider",
				Reason: "a model-based method is configured but no provider is set",
			}
		}
		if c.Model.Model == "" {
			return &common.ConfigurationError{
				Field:  "model.model",
				Reason: "a model-based method is configured but no model is set",
			}
		}
		if c.Model.Provider == "openai" && c.Model.APIKey == "" {
			return &common.ConfigurationError{
				Field:  "model.api_key",
				Reason: "the openai provider requires an API key",
			}
		}
		if c.Model.BaseURL == "" {
			return &common.ConfigurationError{
				Field:  "model.base_url",
				Reason: "a model-based method is configured but no base URL is set",
			}
		}
	}

	return nil
}
