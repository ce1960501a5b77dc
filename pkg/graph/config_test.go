package graph

import (
	"errors"
	"testing"

	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/extract"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if cfg.NeedsModel() {
		t.Error("NeedsModel() = true for rule-based-only config")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "missing category",
			mutate: func(c *Config) {
				delete(c.Categories, extract.CategorySentiment)
			},
		},
		{
			name: "unknown method",
			mutate: func(c *Config) {
				cc := c.Categories[extract.CategoryTopic]
				cc.Method = "psychic"
				c.Categories[extract.CategoryTopic] = cc
			},
		},
		{
			name: "batch size below one",
			mutate: func(c *Config) {
				cc := c.Categories[extract.CategoryEntity]
				cc.BatchSize = 0
				c.Categories[extract.CategoryEntity] = cc
			},
		},
		{
			name: "zero workers",
			mutate: func(c *Config) {
				c.MaxWorkers = 0
			},
		},
		{
			name: "model method without provider",
			mutate: func(c *Config) {
				cc := c.Categories[extract.CategoryTopic]
				cc.Method = MethodModelBased
				c.Categories[extract.CategoryTopic] = cc
			},
		},
		{
			name: "hybrid sentiment",
			mutate: func(c *Config) {
				cc := c.Categories[extract.CategorySentiment]
				cc.Method = MethodHybrid
				c.Categories[extract.CategorySentiment] = cc
				c.Model = ModelConfig{Provider: "ollama", Model: "llama3", BaseURL: "http://localhost:11434"}
			},
		},
		{
			name: "openai provider without key",
			mutate: func(c *Config) {
				cc := c.Categories[extract.CategoryTopic]
				cc.Method = MethodHybrid
				c.Categories[extract.CategoryTopic] = cc
				c.Model = ModelConfig{Provider: "openai", Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			var confErr *common.ConfigurationError
			if !errors.As(err, &confErr) {
				t.Errorf("Validate() error type = %T, want *common.ConfigurationError", err)
			}
		})
	}
}

func TestConfig_DisabledCategoryValid(t *testing.T) {
	cfg := DefaultConfig()
	cc := cfg.Categories[extract.CategorySentiment]
	cc.Enabled = false
	cfg.Categories[extract.CategorySentiment] = cc

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v for a disabled category", err)
	}
}

func TestConfig_NeedsModel(t *testing.T) {
	cfg := DefaultConfig()
	cc := cfg.Categories[extract.CategoryTopic]
	cc.Method = MethodHybrid
	cfg.Categories[extract.CategoryTopic] = cc

	if !cfg.NeedsModel() {
		t.Error("NeedsModel() = false with a hybrid category")
	}

	// A disabled category never calls the model backend.
	cc.Enabled = false
	cfg.Categories[extract.CategoryTopic] = cc
	if cfg.NeedsModel() {
		t.Error("NeedsModel() = true with the hybrid category disabled")
	}
}
