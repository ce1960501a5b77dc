package extract

import (
	"context"
	"fmt"
	"regexp"

	"github.com/parley-ai/parley/backend/pkg/common"
)

// EntityPattern binds an entity type to an ordered list of regular
// expressions. Pattern order matters: for each type the first pattern that
// matches a segment wins.
type EntityPattern struct {
	Type     string
	Patterns []string
}

// DefaultEntityPatterns returns the built-in patterns per entity type,
// used when the configuration does not supply its own. Type order is the
// extraction order.
func DefaultEntityPatterns() []EntityPattern {
	return []EntityPattern{
		{Type: "email", Patterns: []string{`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`}},
		{Type: "phone", Patterns: []string{`\b\d{3}-\d{3}-\d{4}\b`, `\(\d{3}\)\s*\d{3}-\d{4}`}},
		{Type: "date", Patterns: []string{`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`}},
		{Type: "time", Patterns: []string{`\b\d{1,2}:\d{2}(?:\s*[APap][Mm])?\b`}},
		{Type: "money", Patterns: []string{`\$\d+(?:,\d{3})*(?:\.\d{2})?`}},
		{Type: "url", Patterns: []string{`https?://[^\s]+`}},
		{Type: "mention", Patterns: []string{`\B@[a-zA-Z0-9_]+\b`}},
	}
}

type compiledEntityPattern struct {
	entityType string
	patterns   []*regexp.Regexp
}

// EntityRegexExtractor is the rule-based entity strategy. It applies the
// configured patterns to each segment; the first match per type per segment
// wins, and overlapping matches across types are kept.
type EntityRegexExtractor struct {
	patterns []compiledEntityPattern
}

// NewEntityRegexExtractor compiles the patterns and creates a rule-based
// entity extractor. An invalid pattern fails construction.
func NewEntityRegexExtractor(patterns []EntityPattern) (*EntityRegexExtractor, error) {
	compiled := make([]compiledEntityPattern, 0, len(patterns))
	for _, p := range patterns {
		cp := compiledEntityPattern{entityType: p.Type}
		for _, pattern := range p.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern for entity type %s: %w", p.Type, err)
			}
			cp.patterns = append(cp.patterns, re)
		}
		compiled = append(compiled, cp)
	}

	return &EntityRegexExtractor{patterns: compiled}, nil
}

func (e *EntityRegexExtractor) Category() Category {
	return CategoryEntity
}

func (e *EntityRegexExtractor) Extract(ctx context.Context, segments []common.Segment) (*Result, error) {
	res := &Result{}
	for _, segment := range segments {
		for _, cp := range e.patterns {
			for _, re := range cp.patterns {
				match := re.FindString(segment.Text)
				if match == "" {
					continue
				}
				res.Entities = append(res.Entities, common.EntityMention{
					SegmentIndex: segment.Index,
					Value:        match,
					Type:         cp.entityType,
				})
				break
			}
		}
	}

	return res, nil
}
