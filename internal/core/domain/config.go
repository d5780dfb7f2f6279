package domain

import (
	"fmt"
	"time"
)

// SearchConfig holds every tunable of the search core.
// It is passed by value at construction time and never mutated afterwards.
type SearchConfig struct {
	// Field weights used by multi-field scoring
	TitleWeight    float64 `json:"title_weight"`
	ExcerptWeight  float64 `json:"excerpt_weight"`
	ContentWeight  float64 `json:"content_weight"`
	CategoryWeight float64 `json:"category_weight"`
	TagsWeight     float64 `json:"tags_weight"`

	// DefaultThreshold is the minimum relevance (0-100) a result must reach
	DefaultThreshold float64 `json:"default_threshold"`
	MaxQueryLength   int     `json:"max_query_length"`

	PhoneticEnabled bool    `json:"phonetic_enabled"`
	PhoneticWeight  float64 `json:"phonetic_weight"`

	LogRetentionDays int `json:"log_retention_days"`

	IndexTTL       time.Duration `json:"index_ttl"`
	SuggestionTTL  time.Duration `json:"suggestion_ttl"`
	MaxSuggestions int           `json:"max_suggestions"`

	// Per-type fuzzy flags
	FuzzyPosts      bool `json:"fuzzy_posts"`
	FuzzyTags       bool `json:"fuzzy_tags"`
	FuzzyCategories bool `json:"fuzzy_categories"`
}

// DefaultSearchConfig returns sensible defaults
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		TitleWeight:      3,
		ExcerptWeight:    2,
		ContentWeight:    1,
		CategoryWeight:   1,
		TagsWeight:       1,
		DefaultThreshold: 60,
		MaxQueryLength:   200,
		PhoneticEnabled:  false,
		PhoneticWeight:   0.3,
		LogRetentionDays: 90,
		IndexTTL:         time.Hour,
		SuggestionTTL:    10 * time.Minute,
		MaxSuggestions:   20,
		FuzzyPosts:       true,
		FuzzyTags:        true,
		FuzzyCategories:  true,
	}
}

// FieldWeight returns the configured weight of a searchable field, 0 for unknown fields
func (c SearchConfig) FieldWeight(field string) float64 {
	switch field {
	case FieldTitle:
		return c.TitleWeight
	case FieldExcerpt:
		return c.ExcerptWeight
	case FieldContent:
		return c.ContentWeight
	case FieldCategory:
		return c.CategoryWeight
	case FieldTags:
		return c.TagsWeight
	}
	return 0
}

// FuzzyEnabled reports whether fuzzy matching is active for an index type
func (c SearchConfig) FuzzyEnabled(t IndexType) bool {
	switch t {
	case IndexTypePosts:
		return c.FuzzyPosts
	case IndexTypeTags:
		return c.FuzzyTags
	case IndexTypeCategories:
		return c.FuzzyCategories
	}
	return false
}

// Validate checks the configuration for values the core cannot work with
func (c SearchConfig) Validate() error {
	for _, f := range SearchableFields() {
		if c.FieldWeight(f) < 0 {
			return fmt.Errorf("%w: %s weight must not be negative", ErrInvalidInput, f)
		}
	}
	if c.DefaultThreshold < 0 || c.DefaultThreshold > 100 {
		return fmt.Errorf("%w: default threshold must be within [0,100], got %v", ErrInvalidInput, c.DefaultThreshold)
	}
	if c.MaxQueryLength <= 0 {
		return fmt.Errorf("%w: max query length must be positive", ErrInvalidInput)
	}
	if c.PhoneticWeight < 0 || c.PhoneticWeight > 1 {
		return fmt.Errorf("%w: phonetic weight must be within [0,1], got %v", ErrInvalidInput, c.PhoneticWeight)
	}
	if c.LogRetentionDays < 0 {
		return fmt.Errorf("%w: log retention days must not be negative", ErrInvalidInput)
	}
	if c.IndexTTL <= 0 {
		return fmt.Errorf("%w: index ttl must be positive", ErrInvalidInput)
	}
	if c.SuggestionTTL <= 0 {
		return fmt.Errorf("%w: suggestion ttl must be positive", ErrInvalidInput)
	}
	if c.MaxSuggestions <= 0 {
		return fmt.Errorf("%w: max suggestions must be positive", ErrInvalidInput)
	}
	return nil
}
