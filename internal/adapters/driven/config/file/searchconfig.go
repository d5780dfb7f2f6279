// Package file loads search configuration from a TOML file.
package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

// document mirrors the TOML layout. Pointer fields distinguish an absent key
// from a zero value so absent keys keep their defaults.
type document struct {
	Weights   weightsSection   `toml:"weights"`
	Search    searchSection    `toml:"search"`
	Phonetic  phoneticSection  `toml:"phonetic"`
	Cache     cacheSection     `toml:"cache"`
	Analytics analyticsSection `toml:"analytics"`
	Fuzzy     fuzzySection     `toml:"fuzzy"`
}

type weightsSection struct {
	Title    *float64 `toml:"title"`
	Excerpt  *float64 `toml:"excerpt"`
	Content  *float64 `toml:"content"`
	Category *float64 `toml:"category"`
	Tags     *float64 `toml:"tags"`
}

type searchSection struct {
	DefaultThreshold *float64 `toml:"default_threshold"`
	MaxQueryLength   *int     `toml:"max_query_length"`
	MaxSuggestions   *int     `toml:"max_suggestions"`
}

type phoneticSection struct {
	Enabled *bool    `toml:"enabled"`
	Weight  *float64 `toml:"weight"`
}

// TTLs are whole seconds
type cacheSection struct {
	IndexTTL      *int64 `toml:"index_ttl_seconds"`
	SuggestionTTL *int64 `toml:"suggestion_ttl_seconds"`
}

type analyticsSection struct {
	LogRetentionDays *int `toml:"log_retention_days"`
}

type fuzzySection struct {
	Posts      *bool `toml:"posts"`
	Tags       *bool `toml:"tags"`
	Categories *bool `toml:"categories"`
}

// Load reads a search configuration file over domain.DefaultSearchConfig.
// A missing file yields the defaults. Unknown keys are rejected so typos
// do not silently fall back to defaults.
func Load(path string) (domain.SearchConfig, error) {
	cfg := domain.DefaultSearchConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML bytes over the defaults and validates the result
func Parse(data []byte) (domain.SearchConfig, error) {
	cfg := domain.DefaultSearchConfig()

	var doc document
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&doc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("%w: %s", domain.ErrInvalidInput, strict.String())
		}
		return cfg, fmt.Errorf("%w: decode config: %v", domain.ErrInvalidInput, err)
	}

	doc.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Marshal renders a configuration in the file layout Load accepts
func Marshal(cfg domain.SearchConfig) ([]byte, error) {
	return toml.Marshal(fromConfig(cfg))
}

func (d document) apply(cfg *domain.SearchConfig) {
	setFloat(&cfg.TitleWeight, d.Weights.Title)
	setFloat(&cfg.ExcerptWeight, d.Weights.Excerpt)
	setFloat(&cfg.ContentWeight, d.Weights.Content)
	setFloat(&cfg.CategoryWeight, d.Weights.Category)
	setFloat(&cfg.TagsWeight, d.Weights.Tags)

	setFloat(&cfg.DefaultThreshold, d.Search.DefaultThreshold)
	setInt(&cfg.MaxQueryLength, d.Search.MaxQueryLength)
	setInt(&cfg.MaxSuggestions, d.Search.MaxSuggestions)

	setBool(&cfg.PhoneticEnabled, d.Phonetic.Enabled)
	setFloat(&cfg.PhoneticWeight, d.Phonetic.Weight)

	if d.Cache.IndexTTL != nil {
		cfg.IndexTTL = time.Duration(*d.Cache.IndexTTL) * time.Second
	}
	if d.Cache.SuggestionTTL != nil {
		cfg.SuggestionTTL = time.Duration(*d.Cache.SuggestionTTL) * time.Second
	}

	setInt(&cfg.LogRetentionDays, d.Analytics.LogRetentionDays)

	setBool(&cfg.FuzzyPosts, d.Fuzzy.Posts)
	setBool(&cfg.FuzzyTags, d.Fuzzy.Tags)
	setBool(&cfg.FuzzyCategories, d.Fuzzy.Categories)
}

func fromConfig(cfg domain.SearchConfig) document {
	indexTTL := int64(cfg.IndexTTL / time.Second)
	suggestionTTL := int64(cfg.SuggestionTTL / time.Second)
	return document{
		Weights: weightsSection{
			Title:    &cfg.TitleWeight,
			Excerpt:  &cfg.ExcerptWeight,
			Content:  &cfg.ContentWeight,
			Category: &cfg.CategoryWeight,
			Tags:     &cfg.TagsWeight,
		},
		Search: searchSection{
			DefaultThreshold: &cfg.DefaultThreshold,
			MaxQueryLength:   &cfg.MaxQueryLength,
			MaxSuggestions:   &cfg.MaxSuggestions,
		},
		Phonetic: phoneticSection{
			Enabled: &cfg.PhoneticEnabled,
			Weight:  &cfg.PhoneticWeight,
		},
		Cache: cacheSection{
			IndexTTL:      &indexTTL,
			SuggestionTTL: &suggestionTTL,
		},
		Analytics: analyticsSection{LogRetentionDays: &cfg.LogRetentionDays},
		Fuzzy: fuzzySection{
			Posts:      &cfg.FuzzyPosts,
			Tags:       &cfg.FuzzyTags,
			Categories: &cfg.FuzzyCategories,
		},
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
