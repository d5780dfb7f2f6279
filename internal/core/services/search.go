package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-fuzzy/internal/textmatch"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// allowedQuery accepts letters, digits, whitespace and basic punctuation
var allowedQuery = regexp.MustCompile(`^[\p{L}\p{N}\s\-_.,'"!?&:;()#+@/]+$`)

// QueryRecorder accepts query logs for asynchronous persistence.
// RecordQuery must not block; it reports false when the event was dropped.
type QueryRecorder interface {
	RecordQuery(event domain.QueryEvent) bool
}

// SearchServiceConfig holds the dependencies of the search service
type SearchServiceConfig struct {
	Index    driving.IndexService
	Cache    driven.IndexCache // Optional: suggestion cache
	Recorder QueryRecorder     // Optional: analytics sink
	Config   domain.SearchConfig
	Logger   *slog.Logger
}

// searchService implements the SearchService interface
type searchService struct {
	index    driving.IndexService
	cache    driven.IndexCache
	recorder QueryRecorder
	cfg      domain.SearchConfig
	scorer   *textmatch.Scorer
	logger   *slog.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(cfg SearchServiceConfig) driving.SearchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &searchService{
		index:    cfg.Index,
		cache:    cfg.Cache,
		recorder: cfg.Recorder,
		cfg:      cfg.Config,
		scorer: textmatch.NewScorer(textmatch.ScorerConfig{
			PhoneticEnabled: cfg.Config.PhoneticEnabled,
			PhoneticWeight:  cfg.Config.PhoneticWeight,
		}),
		logger: logger,
	}
}

// Search scores each record on its best matching field
func (s *searchService) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	return s.run(ctx, query, opts, nil)
}

// SearchPosts performs a search restricted to posts
func (s *searchService) SearchPosts(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	opts.Type = domain.IndexTypePosts
	return s.run(ctx, query, opts, nil)
}

// MultiFieldSearch scores the requested fields separately and combines them
// as a weighted average. An empty field list means every searchable field.
func (s *searchService) MultiFieldSearch(ctx context.Context, query string, fields []string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	if len(fields) == 0 {
		fields = domain.SearchableFields()
	}
	seen := make(map[string]struct{}, len(fields))
	unique := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if !domain.IsSearchableField(f) {
			return nil, domain.NewInvalidQueryError(query, fmt.Sprintf("unknown search field %q", f))
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		unique = append(unique, f)
	}
	return s.run(ctx, query, opts, unique)
}

// IsEnabled reports the configured fuzzy flag for an index type
func (s *searchService) IsEnabled(indexType domain.IndexType) bool {
	return s.cfg.FuzzyEnabled(indexType)
}

// run executes the shared pipeline. A nil fields slice selects best-field
// scoring; otherwise the weighted average over fields is used.
func (s *searchService) run(ctx context.Context, query string, opts domain.SearchOptions, fields []string) (*domain.SearchResponse, error) {
	start := time.Now()

	q, err := s.validate(query)
	if err != nil {
		return nil, err
	}

	if opts.Type == "" {
		opts.Type = domain.IndexTypePosts
	}
	if !opts.Type.IsValid() {
		return nil, domain.NewSearchIndexError(opts.Type, nil)
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.Limit > maxLimit {
		opts.Limit = maxLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	fuzzy := s.IsEnabled(opts.Type)
	threshold := s.cfg.DefaultThreshold
	if opts.Threshold != nil {
		threshold = math.Max(0, math.Min(textmatch.ExactScore, *opts.Threshold))
	}
	if !fuzzy {
		threshold = math.Max(threshold, textmatch.SubstringScore)
	}

	records, err := s.index.GetIndex(ctx, opts.Type)
	if err != nil {
		return nil, err
	}

	prepared := textmatch.PrepareQuery(q)
	var hits []scoredHit
	for _, rec := range records {
		if !opts.Filters.Matches(rec) {
			continue
		}
		var score float64
		if fields == nil {
			score = s.bestFieldScore(prepared, rec)
		} else {
			score = s.weightedScore(prepared, rec, fields)
		}
		if !fuzzy && score < textmatch.SubstringScore {
			continue
		}
		if h := newScoredHit(rec, score); h.score >= threshold {
			hits = append(hits, h)
		}
	}
	sortHits(hits)

	total := len(hits)
	from := min(opts.Offset, total)
	to := min(from+opts.Limit, total)
	results := make([]*domain.SearchResult, 0, to-from)
	for _, h := range hits[from:to] {
		results = append(results, &domain.SearchResult{
			ID:             h.rec.ID,
			Type:           h.rec.Type,
			Title:          h.rec.Title,
			Excerpt:        h.rec.Excerpt,
			RelevanceScore: h.score,
			PublishedAt:    h.rec.PublishedAt,
		})
	}

	resp := &domain.SearchResponse{
		SearchID:   uuid.New().String(),
		Query:      q,
		Type:       opts.Type,
		Fuzzy:      fuzzy,
		Threshold:  threshold,
		Results:    results,
		TotalCount: total,
		Took:       time.Since(start),
	}

	searchType := domain.SearchTypeStandard
	switch {
	case fields != nil:
		searchType = domain.SearchTypeMultiField
	case fuzzy:
		searchType = domain.SearchTypeFuzzy
	}
	s.record(resp, searchType, opts)

	return resp, nil
}

type scoredHit struct {
	rec   *domain.SearchableRecord
	score float64
}

// newScoredHit rounds the score to the reported precision, so thresholds and
// tie-breaks apply to the value callers see.
func newScoredHit(rec *domain.SearchableRecord, raw float64) scoredHit {
	return scoredHit{rec: rec, score: domain.Round2(raw)}
}

// sortHits orders by score desc, then publishedAt desc (undated last), then id asc
func sortHits(hits []scoredHit) {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !publishedEqual(a.rec.PublishedAt, b.rec.PublishedAt) {
			return publishedAfter(a.rec.PublishedAt, b.rec.PublishedAt)
		}
		return a.rec.ID < b.rec.ID
	})
}

// validate trims the query and rejects empty, oversized or malformed input
func (s *searchService) validate(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", domain.NewInvalidQueryError(query, "query must not be empty")
	}
	if n := utf8.RuneCountInString(q); n > s.cfg.MaxQueryLength {
		return "", domain.NewInvalidQueryError(query, fmt.Sprintf("query is %d characters, maximum is %d", n, s.cfg.MaxQueryLength))
	}
	if !allowedQuery.MatchString(q) {
		return "", domain.NewInvalidQueryError(query, "query contains unsupported characters")
	}
	return q, nil
}

func (s *searchService) bestFieldScore(q textmatch.Query, rec *domain.SearchableRecord) float64 {
	best := 0.0
	for _, f := range domain.SearchableFields() {
		score := s.scoreField(q, rec, f)
		if score > best {
			best = score
			if best >= textmatch.ExactScore {
				break
			}
		}
	}
	return best
}

func (s *searchService) weightedScore(q textmatch.Query, rec *domain.SearchableRecord, fields []string) float64 {
	var sum, weights float64
	for _, f := range fields {
		w := s.cfg.FieldWeight(f)
		if w <= 0 {
			continue
		}
		sum += w * s.scoreField(q, rec, f)
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

func (s *searchService) scoreField(q textmatch.Query, rec *domain.SearchableRecord, field string) float64 {
	return s.scorer.ScoreField(q, textmatch.Field{
		Text:     rec.FieldText(field),
		Phonetic: rec.PhoneticFor(field),
	})
}

func (s *searchService) record(resp *domain.SearchResponse, searchType string, opts domain.SearchOptions) {
	if s.recorder == nil {
		return
	}
	threshold := int(math.Round(resp.Threshold))
	ok := s.recorder.RecordQuery(domain.QueryEvent{
		Query:           resp.Query,
		ResultCount:     resp.TotalCount,
		ExecutionTimeMs: float64(resp.Took.Microseconds()) / 1000,
		Meta: domain.QueryMetadata{
			ID:           resp.SearchID,
			SearchType:   searchType,
			FuzzyEnabled: resp.Fuzzy,
			Threshold:    &threshold,
			Filters:      opts.Filters.AsMap(),
			Client:       opts.Client,
		},
	})
	if !ok {
		s.logger.Warn("query log dropped", "search_id", resp.SearchID)
	}
}

// Suggestions returns distinct titles and terms for autocomplete: prefix
// matches first, then fuzzy matches at or above the default threshold.
func (s *searchService) Suggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	p := strings.TrimSpace(prefix)
	if p == "" {
		return []string{}, nil
	}
	if _, err := s.validate(p); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.MaxSuggestions {
		limit = s.cfg.MaxSuggestions
	}

	key := SuggestionCacheKey(p)
	if cached, ok := s.cachedSuggestions(ctx, key); ok {
		return truncate(cached, limit), nil
	}

	var candidates []string
	for _, t := range domain.AllIndexTypes() {
		records, err := s.index.GetIndex(ctx, t)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if rec.Title != "" {
				candidates = append(candidates, rec.Title)
			}
		}
	}

	suggestions := s.rankSuggestions(p, candidates)
	if s.cache != nil {
		if data, err := json.Marshal(suggestions); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cfg.SuggestionTTL); err != nil {
				s.logger.Warn("failed to cache suggestions", "prefix", p, "error", err)
			}
		}
	}
	return truncate(suggestions, limit), nil
}

func (s *searchService) cachedSuggestions(ctx context.Context, key string) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("suggestion cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

// rankSuggestions orders candidates: whole-string prefix matches, then
// word-prefix matches, then fuzzy matches by score. Each group is sorted
// and the result is de-duplicated case-insensitively.
func (s *searchService) rankSuggestions(prefix string, candidates []string) []string {
	np := textmatch.Normalize(prefix)
	q := textmatch.PrepareQuery(prefix)

	type scored struct {
		text  string
		score float64
	}
	var whole, word []string
	var fuzzy []scored
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		nc := textmatch.Normalize(c)
		if _, dup := seen[nc]; dup {
			continue
		}
		seen[nc] = struct{}{}

		switch {
		case strings.HasPrefix(nc, np):
			whole = append(whole, c)
		case anyWordHasPrefix(nc, np):
			word = append(word, c)
		default:
			if score := s.scorer.ScoreField(q, textmatch.Field{Text: c}); score >= s.cfg.DefaultThreshold {
				fuzzy = append(fuzzy, scored{text: c, score: score})
			}
		}
	}

	byText := func(list []string) {
		sort.Slice(list, func(i, j int) bool {
			return strings.ToLower(list[i]) < strings.ToLower(list[j])
		})
	}
	byText(whole)
	byText(word)
	sort.Slice(fuzzy, func(i, j int) bool {
		if fuzzy[i].score != fuzzy[j].score {
			return fuzzy[i].score > fuzzy[j].score
		}
		return strings.ToLower(fuzzy[i].text) < strings.ToLower(fuzzy[j].text)
	})

	out := make([]string, 0, s.cfg.MaxSuggestions)
	out = append(out, whole...)
	out = append(out, word...)
	for _, f := range fuzzy {
		out = append(out, f.text)
	}
	return truncate(out, s.cfg.MaxSuggestions)
}

func anyWordHasPrefix(text, prefix string) bool {
	for _, w := range strings.Fields(text) {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	for _, w := range textmatch.Tokenize(text) {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}

func truncate(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func publishedEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// publishedAfter orders newer dates first and undated records last
func publishedAfter(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}
