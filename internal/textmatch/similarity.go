package textmatch

import (
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Score levels. Exact and substring matches short-circuit; fuzzy scores are
// capped below SubstringScore so a typo never outranks a literal hit.
const (
	ExactScore     = 100.0
	SubstringScore = 95.0
	MaxFuzzyScore  = 94.0

	// wordOverlapBoost is added in proportion to the share of query words
	// found verbatim in the candidate.
	wordOverlapBoost = 20.0

	// DefaultPhoneticWeight is the share of the final score taken by phonetic similarity
	DefaultPhoneticWeight = 0.3
)

// ScorerConfig controls phonetic blending
type ScorerConfig struct {
	PhoneticEnabled bool
	PhoneticWeight  float64 // 0..1
}

// Scorer computes 0-100 relevance scores between a query and candidate text.
// It is immutable and safe for concurrent use.
type Scorer struct {
	phonetic bool
	weight   float64
}

// NewScorer creates a Scorer. The phonetic weight is clamped to [0,1].
func NewScorer(cfg ScorerConfig) *Scorer {
	w := cfg.PhoneticWeight
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}
	return &Scorer{phonetic: cfg.PhoneticEnabled, weight: w}
}

// PhoneticEnabled reports whether the scorer blends phonetic similarity
func (s *Scorer) PhoneticEnabled() bool {
	return s.phonetic && s.weight > 0
}

// Query is a query prepared once and scored against many fields
type Query struct {
	Raw        string
	Normalized string
	Tokens     []string
	Keys       []string
}

// PrepareQuery normalizes, tokenizes and phonetically encodes a query
func PrepareQuery(q string) Query {
	return Query{
		Raw:        q,
		Normalized: Normalize(q),
		Tokens:     UniqueTokens(q),
		Keys:       PhoneticKeys(q),
	}
}

// Field is candidate text with optional phonetic keys computed at index time.
// When Phonetic is empty the keys are derived from Text on demand.
type Field struct {
	Text     string
	Phonetic string
}

// Score scores candidate against query
func (s *Scorer) Score(query, candidate string) float64 {
	return s.ScoreField(PrepareQuery(query), Field{Text: candidate})
}

// ScoreField scores a prepared query against one field
func (s *Scorer) ScoreField(q Query, f Field) float64 {
	cand := Normalize(f.Text)
	if q.Normalized == "" || cand == "" {
		return 0
	}
	if cand == q.Normalized {
		return ExactScore
	}
	if strings.Contains(cand, q.Normalized) {
		return SubstringScore
	}

	tokens := UniqueTokens(cand)
	text := fuzzyScore(q, cand, tokens)
	if !s.PhoneticEnabled() {
		return text
	}

	var keys []string
	if f.Phonetic != "" {
		keys = strings.Fields(f.Phonetic)
	} else {
		keys = make([]string, 0, len(tokens))
		for _, t := range tokens {
			if k := PhoneticKey(t); k != "" {
				keys = append(keys, k)
			}
		}
	}
	p, ok := phoneticScore(q.Keys, keys)
	if !ok {
		return text
	}
	return clamp((1-s.weight)*text+s.weight*p, 0, MaxFuzzyScore)
}

// Similarity is the normalized edit-distance similarity of two strings in [0,100]
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return ExactScore
	}
	d := edlib.LevenshteinDistance(a, b)
	return clamp(100*(1-float64(d)/float64(longest)), 0, ExactScore)
}

// fuzzyScore is the better of the whole-string similarity and the word-by-word
// aggregate (mean best match per query word plus the shared-word boost).
func fuzzyScore(q Query, cand string, tokens []string) float64 {
	best := 0.0
	if len(q.Tokens) > 0 && len(tokens) > 0 {
		set := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			set[t] = struct{}{}
		}

		var sum float64
		shared := 0
		for _, qt := range q.Tokens {
			if _, ok := set[qt]; ok {
				sum += ExactScore
				shared++
				continue
			}
			wordBest := 0.0
			for _, ct := range tokens {
				if s := Similarity(qt, ct); s > wordBest {
					wordBest = s
				}
			}
			sum += wordBest
		}
		best = sum / float64(len(q.Tokens))
		if shared > 0 {
			best += wordOverlapBoost * float64(shared) / float64(len(q.Tokens))
		}
	}

	// The length difference bounds the edit distance from below, so long
	// candidates can skip the quadratic whole-string comparison.
	lq, lc := utf8.RuneCountInString(q.Normalized), utf8.RuneCountInString(cand)
	longest := max(lq, lc)
	upper := 100 * (1 - float64(abs(lq-lc))/float64(longest))
	if upper > best {
		if whole := Similarity(q.Normalized, cand); whole > best {
			best = whole
		}
	}

	return clamp(best, 0, MaxFuzzyScore)
}

// phoneticScore averages, per query key, the best key similarity in the
// candidate. ok is false when either side has no keys.
func phoneticScore(queryKeys, candKeys []string) (float64, bool) {
	if len(queryKeys) == 0 || len(candKeys) == 0 {
		return 0, false
	}
	var sum float64
	for _, qk := range queryKeys {
		best := 0.0
		for _, ck := range candKeys {
			if qk == ck {
				best = ExactScore
				break
			}
			if s := Similarity(qk, ck); s > best {
				best = s
			}
		}
		sum += best
	}
	return sum / float64(len(queryKeys)), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
