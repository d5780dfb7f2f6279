package domain

import (
	"strings"
	"time"
)

// SearchFilters narrows a result set after scoring.
// Zero-valued fields impose no constraint; all set fields are ANDed.
type SearchFilters struct {
	Category string     `json:"category,omitempty"`
	Author   string     `json:"author,omitempty"`
	DateFrom *time.Time `json:"date_from,omitempty"` // inclusive, calendar date
	DateTo   *time.Time `json:"date_to,omitempty"`   // inclusive, calendar date
	Tags     []string   `json:"tags,omitempty"`      // every tag must be present
}

// IsEmpty reports whether no filter is set
func (f SearchFilters) IsEmpty() bool {
	return f.Category == "" && f.Author == "" && f.DateFrom == nil && f.DateTo == nil && len(f.Tags) == 0
}

// AsMap flattens the set filters into the string mapping stored on query logs
func (f SearchFilters) AsMap() map[string]string {
	m := make(map[string]string)
	if f.Category != "" {
		m["category"] = f.Category
	}
	if f.Author != "" {
		m["author"] = f.Author
	}
	if f.DateFrom != nil {
		m["date_from"] = f.DateFrom.Format(time.DateOnly)
	}
	if f.DateTo != nil {
		m["date_to"] = f.DateTo.Format(time.DateOnly)
	}
	if len(f.Tags) > 0 {
		m["tags"] = strings.Join(f.Tags, ",")
	}
	return m
}

// Matches applies the filters to a record
func (f SearchFilters) Matches(r *SearchableRecord) bool {
	if f.Category != "" && !strings.EqualFold(strings.TrimSpace(r.Category), strings.TrimSpace(f.Category)) {
		return false
	}
	if f.Author != "" && !strings.EqualFold(strings.TrimSpace(r.Author), strings.TrimSpace(f.Author)) {
		return false
	}
	if f.DateFrom != nil || f.DateTo != nil {
		if r.PublishedAt == nil {
			return false
		}
		day := calendarDate(*r.PublishedAt)
		if f.DateFrom != nil && day.Before(calendarDate(*f.DateFrom)) {
			return false
		}
		if f.DateTo != nil && day.After(calendarDate(*f.DateTo)) {
			return false
		}
	}
	for _, tag := range f.Tags {
		if !r.HasTag(tag) {
			return false
		}
	}
	return true
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ClientInfo identifies who issued a search, for analytics only
type ClientInfo struct {
	UserID    *string `json:"user_id,omitempty"`
	IPAddress string  `json:"ip_address,omitempty"`
	UserAgent string  `json:"user_agent,omitempty"`
}

// SearchOptions configures a search request
type SearchOptions struct {
	Type      IndexType     `json:"type"`
	Filters   SearchFilters `json:"filters,omitempty"`
	Threshold *float64      `json:"threshold,omitempty"` // nil uses the configured default
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
	Client    ClientInfo    `json:"-"`
}

// DefaultSearchOptions returns sensible defaults
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Type:   IndexTypePosts,
		Limit:  20,
		Offset: 0,
	}
}

// SearchResult is one ranked hit
type SearchResult struct {
	ID             int64      `json:"id"`
	Type           IndexType  `json:"type"`
	Title          string     `json:"title"`
	Excerpt        string     `json:"excerpt,omitempty"`
	RelevanceScore float64    `json:"relevance_score"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}

// SearchResponse is the outcome of a search query
type SearchResponse struct {
	SearchID   string          `json:"search_id"` // references the query log written for this search
	Query      string          `json:"query"`
	Type       IndexType       `json:"type"`
	Fuzzy      bool            `json:"fuzzy"`
	Threshold  float64         `json:"threshold"`
	Results    []*SearchResult `json:"results"`
	TotalCount int             `json:"total_count"`
	Took       time.Duration   `json:"took"`
}
