package domain

import (
	"math"
	"strings"
	"time"
)

// Search types recorded on query logs
const (
	SearchTypeStandard   = "standard"
	SearchTypeFuzzy      = "fuzzy"
	SearchTypeMultiField = "multi_field"
)

// SearchQueryLog records one search execution. Never mutated after creation.
type SearchQueryLog struct {
	ID              string            `json:"id"`
	Query           string            `json:"query"`
	ResultCount     int               `json:"result_count"`
	ExecutionTimeMs float64           `json:"execution_time_ms"`
	SearchType      string            `json:"search_type"`
	FuzzyEnabled    bool              `json:"fuzzy_enabled"`
	Threshold       *int              `json:"threshold,omitempty"`
	Filters         map[string]string `json:"filters,omitempty"`
	UserID          *string           `json:"user_id,omitempty"`
	IPAddress       string            `json:"ip_address,omitempty"`
	UserAgent       string            `json:"user_agent,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// QueryMetadata is the optional context attached to a query log
type QueryMetadata struct {
	ID           string            // pre-assigned log id; generated when empty
	SearchType   string            // defaults to SearchTypeStandard
	FuzzyEnabled bool
	Threshold    *int
	Filters      map[string]string
	Client       ClientInfo
}

// QueryEvent is a search execution waiting to be written as a query log
type QueryEvent struct {
	Query           string
	ResultCount     int
	ExecutionTimeMs float64
	Meta            QueryMetadata
}

// SearchClickEvent records a user selecting a result of a logged search
type SearchClickEvent struct {
	ID          int64     `json:"id"`
	SearchLogID string    `json:"search_log_id"`
	RecordID    int64     `json:"record_id"`
	Position    int       `json:"position"` // 1-based rank
	CreatedAt   time.Time `json:"created_at"`
}

// QueryCount is one row of a grouped query report
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// ClickedRecord is one row of the most-clicked report
type ClickedRecord struct {
	RecordID   int64 `json:"record_id"`
	ClickCount int64 `json:"click_count"`
}

// PerformanceMetrics aggregates query logs over a period
type PerformanceMetrics struct {
	AvgExecutionTime   float64 `json:"avg_execution_time"`
	MaxExecutionTime   float64 `json:"max_execution_time"`
	MinExecutionTime   float64 `json:"min_execution_time"`
	TotalSearches      int64   `json:"total_searches"`
	NoResultSearches   int64   `json:"no_result_searches"`
	AvgResultCount     float64 `json:"avg_result_count"`
	NoResultPercentage float64 `json:"no_result_percentage"`
}

// Finalize derives the percentage and rounds every average to 2 decimals
func (m *PerformanceMetrics) Finalize() {
	if m.TotalSearches == 0 {
		*m = PerformanceMetrics{}
		return
	}
	m.AvgExecutionTime = Round2(m.AvgExecutionTime)
	m.MaxExecutionTime = Round2(m.MaxExecutionTime)
	m.MinExecutionTime = Round2(m.MinExecutionTime)
	m.AvgResultCount = Round2(m.AvgResultCount)
	m.NoResultPercentage = Round2(float64(m.NoResultSearches) / float64(m.TotalSearches) * 100)
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeQueryText is the grouping key for query reports
func NormalizeQueryText(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// Period is a reporting window ending now
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps a string to a Period, falling back to month
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodDay:
		return PeriodDay
	case PeriodWeek:
		return PeriodWeek
	case PeriodYear:
		return PeriodYear
	}
	return PeriodMonth
}

// Since returns the start of the window ending at now
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return now.AddDate(0, 0, -1)
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

// AnalyticsOutcome reports the result of a fail-soft analytics write.
// Writes never return errors to callers; the outcome carries the failure instead.
type AnalyticsOutcome struct {
	Operation string `json:"operation"`
	LogID     string `json:"log_id,omitempty"`
	Affected  int64  `json:"affected"`
	Err       error  `json:"-"`
}

// OK reports whether the write succeeded
func (o AnalyticsOutcome) OK() bool {
	return o.Err == nil
}

// Reason returns the failure message, or "" on success
func (o AnalyticsOutcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
