package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchLogStore = (*SearchLogStore)(nil)

// PostgreSQL error codes mapped to domain errors
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidTextRepr     = "22P02"
)

// groupKey must match domain.NormalizeQueryText
const groupKey = `btrim(regexp_replace(lower(query), '\s+', ' ', 'g'))`

// SearchLogStore implements driven.SearchLogStore using PostgreSQL
type SearchLogStore struct {
	db *DB
}

// NewSearchLogStore creates a new SearchLogStore
func NewSearchLogStore(db *DB) *SearchLogStore {
	return &SearchLogStore{db: db}
}

// SaveQuery inserts a query log
func (s *SearchLogStore) SaveQuery(ctx context.Context, log *domain.SearchQueryLog) error {
	var filters sql.NullString
	if len(log.Filters) > 0 {
		raw, err := json.Marshal(log.Filters)
		if err != nil {
			return err
		}
		filters = sql.NullString{String: string(raw), Valid: true}
	}

	var threshold sql.NullInt64
	if log.Threshold != nil {
		threshold = sql.NullInt64{Int64: int64(*log.Threshold), Valid: true}
	}

	query := `
		INSERT INTO search_query_logs (id, query, result_count, execution_time_ms, search_type,
		                               fuzzy_enabled, threshold, filters, user_id, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		log.ID,
		log.Query,
		log.ResultCount,
		log.ExecutionTimeMs,
		log.SearchType,
		log.FuzzyEnabled,
		threshold,
		filters,
		NullString(log.UserID),
		sql.NullString{String: log.IPAddress, Valid: log.IPAddress != ""},
		sql.NullString{String: log.UserAgent, Valid: log.UserAgent != ""},
		log.CreatedAt,
	)
	return mapError(err)
}

// SaveClick inserts a click event and assigns its ID
func (s *SearchLogStore) SaveClick(ctx context.Context, click *domain.SearchClickEvent) error {
	query := `
		INSERT INTO search_click_events (search_log_id, record_id, position, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		click.SearchLogID,
		click.RecordID,
		click.Position,
		click.CreatedAt,
	).Scan(&click.ID)
	return mapError(err)
}

// TopQueries groups logs by normalized text. The group is reported under
// its byte-wise smallest original spelling.
func (s *SearchLogStore) TopQueries(ctx context.Context, since time.Time, limit int, noResultsOnly bool) ([]domain.QueryCount, error) {
	query := `
		SELECT MIN(query COLLATE "C") AS q, COUNT(*) AS n
		FROM search_query_logs
		WHERE created_at >= $1 AND ($2 = FALSE OR result_count = 0)
		GROUP BY ` + groupKey + `
		ORDER BY n DESC, q ASC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, since, noResultsOnly, nullLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.QueryCount
	for rows.Next() {
		var qc domain.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, err
		}
		out = append(out, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// PerformanceStats aggregates logs created at or after since
func (s *SearchLogStore) PerformanceStats(ctx context.Context, since time.Time) (*domain.PerformanceMetrics, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE result_count = 0),
		       COALESCE(AVG(execution_time_ms), 0)::float8,
		       COALESCE(MAX(execution_time_ms), 0)::float8,
		       COALESCE(MIN(execution_time_ms), 0)::float8,
		       COALESCE(AVG(result_count), 0)::float8
		FROM search_query_logs
		WHERE created_at >= $1
	`

	var m domain.PerformanceMetrics
	err := s.db.QueryRowContext(ctx, query, since).Scan(
		&m.TotalSearches,
		&m.NoResultSearches,
		&m.AvgExecutionTime,
		&m.MaxExecutionTime,
		&m.MinExecutionTime,
		&m.AvgResultCount,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ClickThroughCounts returns the number of logs and how many were clicked
func (s *SearchLogStore) ClickThroughCounts(ctx context.Context, since time.Time) (int64, int64, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE EXISTS (
		           SELECT 1 FROM search_click_events c WHERE c.search_log_id = l.id
		       ))
		FROM search_query_logs l
		WHERE l.created_at >= $1
	`

	var total, clicked int64
	if err := s.db.QueryRowContext(ctx, query, since).Scan(&total, &clicked); err != nil {
		return 0, 0, err
	}
	return total, clicked, nil
}

// MostClicked counts clicks per record over logs created at or after since
func (s *SearchLogStore) MostClicked(ctx context.Context, since time.Time, limit int) ([]domain.ClickedRecord, error) {
	query := `
		SELECT c.record_id, COUNT(*) AS n
		FROM search_click_events c
		JOIN search_query_logs l ON l.id = c.search_log_id
		WHERE l.created_at >= $1
		GROUP BY c.record_id
		ORDER BY n DESC, c.record_id ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, since, nullLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ClickedRecord
	for rows.Next() {
		var r domain.ClickedRecord
		if err := rows.Scan(&r.RecordID, &r.ClickCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOlderThan removes logs created before cutoff. Clicks cascade.
func (s *SearchLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM search_query_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// nullLimit maps a non-positive limit to LIMIT NULL (no limit)
func nullLimit(limit int) sql.NullInt64 {
	if limit <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(limit), Valid: true}
}

// mapError translates constraint violations into domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, pqErr.Detail)
	case pqUniqueViolation, pqInvalidTextRepr:
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pqErr.Message)
	}
	return err
}
