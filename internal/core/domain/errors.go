package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidQuery indicates a search query failed validation
	ErrInvalidQuery = errors.New("invalid query")

	// ErrSearchIndex indicates an index could not be built or the index type is unknown
	ErrSearchIndex = errors.New("search index error")

	// ErrServiceUnavailable indicates a backing store could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrLockNotHeld indicates a distributed lock expired or belongs to another instance
	ErrLockNotHeld = errors.New("lock not held")
)

// InvalidQueryError describes why a query was rejected.
// It unwraps to ErrInvalidQuery.
type InvalidQueryError struct {
	Query  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

func (e *InvalidQueryError) Unwrap() error {
	return ErrInvalidQuery
}

// NewInvalidQueryError creates an InvalidQueryError
func NewInvalidQueryError(query, reason string) *InvalidQueryError {
	return &InvalidQueryError{Query: query, Reason: reason}
}

// SearchIndexError reports a failed index build or an unknown index type.
// It unwraps to ErrSearchIndex; the underlying cause, if any, is reachable
// through errors.Is/As as well.
type SearchIndexError struct {
	IndexType IndexType
	Err       error
}

func (e *SearchIndexError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("search index %q: unknown index type", e.IndexType)
	}
	return fmt.Sprintf("search index %q: %v", e.IndexType, e.Err)
}

func (e *SearchIndexError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSearchIndex}
	}
	return []error{ErrSearchIndex, e.Err}
}

// NewSearchIndexError creates a SearchIndexError. err may be nil for unknown types.
func NewSearchIndexError(indexType IndexType, err error) *SearchIndexError {
	return &SearchIndexError{IndexType: indexType, Err: err}
}
