package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
)

// QueryCount pairs a normalized query with its execution count.
type QueryCount struct {
	Query string
	Count int
}

// SearchRecordRepository stores SearchQuery and SearchResult records. Queries
// are immutable after creation; results are mutated only to record a click.
type SearchRecordRepository interface {
	// CreateQuery appends one query execution record
	CreateQuery(ctx context.Context, query *entities.SearchQuery) error

	// CreateResults appends the per-result records of one query execution
	CreateResults(ctx context.Context, results []*entities.SearchResult) error

	// MarkResultClicked records a click on a previously stored result.
	// Returns a not found error if the (queryID, productID) pair does not
	// exist, preserving causal ordering of the event log.
	MarkResultClicked(ctx context.Context, queryID, productID string, at time.Time) error

	// ZeroResultQueries returns recent queries that produced no results
	ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchQuery, error)

	// QueryCounts returns total and zero-result query counts in [from, to)
	QueryCounts(ctx context.Context, from, to time.Time) (total int, zeroResult int, err error)

	// TopQueries returns the most frequent normalized queries in [from, to)
	TopQueries(ctx context.Context, from, to time.Time, limit int) ([]QueryCount, error)

	// SuggestQueries returns distinct prior normalized queries containing the
	// given fragment, excluding the fragment itself
	SuggestQueries(ctx context.Context, fragment string, limit int) ([]string, error)
}
