package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

// SearchRecordAdapter implements the SearchRecordRepository interface
type SearchRecordAdapter struct {
	client *postgres.Client
}

// NewSearchRecordAdapter creates a new search record adapter
func NewSearchRecordAdapter(client *postgres.Client) repositories.SearchRecordRepository {
	return &SearchRecordAdapter{client: client}
}

// CreateQuery appends one query execution record
func (a *SearchRecordAdapter) CreateQuery(ctx context.Context, query *entities.SearchQuery) error {
	if query.ID == "" {
		query.ID = uuid.New().String()
	}
	if query.CreatedAt.IsZero() {
		query.CreatedAt = time.Now()
	}

	filters, err := json.Marshal(query.Filters)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal query filters", err)
	}

	stmt := `
		INSERT INTO search_queries
		(id, session_id, raw_text, normalized_text, intent, filters, result_count, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = a.client.DB().ExecContext(ctx, stmt,
		query.ID,
		query.SessionID,
		query.RawText,
		query.NormalizedText,
		string(query.Intent),
		filters,
		query.ResultCount,
		query.LatencyMs,
		query.CreatedAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to create search query record", err)
	}

	return nil
}

// CreateResults appends the per-result records of one query execution
func (a *SearchRecordAdapter) CreateResults(ctx context.Context, results []*entities.SearchResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt := `
		INSERT INTO search_results (query_id, product_id, position, score, clicked)
		VALUES ($1, $2, $3, $4, false)
	`

	for _, r := range results {
		if _, err := tx.ExecContext(ctx, stmt, r.QueryID, r.ProductID, r.Position, r.Score); err != nil {
			return apperrors.NewInternalError("failed to create search result record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit search results", err)
	}

	return nil
}

// MarkResultClicked records a click on a previously stored result
func (a *SearchRecordAdapter) MarkResultClicked(ctx context.Context, queryID, productID string, at time.Time) error {
	stmt := `
		UPDATE search_results
		SET clicked = true, clicked_at = $3
		WHERE query_id = $1 AND product_id = $2
	`

	result, err := a.client.DB().ExecContext(ctx, stmt, queryID, productID, at)
	if err != nil {
		return apperrors.NewInternalError("failed to mark result clicked", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("search result not found for click")
	}

	return nil
}

// ZeroResultQueries returns recent queries that produced no results
func (a *SearchRecordAdapter) ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchQuery, error) {
	if limit <= 0 {
		limit = 100
	}

	stmt := `
		SELECT id, session_id, raw_text, normalized_text, intent, filters, result_count, latency_ms, created_at
		FROM search_queries
		WHERE result_count = 0
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := a.client.DB().QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result queries", err)
	}
	defer rows.Close()

	var queries []*entities.SearchQuery
	for rows.Next() {
		q, err := scanSearchQuery(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate zero result queries", err)
	}

	return queries, nil
}

// QueryCounts returns total and zero-result query counts in [from, to)
func (a *SearchRecordAdapter) QueryCounts(ctx context.Context, from, to time.Time) (int, int, error) {
	stmt := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE result_count = 0)
		FROM search_queries
		WHERE created_at >= $1 AND created_at < $2
	`

	var total, zero int
	err := a.client.DB().QueryRowContext(ctx, stmt, from, to).Scan(&total, &zero)
	if err != nil {
		return 0, 0, apperrors.NewInternalError("failed to count search queries", err)
	}
	return total, zero, nil
}

// TopQueries returns the most frequent normalized queries in [from, to)
func (a *SearchRecordAdapter) TopQueries(ctx context.Context, from, to time.Time, limit int) ([]repositories.QueryCount, error) {
	if limit <= 0 {
		limit = 20
	}

	stmt := `
		SELECT normalized_text, COUNT(*) AS cnt
		FROM search_queries
		WHERE created_at >= $1 AND created_at < $2 AND normalized_text <> ''
		GROUP BY normalized_text
		ORDER BY cnt DESC, normalized_text ASC
		LIMIT $3
	`

	rows, err := a.client.DB().QueryContext(ctx, stmt, from, to, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get top queries", err)
	}
	defer rows.Close()

	var counts []repositories.QueryCount
	for rows.Next() {
		var qc repositories.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan top query", err)
		}
		counts = append(counts, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate top queries", err)
	}

	return counts, nil
}

// SuggestQueries returns distinct prior normalized queries containing the
// given fragment
func (a *SearchRecordAdapter) SuggestQueries(ctx context.Context, fragment string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}

	stmt := `
		SELECT normalized_text
		FROM search_queries
		WHERE normalized_text ILIKE '%' || $1 || '%'
		  AND normalized_text <> $1
		GROUP BY normalized_text
		ORDER BY COUNT(*) DESC, normalized_text ASC
		LIMIT $2
	`

	rows, err := a.client.DB().QueryContext(ctx, stmt, fragment, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get query suggestions", err)
	}
	defer rows.Close()

	var suggestions []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, apperrors.NewInternalError("failed to scan suggestion", err)
		}
		suggestions = append(suggestions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate suggestions", err)
	}

	return suggestions, nil
}

func scanSearchQuery(rows *sql.Rows) (*entities.SearchQuery, error) {
	q := &entities.SearchQuery{}
	var intent string
	var filters []byte
	err := rows.Scan(
		&q.ID,
		&q.SessionID,
		&q.RawText,
		&q.NormalizedText,
		&intent,
		&filters,
		&q.ResultCount,
		&q.LatencyMs,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan search query", err)
	}
	q.Intent = entities.SearchIntent(intent)
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &q.Filters); err != nil {
			return nil, apperrors.NewInternalError("failed to unmarshal query filters", err)
		}
	}
	return q, nil
}
