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

// RecommendationAdapter implements the RecommendationRepository interface.
// Batches are append-only; superseding batches are new rows.
type RecommendationAdapter struct {
	client *postgres.Client
}

// NewRecommendationAdapter creates a new recommendation adapter
func NewRecommendationAdapter(client *postgres.Client) repositories.RecommendationRepository {
	return &RecommendationAdapter{client: client}
}

// CreateBatch appends a generated batch
func (a *RecommendationAdapter) CreateBatch(ctx context.Context, batch *entities.RecommendationBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.GeneratedAt.IsZero() {
		batch.GeneratedAt = time.Now()
	}

	items, err := json.Marshal(batch.Items)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal batch items", err)
	}

	stmt := `
		INSERT INTO recommendation_batches
		(id, user_id, session_id, context_type, strategy, items, generated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = a.client.DB().ExecContext(ctx, stmt,
		batch.ID,
		sql.NullString{String: batch.UserID, Valid: batch.UserID != ""},
		sql.NullString{String: batch.SessionID, Valid: batch.SessionID != ""},
		string(batch.ContextType),
		string(batch.Strategy),
		items,
		batch.GeneratedAt,
		batch.ExpiresAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to create recommendation batch", err)
	}

	return nil
}

// LatestForContext returns the most recent batch for the requester and context
func (a *RecommendationAdapter) LatestForContext(ctx context.Context, userID string, contextType entities.RecommendationContextType) (*entities.RecommendationBatch, error) {
	stmt := `
		SELECT id, user_id, session_id, context_type, strategy, items, generated_at, expires_at
		FROM recommendation_batches
		WHERE user_id = $1 AND context_type = $2
		ORDER BY generated_at DESC
		LIMIT 1
	`

	batch := &entities.RecommendationBatch{}
	var user, session sql.NullString
	var contextStr, strategyStr string
	var items []byte
	err := a.client.DB().QueryRowContext(ctx, stmt, userID, string(contextType)).Scan(
		&batch.ID,
		&user,
		&session,
		&contextStr,
		&strategyStr,
		&items,
		&batch.GeneratedAt,
		&batch.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("recommendation batch not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get recommendation batch", err)
	}

	batch.UserID = user.String
	batch.SessionID = session.String
	batch.ContextType = entities.RecommendationContextType(contextStr)
	batch.Strategy = entities.RecommendationStrategy(strategyStr)
	if err := json.Unmarshal(items, &batch.Items); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal batch items", err)
	}

	return batch, nil
}
