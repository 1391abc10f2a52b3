package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

// SessionAdapter implements the SessionRepository interface
type SessionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSessionAdapter creates a new session adapter
func NewSessionAdapter(client *postgres.Client) repositories.SessionRepository {
	return &SessionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a session by id
func (a *SessionAdapter) GetByID(ctx context.Context, id string) (*entities.SearchSession, error) {
	query, args, err := a.db.Select(
		"id", "user_id", "channel", "started_at", "last_activity_at", "closed_at", "total_searches",
	).From("search_sessions").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build session query", err)
	}

	session := &entities.SearchSession{}
	var userID, channel sql.NullString
	var closedAt sql.NullTime
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&session.ID,
		&userID,
		&channel,
		&session.StartedAt,
		&session.LastActivityAt,
		&closedAt,
		&session.TotalSearches,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("search session not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get search session", err)
	}

	session.UserID = userID.String
	session.Channel = channel.String
	if closedAt.Valid {
		t := closedAt.Time
		session.ClosedAt = &t
	}

	return session, nil
}

// Create creates a new session
func (a *SessionAdapter) Create(ctx context.Context, session *entities.SearchSession) error {
	record := goqu.Record{
		"id":               session.ID,
		"user_id":          sql.NullString{String: session.UserID, Valid: session.UserID != ""},
		"channel":          sql.NullString{String: session.Channel, Valid: session.Channel != ""},
		"started_at":       session.StartedAt,
		"last_activity_at": session.LastActivityAt,
		"total_searches":   session.TotalSearches,
	}

	query, args, err := a.db.Insert("search_sessions").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build session insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create search session", err)
	}

	return nil
}

// Touch updates last activity and the running search count
func (a *SessionAdapter) Touch(ctx context.Context, id string, at time.Time, totalSearches int) error {
	query, args, err := a.db.Update("search_sessions").
		Set(goqu.Record{
			"last_activity_at": at,
			"total_searches":   totalSearches,
		}).
		Where(goqu.Ex{"id": id}, goqu.C("closed_at").IsNull()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build session touch", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to touch search session", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("open search session not found")
	}

	return nil
}

// CloseExpired stamps closed_at on open sessions whose last activity is
// before the cutoff
func (a *SessionAdapter) CloseExpired(ctx context.Context, cutoff time.Time, closedAt time.Time) (int64, error) {
	query, args, err := a.db.Update("search_sessions").
		Set(goqu.Record{"closed_at": closedAt}).
		Where(
			goqu.C("closed_at").IsNull(),
			goqu.C("last_activity_at").Lt(cutoff),
		).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build session close", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to close expired sessions", err)
	}
	closed, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to read closed count", err)
	}

	return closed, nil
}
