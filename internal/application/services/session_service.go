package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/pkg/config"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

// SessionService manages search session lifecycle: one session per continuous
// journey, touched on every search, closed after inactivity.
type SessionService struct {
	sessions repositories.SessionRepository
	cfg      config.SessionConfig
}

// NewSessionService creates a session service.
func NewSessionService(sessions repositories.SessionRepository, cfg config.SessionConfig) *SessionService {
	return &SessionService{sessions: sessions, cfg: cfg}
}

// GetOrCreate resolves the session for a request. An unknown or empty id, or
// an id whose session has gone inactive past the timeout, starts a fresh
// session rather than resurrecting the old one.
func (s *SessionService) GetOrCreate(ctx context.Context, sessionID, userID, channel string) (*entities.SearchSession, error) {
	now := time.Now().UTC()

	if sessionID != "" {
		existing, err := s.sessions.GetByID(ctx, sessionID)
		switch {
		case err == nil:
			if existing.ClosedAt == nil && !existing.ExpiredAt(now, s.cfg.InactivityTimeout) {
				return existing, nil
			}
		case !apperrors.IsNotFound(err):
			return nil, err
		}
	}

	session := &entities.SearchSession{
		ID:             uuid.New().String(),
		UserID:         userID,
		Channel:        channel,
		StartedAt:      now,
		LastActivityAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RecordSearch bumps the session's activity timestamp and search count.
func (s *SessionService) RecordSearch(ctx context.Context, session *entities.SearchSession) error {
	now := time.Now().UTC()
	session.LastActivityAt = now
	session.TotalSearches++
	return s.sessions.Touch(ctx, session.ID, now, session.TotalSearches)
}

// CloseExpired closes sessions idle past the inactivity timeout, returning
// how many were closed. Run from the background job, not request paths.
func (s *SessionService) CloseExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-s.cfg.InactivityTimeout)
	return s.sessions.CloseExpired(ctx, cutoff, now)
}
