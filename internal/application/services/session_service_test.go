package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/marketdiscovery/pkg/config"
)

func newTestSessionService() (*SessionService, *SessionRepoFake) {
	repo := NewSessionRepoFake()
	return NewSessionService(repo, config.SessionConfig{InactivityTimeout: 30 * time.Minute}), repo
}

func TestSessionService_CreatesWhenUnknown(t *testing.T) {
	svc, _ := newTestSessionService()

	session, err := svc.GetOrCreate(context.Background(), "", "u1", "web")

	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "u1", session.UserID)
	assert.False(t, session.Anonymous())
	assert.Zero(t, session.TotalSearches)
}

func TestSessionService_ReusesActiveSession(t *testing.T) {
	svc, _ := newTestSessionService()

	first, err := svc.GetOrCreate(context.Background(), "", "", "web")
	require.NoError(t, err)
	assert.True(t, first.Anonymous())

	second, err := svc.GetOrCreate(context.Background(), first.ID, "", "web")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSessionService_ExpiredSessionStartsFresh(t *testing.T) {
	svc, repo := newTestSessionService()

	stale, err := svc.GetOrCreate(context.Background(), "", "", "web")
	require.NoError(t, err)
	repo.Sessions[stale.ID].LastActivityAt = time.Now().UTC().Add(-time.Hour)

	fresh, err := svc.GetOrCreate(context.Background(), stale.ID, "", "web")
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID, "an idle session is never resurrected")
}

func TestSessionService_RecordSearch(t *testing.T) {
	svc, repo := newTestSessionService()

	session, err := svc.GetOrCreate(context.Background(), "", "", "web")
	require.NoError(t, err)

	require.NoError(t, svc.RecordSearch(context.Background(), session))
	require.NoError(t, svc.RecordSearch(context.Background(), session))

	assert.Equal(t, 2, repo.Sessions[session.ID].TotalSearches)
}

func TestSessionService_CloseExpired(t *testing.T) {
	svc, repo := newTestSessionService()

	active, err := svc.GetOrCreate(context.Background(), "", "", "web")
	require.NoError(t, err)
	idle, err := svc.GetOrCreate(context.Background(), "", "", "web")
	require.NoError(t, err)
	repo.Sessions[idle.ID].LastActivityAt = time.Now().UTC().Add(-time.Hour)

	closed, err := svc.CloseExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)
	assert.Nil(t, repo.Sessions[active.ID].ClosedAt)
	assert.NotNil(t, repo.Sessions[idle.ID].ClosedAt)
}
