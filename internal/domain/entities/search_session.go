package entities

import (
	"time"
)

// SearchSession identifies one continuous browsing/search journey. A session
// is created on the first query in a window, tracks last activity, and is
// closed after a configurable inactivity timeout. Once closed it is immutable
// apart from the ClosedAt timestamp.
type SearchSession struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"user_id,omitempty" db:"user_id"`
	Channel        string     `json:"channel,omitempty" db:"channel"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at" db:"last_activity_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	TotalSearches  int        `json:"total_searches" db:"total_searches"`
}

// Anonymous reports whether the session has no attributed user.
func (s *SearchSession) Anonymous() bool {
	return s.UserID == ""
}

// ExpiredAt reports whether the session's inactivity window has elapsed as of
// now.
func (s *SearchSession) ExpiredAt(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivityAt) > timeout
}
