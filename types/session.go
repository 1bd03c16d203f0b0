package types

import "time"

// Session is the per-user login state. It is passed explicitly to whoever
// needs it instead of living in process globals.
type Session struct {
	Username  string    `json:"username"`
	LoggedIn  bool      `json:"logged_in"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewSession(username string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		Username:  username,
		LoggedIn:  true,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// Clear resets the session to the logged-out state.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	*s = Session{}
}

// Active reports whether the session is logged in and not expired at now.
// A zero ExpiresAt never expires.
func (s *Session) Active(now time.Time) bool {
	if s == nil || !s.LoggedIn {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}
