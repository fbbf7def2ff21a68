package models

import "time"

// Session backs one issued refresh token. Only the SHA-256 hex digest of the
// token is stored. The only mutation is Revoked going from false to true.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	IPAddress *string
	UserAgent *string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// UsableAt reports whether the session can still be rotated at now.
func (s *Session) UsableAt(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt.After(now)
}
