package model

import "time"

// Session mirrors the `sessions` table.  It is part of the persisted
// schema for completeness but is not wired into the login/refresh flows;
// session state lives in the stateless access token plus the rotating
// refresh token instead.
type Session struct {
	ID           string // UUID primary key
	UserID       string
	SessionToken string // unique
	IPAddress    string
	UserAgent    string
	ExpiresAt    time.Time
	IsActive     bool
	CreatedAt    time.Time
}
