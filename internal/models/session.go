package models

import "time"

// Session represents an authenticated user session
type Session struct {
	ID        int64     `json:"id"` // Zero for stores without numeric keys
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	TokenHash string    `json:"-"` // Never expose in JSON
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}
