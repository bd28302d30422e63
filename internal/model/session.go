package model

import "time"

type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenRedemption records a consumed single-use token by hash so a leaked
// reset link cannot be replayed inside its validity window.
type TokenRedemption struct {
	ID        int64     `json:"id"`
	TokenHash string    `json:"token_hash"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
