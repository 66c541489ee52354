package models

import "time"

// TokenPair bundles a short-lived access token and a refresh token that can
// be exchanged exactly once.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// ConsumedRefreshToken records a refresh jti that has already been rotated.
type ConsumedRefreshToken struct {
	JTI        string
	AccountID  string
	ExpiresAt  time.Time
	ConsumedAt time.Time
}

// SecurityEvent is an append-only audit record.
type SecurityEvent struct {
	ID        string    `json:"id"`
	AccountID string    `json:"uid"`
	Message   string    `json:"message"`
	IPAddress string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
