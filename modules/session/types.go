package session

import "time"

// CredentialRequest asks for the current credential.
type CredentialRequest struct{}

// CredentialResponse carries the current credential and its decoded claims.
type CredentialResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}
