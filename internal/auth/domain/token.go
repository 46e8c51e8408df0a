package domain

import "time"

// TokenType is the scheme clients put in front of the access token.
const TokenType = "Bearer"

// TokenPair is what register, login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration // lifetime of the access token
	TokenType    string
}

// Revocation is the single refresh token record kept per user. Only the
// SHA-256 fingerprint of the token is stored, never the token itself.
type Revocation struct {
	UserID    string
	TokenHash string
	Active    bool
	CreatedAt time.Time
	RevokedAt *time.Time
}
