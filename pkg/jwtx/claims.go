package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes and issuer. Deployments override them through
// configuration.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	DefaultIssuer = "ecom-warehouse-api"
)

// Kind tells access and refresh tokens apart. It is carried in the "type"
// claim and every kind is signed with its own secret.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Payload is the caller supplied part of a token. Email and Role are only
// embedded in access tokens.
type Payload struct {
	Subject string
	Email   string
	Role    string
}

// Claims are the decoded contents of an access or refresh token.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the user at issuance time (access tokens only)
	Email string `json:"email,omitempty"`

	// Role of the user at issuance time (access tokens only)
	Role string `json:"role,omitempty"`

	Kind Kind `json:"type"`
}

// UserID returns the user the token was issued for.
func (c *Claims) UserID() string { return c.Subject }

// newClaims stamps the registered claims for a token of the given kind.
func newClaims(kind Kind, p Payload, issuer string, ttl time.Duration, now time.Time) Claims {
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Kind: kind,
	}

	if kind == KindAccess {
		c.Email = p.Email
		c.Role = p.Role
	}

	return c
}

// NewJTI returns a unique identifier for the "jti" claim. Two tokens issued
// for the same user within the same second still differ because of it.
func NewJTI() string {
	return uuid.NewString()
}
