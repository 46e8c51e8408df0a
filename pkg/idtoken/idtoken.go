// Package idtoken verifies identity tokens minted by an external identity
// provider (for example Firebase Authentication) against the provider's
// published JSON Web Key Set.
package idtoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// FirebaseJWKSURL is where Google publishes the keys that sign Firebase ID tokens.
const FirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

var (
	ErrInvalid   = errors.New("idtoken: invalid identity token")
	ErrExpired   = errors.New("idtoken: identity token expired")
	ErrNoSubject = errors.New("idtoken: identity token has no subject")
)

// Identity is what the provider vouches for.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

// Claims are the ID token claims we read.
type Claims struct {
	jwt.RegisteredClaims

	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
}

// Config describes an identity provider.
type Config struct {
	JWKSURL  string
	Issuer   string
	Audience string

	// RefreshInterval is how often the key set is re-fetched in the background.
	RefreshInterval time.Duration
}

// FirebaseConfig returns the Config for a Firebase project.
func FirebaseConfig(projectID string) Config {
	return Config{
		JWKSURL:  FirebaseJWKSURL,
		Issuer:   "https://securetoken.google.com/" + projectID,
		Audience: projectID,
	}
}

// Verifier checks RS256 identity tokens.
type Verifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
	jwks    *keyfunc.JWKS
}

// New returns a Verifier that resolves signing keys with kf. Tests use it with
// keyfunc.NewGiven.
func New(kf jwt.Keyfunc, issuer, audience string, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return &Verifier{
		keyfunc: kf,
		parser:  jwt.NewParser(opts...),
	}
}

// NewRemote fetches the provider's key set and keeps it refreshed in the
// background until Close is called.
func NewRemote(ctx context.Context, cfg Config, logger *slog.Logger) (*Verifier, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("idtoken: JWKS URL is required")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		Ctx: ctx,
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to refresh identity provider key set", "url", cfg.JWKSURL, "err", err)
		},
		RefreshInterval:   cfg.RefreshInterval,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("idtoken: fetch key set: %w", err)
	}

	v := New(jwks.Keyfunc, cfg.Issuer, cfg.Audience, nil)
	v.jwks = jwks
	return v, nil
}

// Verify validates raw and returns the identity it asserts.
func (v *Verifier) Verify(ctx context.Context, raw string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, v.keyfunc); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if claims.Subject == "" {
		return Identity{}, ErrNoSubject
	}

	return Identity{
		UserID:      claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}, nil
}

// Close stops the background key refresh, if any.
func (v *Verifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
