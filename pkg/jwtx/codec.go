package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Options configures a Codec. A nil or empty secret disables the matching
// token kind.
type Options struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration // default: DefaultAccessTokenTTL
	RefreshTTL    time.Duration // default: DefaultRefreshTokenTTL
	Issuer        string        // default: DefaultIssuer
	Now           func() time.Time
}

// Codec signs and verifies HS256 access and refresh tokens. It holds no
// mutable state and is safe for concurrent use.
type Codec struct {
	opts   Options
	parser *jwt.Parser
}

// NewCodec returns a Codec with defaults applied to any zero option.
func NewCodec(opts Options) *Codec {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTokenTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = DefaultRefreshTokenTTL
	}
	if opts.Issuer == "" {
		opts.Issuer = DefaultIssuer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Codec{
		opts: opts,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(opts.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(opts.Now),
		),
	}
}

// Configured reports whether a secret is available for kind.
func (c *Codec) Configured(kind Kind) bool {
	_, err := c.secret(kind)
	return err == nil
}

// TTL returns the validity window for kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.opts.RefreshTTL
	}
	return c.opts.AccessTTL
}

// Issuer returns the "iss" value stamped into every token.
func (c *Codec) Issuer() string { return c.opts.Issuer }

// Issue signs a new token of the given kind for p.Subject.
func (c *Codec) Issue(kind Kind, p Payload) (string, error) {
	secret, err := c.secret(kind)
	if err != nil {
		return "", err
	}
	if p.Subject == "" {
		return "", ErrMissingSubject
	}

	claims := newClaims(kind, p, c.opts.Issuer, c.TTL(kind), c.opts.Now())
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign %s token: %w", kind, err)
	}

	return signed, nil
}

// Verify checks the signature, issuer and expiry of raw and that it is a
// token of the expected kind.
//
// The signing secret is chosen by the kind the token claims, so a validly
// signed token of the other kind yields ErrKindMismatch rather than a
// signature failure. An expired token yields ErrExpired whether or not its
// signature is valid.
func (c *Codec) Verify(raw string, expected Kind) (*Claims, error) {
	if _, err := c.secret(expected); err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		tc, ok := t.Claims.(*Claims)
		if !ok || !tc.Kind.Valid() {
			return nil, ErrMalformed
		}
		return c.secret(tc.Kind)
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired), c.expired(claims):
			return nil, ErrExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if claims.Kind != expected {
		return nil, ErrKindMismatch
	}

	return claims, nil
}

func (c *Codec) expired(claims *Claims) bool {
	if claims.ExpiresAt == nil {
		return false
	}
	return !c.opts.Now().Before(claims.ExpiresAt.Time)
}

func (c *Codec) secret(kind Kind) ([]byte, error) {
	var secret []byte
	switch kind {
	case KindAccess:
		secret = c.opts.AccessSecret
	case KindRefresh:
		secret = c.opts.RefreshSecret
	default:
		return nil, fmt.Errorf("%w: unknown token kind %q", ErrMalformed, kind)
	}

	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrConfig, kind)
	}
	return secret, nil
}
