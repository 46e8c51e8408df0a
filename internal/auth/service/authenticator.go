package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	"github.com/aussiebroadwan/shopauth/internal/auth/store"
	"github.com/aussiebroadwan/shopauth/pkg/httpx"
	"github.com/aussiebroadwan/shopauth/pkg/idtoken"
	"github.com/aussiebroadwan/shopauth/pkg/jwtx"
	"github.com/aussiebroadwan/shopauth/pkg/slogx"
)

// IdentityVerifier turns a bearer token into the identity of the caller.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// ExternalTokenVerifier validates identity tokens minted by an external
// provider. *idtoken.Verifier implements it.
type ExternalTokenVerifier interface {
	Verify(ctx context.Context, raw string) (idtoken.Identity, error)
}

// lookupActive resolves userID in the directory and rejects disabled
// accounts.
func lookupActive(ctx context.Context, users store.Users, userID string) (domain.User, error) {
	user, err := users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, dependency("lookup user", err)
	}
	if !user.IsActive {
		return domain.User{}, ErrAccountDeactivated
	}
	return user, nil
}

func accountError(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrAccountDeactivated)
}

// PrimaryVerifier accepts access tokens issued by this service.
type PrimaryVerifier struct {
	Codec *jwtx.Codec
	Users store.Users
}

func (v *PrimaryVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := v.Codec.Verify(token, jwtx.KindAccess)
	if err != nil {
		return nil, tokenError(err)
	}

	user, err := lookupActive(ctx, v.Users, claims.UserID())
	if err != nil {
		return nil, err
	}

	// Role and email come from the directory so that changes apply before
	// the access token expires.
	return &domain.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		IsActive:    user.IsActive,
		AuthMethod:  domain.AuthMethodPrimary,
	}, nil
}

// ExternalVerifier accepts identity tokens from an external provider, as long
// as the subject is also a local user.
type ExternalVerifier struct {
	Tokens ExternalTokenVerifier
	Users  store.Users
}

func (v *ExternalVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	ext, err := v.Tokens.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, idtoken.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	user, err := lookupActive(ctx, v.Users, ext.UserID)
	if err != nil {
		return nil, err
	}

	id := &domain.Identity{
		UserID:      user.ID,
		Email:       ext.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		IsActive:    user.IsActive,
		AuthMethod:  domain.AuthMethodExternal,
	}
	if id.Email == "" {
		id.Email = user.Email
	}
	if id.DisplayName == "" {
		id.DisplayName = ext.DisplayName
	}
	return id, nil
}

// FallbackVerifier tries Primary and, on any failure other than a dependency
// outage, Secondary. When both reject the token the caller only learns
// ErrTokenInvalid and the individual failures are logged. Dependency failures
// from either side, and account errors from Secondary (a verified external
// token whose local user is missing or disabled), are returned as is.
type FallbackVerifier struct {
	Primary   IdentityVerifier
	Secondary IdentityVerifier
}

func (v *FallbackVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	id, primaryErr := v.Primary.Verify(ctx, token)
	if primaryErr == nil {
		return id, nil
	}
	if isDependency(primaryErr) {
		return nil, primaryErr
	}

	id, secondaryErr := v.Secondary.Verify(ctx, token)
	if secondaryErr == nil {
		return id, nil
	}
	// The external token was valid but the local account is not usable.
	if isDependency(secondaryErr) || accountError(secondaryErr) {
		return nil, secondaryErr
	}

	slogx.FromContext(ctx).Warn("bearer token rejected by every verifier",
		"primary_error", primaryErr,
		"secondary_error", secondaryErr,
	)
	return nil, ErrTokenInvalid
}

// Authenticator resolves the Authorization header of a request.
type Authenticator struct {
	Verifier IdentityVerifier
	Observer Observer
}

// Authenticate returns a fresh identity for the bearer token in header.
// A missing header or any scheme other than exactly "Bearer " yields
// ErrTokenMissing.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (id *domain.Identity, err error) {
	obs := observerOrNop(a.Observer)

	token, ok := httpx.BearerToken(header)
	if !ok {
		obs.Authentication("none", OutcomeFailure)
		return nil, ErrTokenMissing
	}

	id, err = a.Verifier.Verify(ctx, token)
	if err != nil {
		obs.Authentication("bearer", outcomeOf(err))
		return nil, err
	}

	obs.Authentication(string(id.AuthMethod), OutcomeSuccess)
	return id, nil
}
