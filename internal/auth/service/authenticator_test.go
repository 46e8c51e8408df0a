package service_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	"github.com/aussiebroadwan/shopauth/internal/auth/service"
	"github.com/aussiebroadwan/shopauth/pkg/idtoken"
	"github.com/stretchr/testify/require"
)

// fakeExternal accepts a fixed set of raw tokens.
type fakeExternal struct {
	tokens map[string]idtoken.Identity
	err    error
}

func (f fakeExternal) Verify(_ context.Context, raw string) (idtoken.Identity, error) {
	if f.err != nil {
		return idtoken.Identity{}, f.err
	}
	id, ok := f.tokens[raw]
	if !ok {
		return idtoken.Identity{}, idtoken.ErrInvalid
	}
	return id, nil
}

// countingVerifier records how often it is consulted.
type countingVerifier struct {
	next  service.IdentityVerifier
	calls int
}

func (c *countingVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	c.calls++
	return c.next.Verify(ctx, token)
}

func TestAuthenticatorHeader(t *testing.T) {
	f := newFixture(t)
	auth := &service.Authenticator{
		Verifier: &service.PrimaryVerifier{Codec: f.codec, Users: f.store.Users()},
		Observer: f.obs,
	}
	_, pair := f.register(t, "uma@example.com", domain.RoleCustomer)

	for name, header := range map[string]string{
		"empty":        "",
		"no token":     "Bearer ",
		"wrong scheme": "Basic dXNlcjpwYXNz",
		"lower case":   "bearer " + pair.AccessToken,
		"bare token":   pair.AccessToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Authenticate(context.Background(), header)
			require.ErrorIs(t, err, service.ErrTokenMissing)
		})
	}

	t.Run("valid", func(t *testing.T) {
		id, err := auth.Authenticate(context.Background(), "Bearer "+pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, domain.AuthMethodPrimary, id.AuthMethod)
		require.Equal(t, "uma@example.com", id.Email)
		require.True(t, id.IsActive)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := auth.Authenticate(context.Background(), "Bearer "+pair.RefreshToken)
		require.ErrorIs(t, err, service.ErrTokenKindMismatch)
	})

	f.obs.mu.Lock()
	defer f.obs.mu.Unlock()
	require.Equal(t, 5, f.obs.auths["none/failure"])
	require.Equal(t, 1, f.obs.auths["primary/success"])
	require.Equal(t, 1, f.obs.auths["bearer/failure"])
}

func TestPrimaryVerifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := &service.PrimaryVerifier{Codec: f.codec, Users: f.store.Users()}

	u, pair := f.register(t, "vic@example.com", domain.RoleCustomer)

	t.Run("role comes from the directory", func(t *testing.T) {
		_, err := f.store.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)

		id, err := v.Verify(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, domain.RoleCustomer, id.Role)
		require.Equal(t, u.DisplayName, id.DisplayName)
	})

	t.Run("deactivated user", func(t *testing.T) {
		_, err := f.svc.SetUserActive(ctx, u.ID, false)
		require.NoError(t, err)

		_, err = v.Verify(ctx, pair.AccessToken)
		require.ErrorIs(t, err, service.ErrAccountDeactivated)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := v.Verify(ctx, "abc.def.ghi")
		require.ErrorIs(t, err, service.ErrTokenMalformed)
	})
}

func TestExternalVerifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "wes@example.com", domain.RoleAdmin)

	v := &service.ExternalVerifier{
		Tokens: fakeExternal{tokens: map[string]idtoken.Identity{
			"known":    {UserID: u.ID, Email: "wes@idp.example.com", DisplayName: "Wes From IdP"},
			"no-email": {UserID: u.ID},
			"stranger": {UserID: "01HZX3K5V4M8Q2R7T9W0Y1Z2A3", Email: "x@example.com"},
		}},
		Users: f.store.Users(),
	}

	id, err := v.Verify(ctx, "known")
	require.NoError(t, err)
	require.Equal(t, domain.AuthMethodExternal, id.AuthMethod)
	require.Equal(t, "wes@idp.example.com", id.Email)
	require.Equal(t, u.DisplayName, id.DisplayName)
	require.Equal(t, domain.RoleAdmin, id.Role)

	id, err = v.Verify(ctx, "no-email")
	require.NoError(t, err)
	require.Equal(t, u.Email, id.Email)

	_, err = v.Verify(ctx, "stranger")
	require.ErrorIs(t, err, service.ErrUserNotFound)

	_, err = v.Verify(ctx, "unknown")
	require.ErrorIs(t, err, service.ErrTokenMalformed)

	expired := &service.ExternalVerifier{Tokens: fakeExternal{err: idtoken.ErrExpired}, Users: f.store.Users()}
	_, err = expired.Verify(ctx, "anything")
	require.ErrorIs(t, err, service.ErrTokenExpired)
}

func TestFallbackVerifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, pair := f.register(t, "xena@example.com", domain.RoleCustomer)
	other, _ := f.register(t, "yuri@example.com", domain.RoleCustomer)

	v := &service.FallbackVerifier{
		Primary: &service.PrimaryVerifier{Codec: f.codec, Users: f.store.Users()},
		Secondary: &service.ExternalVerifier{
			Tokens: fakeExternal{tokens: map[string]idtoken.Identity{
				"idp-xena": {UserID: u.ID, Email: u.Email},
				"idp-yuri": {UserID: other.ID, Email: other.Email},
			}},
			Users: f.store.Users(),
		},
	}

	t.Run("primary token", func(t *testing.T) {
		id, err := v.Verify(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, domain.AuthMethodPrimary, id.AuthMethod)
	})

	t.Run("external token", func(t *testing.T) {
		id, err := v.Verify(ctx, "idp-xena")
		require.NoError(t, err)
		require.Equal(t, domain.AuthMethodExternal, id.AuthMethod)
		require.Equal(t, u.ID, id.UserID)
	})

	t.Run("rejected by both", func(t *testing.T) {
		_, err := v.Verify(ctx, "nobody-knows-this")
		require.ErrorIs(t, err, service.ErrTokenInvalid)
	})

	t.Run("external token for a disabled account", func(t *testing.T) {
		_, err := f.svc.SetUserActive(ctx, other.ID, false)
		require.NoError(t, err)

		_, err = v.Verify(ctx, "idp-yuri")
		require.ErrorIs(t, err, service.ErrAccountDeactivated)
	})

	t.Run("local account disabled falls through to external", func(t *testing.T) {
		z, zPair := f.register(t, "zed@example.com", domain.RoleCustomer)
		_, err := f.svc.SetUserActive(ctx, z.ID, false)
		require.NoError(t, err)

		secondary := &countingVerifier{next: v.Secondary}
		fb := &service.FallbackVerifier{Primary: v.Primary, Secondary: secondary}

		_, err = fb.Verify(ctx, zPair.AccessToken)
		require.ErrorIs(t, err, service.ErrTokenInvalid)
		require.Equal(t, 1, secondary.calls)
	})

	t.Run("directory outage is not masked", func(t *testing.T) {
		broken := newFixture(t)
		token := pair.AccessToken
		require.NoError(t, broken.store.Close())

		fb := &service.FallbackVerifier{
			Primary:   &service.PrimaryVerifier{Codec: f.codec, Users: broken.store.Users()},
			Secondary: &service.ExternalVerifier{Tokens: fakeExternal{}, Users: broken.store.Users()},
		}
		_, err := fb.Verify(ctx, token)
		require.ErrorIs(t, err, service.ErrDependency)
	})
}
