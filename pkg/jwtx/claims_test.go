package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewClaims(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Payload{Subject: "user-1", Email: "alice@example.com", Role: "customer"}

	t.Run("access tokens carry email and role", func(t *testing.T) {
		c := newClaims(KindAccess, p, "ecom-warehouse-api", 15*time.Minute, now)

		require.Equal(t, "user-1", c.UserID())
		require.Equal(t, "alice@example.com", c.Email)
		require.Equal(t, "customer", c.Role)
		require.Equal(t, KindAccess, c.Kind)
		require.Equal(t, "ecom-warehouse-api", c.Issuer)
		require.Equal(t, now.Add(15*time.Minute), c.ExpiresAt.Time)
		require.NotEmpty(t, c.ID)
	})

	t.Run("refresh tokens only carry the subject", func(t *testing.T) {
		c := newClaims(KindRefresh, p, "ecom-warehouse-api", time.Hour, now)

		require.Equal(t, "user-1", c.Subject)
		require.Empty(t, c.Email)
		require.Empty(t, c.Role)
		require.Equal(t, KindRefresh, c.Kind)
	})

	t.Run("jti differs between tokens", func(t *testing.T) {
		a := newClaims(KindRefresh, p, "iss", time.Hour, now)
		b := newClaims(KindRefresh, p, "iss", time.Hour, now)
		require.NotEqual(t, a.ID, b.ID)
	})
}

func TestKindValid(t *testing.T) {
	require.True(t, KindAccess.Valid())
	require.True(t, KindRefresh.Valid())
	require.False(t, Kind("id").Valid())
	require.False(t, Kind("").Valid())
}
