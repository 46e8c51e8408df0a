package http

import (
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	"github.com/aussiebroadwan/shopauth/pkg/authsdk"
)

func userView(u domain.UserSummary, withTimes bool) authsdk.User {
	v := authsdk.User{
		UID:      u.ID,
		Email:    u.Email,
		Name:     u.DisplayName,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
	if withTimes {
		created := u.CreatedAt
		v.CreatedAt = &created
		v.LastLogin = u.LastLoginAt
	}
	return v
}

func tokensView(p domain.TokenPair) authsdk.Tokens {
	return authsdk.Tokens{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    int(p.ExpiresIn / time.Second),
		TokenType:    p.TokenType,
	}
}
