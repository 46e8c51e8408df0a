package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	"github.com/aussiebroadwan/shopauth/internal/auth/store"
	"github.com/aussiebroadwan/shopauth/pkg/cryptox"
	"github.com/aussiebroadwan/shopauth/pkg/idx"
	"github.com/aussiebroadwan/shopauth/pkg/jwtx"
	"github.com/aussiebroadwan/shopauth/pkg/slogx"
)

// Operation names reported to the Observer.
const (
	OpRegister      = "register"
	OpLogin         = "login"
	OpRefresh       = "refresh"
	OpLogout        = "logout"
	OpLogoutAll     = "logout_all"
	OpProfile       = "profile"
	OpSetUserActive = "set_user_active"
)

// AuthService implements registration, login and the refresh token
// lifecycle. Every user has at most one active refresh token; issuing a new
// pair replaces it.
type AuthService struct {
	Store store.Store
	Codec *jwtx.Codec

	// Revocations overrides where refresh token records live. When nil the
	// records share the Store's database and are written in the same
	// transaction as the user changes.
	Revocations store.Revocations

	Observer Observer
	Now      func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) observe(op string, err error) {
	observerOrNop(s.Observer).AuthOperation(op, outcomeOf(err))
}

// revocations returns the repository to use within tx. With an external
// backend tx is ignored.
func (s *AuthService) revocations(tx store.Store) store.Revocations {
	if s.Revocations != nil {
		return s.Revocations
	}
	return tx.Revocations()
}

// issuePair signs a new access and refresh token for u and returns the pair
// together with the fingerprint to persist.
func (s *AuthService) issuePair(u domain.User) (domain.TokenPair, string, error) {
	access, err := s.Codec.Issue(jwtx.KindAccess, jwtx.Payload{
		Subject: u.ID,
		Email:   u.Email,
		Role:    string(u.Role),
	})
	if err != nil {
		return domain.TokenPair{}, "", dependency("issue access token", err)
	}

	refresh, err := s.Codec.Issue(jwtx.KindRefresh, jwtx.Payload{Subject: u.ID})
	if err != nil {
		return domain.TokenPair{}, "", dependency("issue refresh token", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.Codec.TTL(jwtx.KindAccess),
		TokenType:    domain.TokenType,
	}, cryptox.FingerprintToken(refresh), nil
}

// Register creates a customer or admin account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (summary domain.UserSummary, pair domain.TokenPair, err error) {
	defer func() { s.observe(OpRegister, err) }()
	l := slogx.FromContext(ctx)

	// 1. Validate and normalise input
	in = in.normalize()
	if err := in.Validate(); err != nil {
		return domain.UserSummary{}, domain.TokenPair{}, invalid(err)
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return domain.UserSummary{}, domain.TokenPair{}, &ValidationError{Reason: err.Error()}
	}

	// 2. Reject known emails before paying for the password hash
	if _, err := s.Store.Users().GetUserByEmail(ctx, in.Email); err == nil {
		return domain.UserSummary{}, domain.TokenPair{}, ErrDuplicateUser
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.UserSummary{}, domain.TokenPair{}, dependency("lookup user", err)
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.UserSummary{}, domain.TokenPair{}, dependency("hash password", err)
	}

	now := s.now()
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 3. Sign the pair before touching the store so a codec failure
	//    leaves nothing behind
	pair, fingerprint, err := s.issuePair(user)
	if err != nil {
		return domain.UserSummary{}, domain.TokenPair{}, err
	}
	record := domain.Revocation{UserID: user.ID, TokenHash: fingerprint, Active: true, CreatedAt: now}

	// 4. Create the user and its revocation record together
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateUser
			}
			return dependency("create user", err)
		}
		if s.Revocations != nil {
			return nil
		}
		if err := tx.Revocations().Put(ctx, record); err != nil {
			return dependency("store refresh token", err)
		}
		return nil
	})
	if err != nil {
		return domain.UserSummary{}, domain.TokenPair{}, err
	}

	// 5. An external revocation backend is written after the commit. If it
	//    fails the account exists but no tokens are handed out; logging in
	//    again recovers.
	if s.Revocations != nil {
		if err := s.Revocations.Put(ctx, record); err != nil {
			l.Error("failed to store refresh token after registration", "user_id", user.ID, "error", err)
			return domain.UserSummary{}, domain.TokenPair{}, dependency("store refresh token", err)
		}
	}

	l.Info("user registered", slog.String("user_id", user.ID), slog.String("role", string(role)))
	return user.Summary(), pair, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck spends the same work as a real verification so unknown
// emails are not distinguishable by response time.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword("shopauth-timing-equaliser")
	})
	_ = cryptox.VerifyPassword(password, dummyHash)
}

// Login checks credentials and issues a new pair, invalidating whichever
// refresh token the user held before.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (summary domain.UserSummary, pair domain.TokenPair, err error) {
	defer func() { s.observe(OpLogin, err) }()
	l := slogx.FromContext(ctx)

	in = in.normalize()
	if err := in.Validate(); err != nil {
		return domain.UserSummary{}, domain.TokenPair{}, invalid(err)
	}

	// 1. Look the user up; unknown emails and wrong passwords look the same
	user, err := s.Store.Users().GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			burnPasswordCheck(in.Password)
			return domain.UserSummary{}, domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.UserSummary{}, domain.TokenPair{}, dependency("lookup user", err)
	}

	if err := cryptox.VerifyPassword(in.Password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("stored password hash unusable", "user_id", user.ID, "error", err)
		}
		return domain.UserSummary{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	// 2. Only holders of the right password learn the account is disabled
	if !user.IsActive {
		return domain.UserSummary{}, domain.TokenPair{}, ErrAccountDeactivated
	}

	// 3. Issue the pair
	pair, fingerprint, err := s.issuePair(user)
	if err != nil {
		return domain.UserSummary{}, domain.TokenPair{}, err
	}
	now := s.now()
	record := domain.Revocation{UserID: user.ID, TokenHash: fingerprint, Active: true, CreatedAt: now}

	// 4. With an external backend the record is written first so that a
	//    failure there leaves the user untouched.
	if s.Revocations != nil {
		if err := s.Revocations.Put(ctx, record); err != nil {
			return domain.UserSummary{}, domain.TokenPair{}, dependency("store refresh token", err)
		}
	}

	// 5. Persist the login and, for legacy hashes, upgrade to argon2id
	var rehash string
	if cryptox.NeedsRehash(user.PasswordHash) {
		if h, err := cryptox.HashPassword(in.Password); err != nil {
			l.Warn("password rehash failed", "user_id", user.ID, "error", err)
		} else {
			rehash = h
		}
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if s.Revocations == nil {
			if err := tx.Revocations().Put(ctx, record); err != nil {
				return dependency("store refresh token", err)
			}
		}
		if err := tx.Users().UpdateLastLogin(ctx, user.ID, now); err != nil {
			return dependency("update last login", err)
		}
		if rehash != "" {
			if err := tx.Users().UpdatePasswordHash(ctx, user.ID, rehash); err != nil {
				return dependency("upgrade password hash", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.UserSummary{}, domain.TokenPair{}, err
	}

	if rehash != "" {
		l.Info("upgraded legacy password hash", "user_id", user.ID)
	}

	user.LastLoginAt = &now
	return user.Summary(), pair, nil
}

// Refresh rotates a refresh token. The presented token must be the user's
// current one; once rotated it can never be used again.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair domain.TokenPair, err error) {
	defer func() { s.observe(OpRefresh, err) }()
	l := slogx.FromContext(ctx)

	if refreshToken == "" {
		return domain.TokenPair{}, &ValidationError{Reason: "refreshToken: cannot be blank."}
	}

	// 1. Verify signature, expiry and kind
	claims, err := s.Codec.Verify(refreshToken, jwtx.KindRefresh)
	if err != nil {
		return domain.TokenPair{}, tokenError(err)
	}
	userID := claims.UserID()
	presented := cryptox.FingerprintToken(refreshToken)

	// 2. Cheap pre-check against the stored record; the swap below is what
	//    actually enforces single use
	revs := s.revocations(s.Store)
	current, err := revs.Get(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.TokenPair{}, ErrTokenRevoked
	case err != nil:
		return domain.TokenPair{}, dependency("load refresh token", err)
	case !current.Active || current.TokenHash != presented:
		l.Info("stale refresh token presented", "user_id", userID)
		return domain.TokenPair{}, ErrTokenRevoked
	}

	// 3. The user must still exist and be active
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	// 4. Issue, then compare-and-swap the fingerprint
	pair, next, err := s.issuePair(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := revs.Replace(ctx, userID, presented, next); err != nil {
		if errors.Is(err, store.ErrConflict) {
			observerOrNop(s.Observer).RefreshConflict()
			l.Warn("concurrent refresh lost the race", "user_id", userID)
			return domain.TokenPair{}, ErrTokenRevoked
		}
		return domain.TokenPair{}, dependency("rotate refresh token", err)
	}

	return pair, nil
}

// Logout deactivates the user's record when refreshToken is its current
// token. Every failure is logged and swallowed.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	l := slogx.FromContext(ctx)
	if refreshToken == "" {
		s.observe(OpLogout, nil)
		return
	}

	claims, err := s.Codec.Verify(refreshToken, jwtx.KindRefresh)
	if err != nil {
		l.Warn("logout with unverifiable refresh token", "error", err)
		s.observe(OpLogout, ErrTokenInvalid)
		return
	}

	err = s.revocations(s.Store).Revoke(ctx, claims.UserID(), cryptox.FingerprintToken(refreshToken))
	switch {
	case err == nil:
		l.Info("refresh token revoked", "user_id", claims.UserID())
	case errors.Is(err, store.ErrNotFound):
		l.Debug("logout with a refresh token that is no longer current", "user_id", claims.UserID())
		err = nil
	default:
		l.Warn("failed to revoke refresh token on logout", "user_id", claims.UserID(), "error", err)
		err = dependency("revoke refresh token", err)
	}
	s.observe(OpLogout, err)
}

// LogoutAll removes the user's refresh token record so no refresh succeeds
// until the next login.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (err error) {
	defer func() { s.observe(OpLogoutAll, err) }()

	if err := s.revocations(s.Store).Delete(ctx, userID); err != nil {
		return dependency("delete refresh tokens", err)
	}
	slogx.FromContext(ctx).Info("all sessions revoked", "user_id", userID)
	return nil
}

// GetProfile returns the active user's summary.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (summary domain.UserSummary, err error) {
	defer func() { s.observe(OpProfile, err) }()

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return domain.UserSummary{}, err
	}
	return user.Summary(), nil
}

// SetUserActive enables or disables an account. Disabling also drops the
// user's refresh token record so outstanding sessions cannot be refreshed.
func (s *AuthService) SetUserActive(ctx context.Context, userID string, active bool) (summary domain.UserSummary, err error) {
	defer func() { s.observe(OpSetUserActive, err) }()
	l := slogx.FromContext(ctx)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetUserActive(ctx, userID, active); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return dependency("set user active", err)
		}
		if active || s.Revocations != nil {
			return nil
		}
		if err := tx.Revocations().Delete(ctx, userID); err != nil {
			return dependency("delete refresh tokens", err)
		}
		return nil
	})
	if err != nil {
		return domain.UserSummary{}, err
	}

	if !active && s.Revocations != nil {
		if err := s.Revocations.Delete(ctx, userID); err != nil {
			return domain.UserSummary{}, dependency("delete refresh tokens", err)
		}
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.UserSummary{}, dependency("reload user", err)
	}

	l.Info("user activation changed", "user_id", userID, "active", active)
	return user.Summary(), nil
}

func (s *AuthService) activeUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
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
