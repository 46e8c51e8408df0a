package domain

import "time"

type User struct {
	ID           string
	Email        string // stored lower case, unique
	DisplayName  string
	PasswordHash string // argon2id PHC string, or bcrypt for accounts that predate it
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time // nil until the first login
}

// UserSummary is the client-safe view of a user. It never carries the
// password hash.
type UserSummary struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	IsActive    bool
	CreatedAt   time.Time
	LastLoginAt *time.Time
}

// Summary strips credentials from u.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
