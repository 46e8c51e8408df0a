package service

import (
	"strings"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// RegisterInput is the user supplied part of a registration. The json tags
// name the fields in validation messages.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"name"`
	Role        string `json:"role"` // optional, defaults to customer
}

func (in RegisterInput) normalize() RegisterInput {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	return in
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(MinPasswordLength, 0)),
		validation.Field(&in.DisplayName, validation.Required),
		validation.Field(&in.Role, validation.In(string(domain.RoleCustomer), string(domain.RoleAdmin))),
	)
}

// LoginInput carries credentials for Login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) normalize() LoginInput {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return in
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
	)
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Reason: err.Error()}
}
