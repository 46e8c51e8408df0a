package service

import "github.com/aussiebroadwan/shopauth/internal/auth/domain"

// Guard decides whether an identity may continue.
type Guard func(id *domain.Identity) error

// RequireRole allows identities holding any of roles.
func RequireRole(roles ...domain.Role) Guard {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(id *domain.Identity) error {
		if id == nil {
			return ErrUnauthenticated
		}
		if _, ok := allowed[id.Role]; !ok {
			return ErrForbidden
		}
		return nil
	}
}

func RequireAdmin() Guard { return RequireRole(domain.RoleAdmin) }

func RequireCustomerOrAdmin() Guard { return RequireRole(domain.RoleCustomer, domain.RoleAdmin) }
