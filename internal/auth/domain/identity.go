package domain

// AuthMethod records which verifier accepted a request's credential.
type AuthMethod string

const (
	AuthMethodPrimary  AuthMethod = "primary"
	AuthMethodExternal AuthMethod = "external"
)

// Identity is the authenticated caller of a single request. It is built per
// request and never cached across requests.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	Role        Role
	IsActive    bool
	AuthMethod  AuthMethod
}
