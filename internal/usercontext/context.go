// Package usercontext carries the authenticated caller's identity and
// roles through the request context. Token verification happens at the
// HTTP edge; the core only consumes these claims.
package usercontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Roles understood by the core services.
const (
	RoleStaff               = "staff"
	RoleSystem              = "system"
	RoleSkipAffiliationAuth = "skip_affiliation_auth"
	RoleExternalStaff       = "external_staff"
)

// Login sources for federated identities.
const (
	LoginSourceBCeID = "BCEID"
	LoginSourceBCSC  = "BCSC"
	LoginSourceBCROS = "BCROS"
	LoginSourceIDIR  = "IDIR"
	LoginSourceAPI   = "API_GW"
)

// UserContext describes the authenticated caller.
type UserContext struct {
	UserID      snowflake.ID
	Sub         string
	UserName    string
	FirstName   string
	LastName    string
	LoginSource string
	Roles       []string
}

// HasRole reports whether the caller carries the given role.
func (u UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsStaff reports whether the caller is internal staff.
func (u UserContext) IsStaff() bool { return u.HasRole(RoleStaff) }

// IsSystem reports whether the caller is an internal system account.
func (u UserContext) IsSystem() bool { return u.HasRole(RoleSystem) }

// IsExternalStaff reports whether the caller is an external staff viewer.
func (u UserContext) IsExternalStaff() bool { return u.HasRole(RoleExternalStaff) }

type contextKey struct{}

// WithUser stores the caller on the context.
func WithUser(ctx context.Context, user UserContext) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// FromContext returns the caller from the context.
func FromContext(ctx context.Context) (UserContext, bool) {
	user, ok := ctx.Value(contextKey{}).(UserContext)
	return user, ok
}
