// Package navigation decides, for every request and every client-side route
// change, whether a user may view a given path and, if not, where to send
// them instead. It is consumed by the API server's page middleware and by the
// SPA router guard through the navigation ops API.
package navigation

import "strings"

// UserState is a user's lifecycle stage: how far they have progressed
// through signup, onboarding and approval.
type UserState string

const (
	StateAnonymous     UserState = "anonymous"
	StateAuthenticated UserState = "authenticated" // signed in, no profile yet
	StateOnboarding    UserState = "onboarding"    // profile exists, no tenant attached
	StatePending       UserState = "pending"       // waiting for an admin's approval
	StateActive        UserState = "active"
)

// Context is the normalized snapshot of a user's authorization-relevant
// attributes for one decision. It is recomputed per request and never
// mutated in place.
type Context struct {
	UserState     UserState `json:"user_state"`
	Role          string    `json:"role,omitempty"`
	TenantID      string    `json:"tenant_id,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	AccountStatus string    `json:"account_status,omitempty"`

	// SpecialPermissions carries string flags such as the platform-admin
	// override granted to allow-listed emails.
	SpecialPermissions []string `json:"special_permissions,omitempty"`
}

func AnonymousContext() Context {
	return Context{UserState: StateAnonymous}
}

func (c Context) HasPermission(perm string) bool {
	for _, p := range c.SpecialPermissions {
		if p == perm {
			return true
		}
	}
	return false
}

// cacheKey is a pure function of exactly the fields that affect a decision.
func (c Context) cacheKey(path string) string {
	role := c.Role
	if role == "" {
		role = "no-role"
	}
	tenant := c.TenantID
	if tenant == "" {
		tenant = "no-tenant"
	}
	verified := "unverified"
	if c.EmailVerified {
		verified = "verified"
	}
	return strings.Join([]string{path, string(c.UserState), role, tenant, verified}, "|")
}

// ContextsEqual reports whether two contexts would produce identical
// decisions; used by clients to detect session changes.
func ContextsEqual(a, b Context) bool {
	if a.UserState != b.UserState ||
		a.Role != b.Role ||
		a.TenantID != b.TenantID ||
		a.EmailVerified != b.EmailVerified ||
		a.AccountStatus != b.AccountStatus ||
		len(a.SpecialPermissions) != len(b.SpecialPermissions) {
		return false
	}
	for i, p := range a.SpecialPermissions {
		if b.SpecialPermissions[i] != p {
			return false
		}
	}
	return true
}
