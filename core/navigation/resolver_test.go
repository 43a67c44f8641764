package navigation

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/lehine87/educanvas/core/user"
)

func newTestResolver(sessions SessionReader, profiles ProfileReader) *Resolver {
	cfg := DefaultConfig()
	cfg.PlatformAdminEmails = []string{"root@educanvas.io"}
	return NewResolver(cfg, sessions, profiles, nopLogger{})
}

func TestResolveFromRequestFastPath(t *testing.T) {
	sessions := &stubSessionReader{ident: &Identity{UserID: "u1", Email: "t@test.test"}}
	profiles := &stubProfileReader{}
	r := newTestResolver(sessions, profiles)

	req := httptest.NewRequest("GET", "/main", nil)
	got := r.ResolveFromRequest(context.Background(), req)

	// no auth cookie means no backend calls at all
	assert.Equal(t, AnonymousContext(), got)
	assert.Zero(t, sessions.calls)
	assert.Zero(t, profiles.calls)
}

func TestResolveFromRequestCookieVariants(t *testing.T) {
	tests := []struct {
		name     string
		cookie   string
		resolved bool
	}{
		{name: "plain auth token", cookie: "educanvas-auth-token=abc", resolved: true},
		{name: "tenant scoped auth token", cookie: "educanvas-tnt42-auth-token=abc", resolved: true},
		{name: "refresh token only", cookie: "educanvas-auth-refresh-token=abc", resolved: true},
		{name: "unrelated cookie", cookie: "theme=dark", resolved: false},
		{name: "no cookie", cookie: "", resolved: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &stubSessionReader{ident: &Identity{UserID: "u1", Email: "t@test.test"}}
			profiles := &stubProfileReader{profile: &Profile{
				UserID: "u1", Role: user.RoleViewer, TenantID: "tnt-1", Status: user.StatusActive,
			}}
			r := newTestResolver(sessions, profiles)

			req := httptest.NewRequest("GET", "/main", nil)
			if tt.cookie != "" {
				req.Header.Set("Cookie", tt.cookie)
			}
			got := r.ResolveFromRequest(context.Background(), req)
			if tt.resolved {
				assert.Equal(t, StateActive, got.UserState)
			} else {
				assert.Equal(t, StateAnonymous, got.UserState)
			}
		})
	}
}

func TestResolveFailsToAnonymous(t *testing.T) {
	t.Run("session error", func(t *testing.T) {
		sessions := &stubSessionReader{err: errors.New("session backend down")}
		r := newTestResolver(sessions, &stubProfileReader{})
		assert.Equal(t, AnonymousContext(), r.ResolveFromSession(context.Background()))
	})

	t.Run("no session", func(t *testing.T) {
		r := newTestResolver(&stubSessionReader{}, &stubProfileReader{})
		assert.Equal(t, AnonymousContext(), r.ResolveFromSession(context.Background()))
	})

	t.Run("profile error", func(t *testing.T) {
		sessions := &stubSessionReader{ident: &Identity{UserID: "u1", Email: "t@test.test"}}
		profiles := &stubProfileReader{err: errors.New("db down")}
		r := newTestResolver(sessions, profiles)
		assert.Equal(t, AnonymousContext(), r.ResolveFromSession(context.Background()))
	})
}

func TestResolveWithoutProfile(t *testing.T) {
	sessions := &stubSessionReader{ident: &Identity{UserID: "u1", Email: "t@test.test"}}
	r := newTestResolver(sessions, &stubProfileReader{})

	got := r.ResolveFromSession(context.Background())
	assert.Equal(t, StateAuthenticated, got.UserState)
	assert.Empty(t, got.SpecialPermissions)

	// the allow-listed email is flagged even before onboarding
	sessions.ident.Email = "root@educanvas.io"
	got = r.ResolveFromSession(context.Background())
	assert.Equal(t, StateAuthenticated, got.UserState)
	assert.Contains(t, got.SpecialPermissions, PermPlatformAdmin)
}

func TestContextFromProfile(t *testing.T) {
	r := newTestResolver(&stubSessionReader{}, &stubProfileReader{})

	tests := []struct {
		name      string
		profile   Profile
		email     string
		wantState UserState
		wantPerms []string
	}{
		{
			name:      "platform admin email active without tenant",
			profile:   Profile{Role: user.RoleViewer, Status: user.StatusPendingApproval},
			email:     "root@educanvas.io",
			wantState: StateActive,
			wantPerms: []string{PermPlatformAdmin, "root@educanvas.io"},
		},
		{
			name:      "platform admin role active without tenant",
			profile:   Profile{Role: user.RolePlatformAdmin},
			email:     "t@test.test",
			wantState: StateActive,
		},
		{
			name:      "no tenant means onboarding",
			profile:   Profile{Role: user.RoleStaff, Status: user.StatusActive},
			email:     "t@test.test",
			wantState: StateOnboarding,
		},
		{
			name:      "pending approval",
			profile:   Profile{Role: user.RoleStaff, TenantID: "tnt-1", Status: user.StatusPendingApproval},
			email:     "t@test.test",
			wantState: StatePending,
		},
		{
			name:      "active",
			profile:   Profile{Role: user.RoleStaff, TenantID: "tnt-1", Status: user.StatusActive},
			email:     "t@test.test",
			wantState: StateActive,
		},
		{
			name:      "suspended stays restricted",
			profile:   Profile{Role: user.RoleStaff, TenantID: "tnt-1", Status: user.StatusSuspended},
			email:     "t@test.test",
			wantState: StatePending,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ContextFromProfile(&tt.profile, tt.email)
			assert.Equal(t, tt.wantState, got.UserState)
			assert.Equal(t, tt.profile.Role, got.Role)
			assert.Equal(t, tt.profile.TenantID, got.TenantID)
			if tt.wantPerms != nil {
				assert.Equal(t, tt.wantPerms, got.SpecialPermissions)
			}
		})
	}
}
