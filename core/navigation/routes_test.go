package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehine87/educanvas/core/user"
)

func TestRouteTableMatch(t *testing.T) {
	table := NewRouteTable(DefaultConfig())

	tests := []struct {
		name       string
		path       string
		wantPath   string
		wantParams map[string]string
		wantMiss   bool
	}{
		{name: "exact", path: "/main", wantPath: "/main"},
		{name: "exact root", path: "/", wantPath: "/"},
		{name: "exact beats prefix", path: "/main/students/new", wantPath: "/main/students/new"},
		{name: "pattern detail", path: "/main/students/42", wantPath: "/main/students/{id}", wantParams: map[string]string{"id": "42"}},
		{name: "pattern edit", path: "/main/students/42/edit", wantPath: "/main/students/{id}/edit", wantParams: map[string]string{"id": "42"}},
		{name: "longest prefix wins", path: "/main/students/dashboard/charts", wantPath: "/main/students/dashboard"},
		{name: "prefix fallback", path: "/main/settings", wantPath: "/main"},
		{name: "root is not a prefix", path: "/nowhere", wantMiss: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, params, ok := table.Match(tt.path)
			if tt.wantMiss {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantPath, policy.Path)
			if tt.wantParams != nil {
				assert.Equal(t, tt.wantParams, params)
			}
		})
	}
}

func TestDefaultPathFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PlatformAdminEmails = []string{"root@educanvas.io"}
	table := NewRouteTable(cfg)

	tests := []struct {
		name string
		ctx  Context
		want string
	}{
		{name: "anonymous", ctx: AnonymousContext(), want: "/auth/login"},
		{name: "authenticated", ctx: Context{UserState: StateAuthenticated}, want: "/onboarding"},
		{name: "onboarding", ctx: Context{UserState: StateOnboarding}, want: "/onboarding"},
		{name: "pending", ctx: Context{UserState: StatePending}, want: "/pending-approval"},
		{name: "active platform admin", ctx: activeCtx(user.RolePlatformAdmin, ""), want: "/platform-admin"},
		{name: "active tenant admin", ctx: activeCtx(user.RoleTenantAdmin, "tnt-1"), want: "/tenant-admin"},
		{name: "active instructor", ctx: activeCtx(user.RoleInstructor, "tnt-1"), want: "/main"},
		{name: "active viewer", ctx: activeCtx(user.RoleViewer, "tnt-1"), want: "/main"},
		{name: "active without role", ctx: activeCtx("", "tnt-1"), want: "/main"},
		{
			name: "allow-listed email counts as platform admin",
			ctx: Context{UserState: StateActive,
				SpecialPermissions: []string{PermPlatformAdmin, "root@educanvas.io"}},
			want: "/platform-admin",
		},
		{name: "unknown state fails toward login", ctx: Context{UserState: "mystery"}, want: "/auth/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.DefaultPathFor(tt.ctx))
		})
	}
}

func TestIsPlatformAdmin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PlatformAdminEmails = []string{"root@educanvas.io"}
	table := NewRouteTable(cfg)

	assert.True(t, table.IsPlatformAdmin(activeCtx(user.RolePlatformAdmin, "")))
	assert.True(t, table.IsPlatformAdmin(Context{SpecialPermissions: []string{PermPlatformAdmin}}))
	assert.True(t, table.IsPlatformAdmin(Context{SpecialPermissions: []string{"root@educanvas.io"}}))
	assert.False(t, table.IsPlatformAdmin(activeCtx(user.RoleTenantAdmin, "tnt-1")))
	assert.False(t, table.IsPlatformAdmin(AnonymousContext()))
}

func TestPublicAndProtectedViews(t *testing.T) {
	table := NewRouteTable(DefaultConfig())

	assert.Contains(t, table.PublicRoutes(), "/auth/login")
	assert.Contains(t, table.PublicRoutes(), "/unauthorized")
	assert.NotContains(t, table.PublicRoutes(), "/main")

	assert.Contains(t, table.ProtectedRoutes(), "/main")
	assert.Contains(t, table.ProtectedRoutes(), "/platform-admin")
	assert.NotContains(t, table.ProtectedRoutes(), "/")
}

func TestContextsEqual(t *testing.T) {
	a := activeCtx(user.RoleViewer, "tnt-1")
	assert.True(t, ContextsEqual(a, a))

	b := a
	b.TenantID = "tnt-2"
	assert.False(t, ContextsEqual(a, b))

	c := a
	c.SpecialPermissions = []string{PermPlatformAdmin}
	assert.False(t, ContextsEqual(a, c))
}

func TestCacheKeyDistinguishesDecisionInputs(t *testing.T) {
	base := activeCtx(user.RoleViewer, "tnt-1")

	other := base
	other.EmailVerified = false
	assert.NotEqual(t, base.cacheKey("/main"), other.cacheKey("/main"))
	assert.NotEqual(t, base.cacheKey("/main"), base.cacheKey("/main/students"))
	assert.Equal(t, base.cacheKey("/main"), base.cacheKey("/main"))
}
