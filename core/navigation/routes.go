package navigation

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lehine87/educanvas/core/user"
)

// PermPlatformAdmin is the special-permission flag carried by contexts whose
// email is on the platform-admin allow-list.
const PermPlatformAdmin = "platform_admin"

// Config holds the navigation system's process-start constants. None of it
// is runtime-mutable.
type Config struct {
	LoginPath           string
	DashboardPath       string
	OnboardingPath      string
	PendingApprovalPath string
	AccessDeniedPath    string

	// RolePaths maps a role to its landing path. Kept as an explicit,
	// swappable table because it is coupled to the product's current role set.
	RolePaths map[string]string

	// PlatformAdminEmails grants the platform-admin override by email.
	PlatformAdminEmails []string

	CacheTTL      time.Duration
	Debug         bool
	EnableLogging bool
}

func DefaultConfig() Config {
	return Config{
		LoginPath:           "/auth/login",
		DashboardPath:       "/main",
		OnboardingPath:      "/onboarding",
		PendingApprovalPath: "/pending-approval",
		AccessDeniedPath:    "/unauthorized",
		RolePaths: map[string]string{
			user.RolePlatformAdmin: "/platform-admin",
			user.RoleTenantAdmin:   "/tenant-admin",
			user.RoleInstructor:    "/main",
			user.RoleStaff:         "/main",
			user.RoleViewer:        "/main",
		},
		CacheTTL:      5 * time.Minute,
		EnableLogging: true,
	}
}

// Policy is the static access rule set for one path. Policies are defined at
// process start and immutable thereafter.
type Policy struct {
	Path          string
	AllowedStates []UserState
	// AllowedRoles, when non-empty, is enforced in addition to the state check.
	AllowedRoles []string
	// RequiresEmailVerification is advisory only: a violation is logged, not
	// blocked. Kept that way on purpose; flip only as a product decision.
	RequiresEmailVerification bool
	// RedirectTo may bounce a user conditionally; "" means no custom redirect.
	RedirectTo func(Context) string
	// FallbackRoute is used when the role check fails, instead of the
	// context's default path.
	FallbackRoute string
	Public        bool
}

func (p *Policy) allowsState(s UserState) bool {
	for _, st := range p.AllowedStates {
		if st == s {
			return true
		}
	}
	return false
}

func (p *Policy) allowsRole(role string) bool {
	for _, r := range p.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

type patternRoute struct {
	pattern string
	re      *regexp.Regexp
	param   string
	policy  *Policy
}

// RouteTable is the static registry mapping paths to policies, plus the
// derived public/protected views computed once at load.
type RouteTable struct {
	cfg      Config
	exact    map[string]*Policy
	patterns []patternRoute
	// exact paths sorted by descending length, for the longest-prefix fallback
	prefixPaths []string

	public    []string
	protected []string
}

var allStates = []UserState{StateAnonymous, StateAuthenticated, StateOnboarding, StatePending, StateActive}

// NewRouteTable builds the application's route policy table.
func NewRouteTable(cfg Config) *RouteTable {
	t := &RouteTable{cfg: cfg, exact: make(map[string]*Policy)}

	anonymousOnly := func(ctx Context) string {
		// already signed-in users get bounced to their landing page
		if ctx.UserState != StateAnonymous {
			return t.DefaultPathFor(ctx)
		}
		return ""
	}

	tenantRoles := []string{user.RoleTenantAdmin, user.RoleInstructor, user.RoleStaff}
	mainRoles := []string{user.RolePlatformAdmin, user.RoleTenantAdmin, user.RoleInstructor, user.RoleStaff, user.RoleViewer}
	writeRoles := []string{user.RolePlatformAdmin, user.RoleTenantAdmin, user.RoleStaff}

	t.add(&Policy{
		Path:          "/",
		AllowedStates: allStates,
		RedirectTo:    func(ctx Context) string { return t.DefaultPathFor(ctx) },
		Public:        true,
	})

	// auth
	t.add(&Policy{Path: "/auth/login", AllowedStates: []UserState{StateAnonymous}, RedirectTo: anonymousOnly, Public: true})
	t.add(&Policy{Path: "/auth/signup", AllowedStates: []UserState{StateAnonymous}, RedirectTo: anonymousOnly, Public: true})
	t.add(&Policy{Path: "/auth/reset-password", AllowedStates: []UserState{StateAnonymous}, RedirectTo: anonymousOnly, Public: true})
	t.add(&Policy{Path: "/auth/update-password", AllowedStates: []UserState{StateAuthenticated, StateOnboarding, StatePending, StateActive}})

	// onboarding & approval
	t.add(&Policy{
		Path:          "/onboarding",
		AllowedStates: []UserState{StateAuthenticated, StateOnboarding},
		RedirectTo: func(ctx Context) string {
			// users past onboarding get sent where they belong
			switch ctx.UserState {
			case StatePending:
				return cfg.PendingApprovalPath
			case StateActive:
				return t.DefaultPathFor(ctx)
			}
			return ""
		},
	})
	t.add(&Policy{
		Path:          "/pending-approval",
		AllowedStates: []UserState{StatePending},
		RedirectTo: func(ctx Context) string {
			switch ctx.UserState {
			case StateActive:
				return t.DefaultPathFor(ctx)
			case StateOnboarding, StateAuthenticated:
				return cfg.OnboardingPath
			}
			return ""
		},
	})

	// platform admin
	t.add(&Policy{
		Path:          "/platform-admin",
		AllowedStates: []UserState{StateActive},
		AllowedRoles:  []string{user.RolePlatformAdmin},
		RedirectTo: func(ctx Context) string {
			if !t.IsPlatformAdmin(ctx) {
				return "/tenant-admin"
			}
			return ""
		},
		FallbackRoute: "/tenant-admin",
	})

	// tenant admin
	t.add(&Policy{
		Path:          "/tenant-admin",
		AllowedStates: []UserState{StateActive},
		AllowedRoles:  tenantRoles,
		RedirectTo: func(ctx Context) string {
			if t.IsPlatformAdmin(ctx) {
				return "/platform-admin"
			}
			if ctx.TenantID == "" {
				return cfg.OnboardingPath
			}
			return ""
		},
	})

	// main dashboard
	t.add(&Policy{
		Path:          "/main",
		AllowedStates: []UserState{StateActive},
		AllowedRoles:  mainRoles,
		RedirectTo: func(ctx Context) string {
			// admins and tenant members land on their own dashboards (one-way)
			if t.IsPlatformAdmin(ctx) {
				return "/platform-admin"
			}
			if ctx.TenantID != "" {
				switch ctx.Role {
				case user.RoleTenantAdmin, user.RoleInstructor, user.RoleStaff:
					return "/tenant-admin"
				}
			}
			return "" // viewers stay here
		},
	})

	// students
	t.add(&Policy{Path: "/main/students", AllowedStates: []UserState{StateActive}, AllowedRoles: mainRoles})
	t.add(&Policy{Path: "/main/students/new", AllowedStates: []UserState{StateActive}, AllowedRoles: writeRoles})
	t.add(&Policy{Path: "/main/students/dashboard", AllowedStates: []UserState{StateActive},
		AllowedRoles: []string{user.RolePlatformAdmin, user.RoleTenantAdmin, user.RoleInstructor, user.RoleStaff}})
	t.addPattern("/main/students/{id}", "id", `^/main/students/([^/]+)$`,
		&Policy{Path: "/main/students/{id}", AllowedStates: []UserState{StateActive}, AllowedRoles: mainRoles})
	t.addPattern("/main/students/{id}/edit", "id", `^/main/students/([^/]+)/edit$`,
		&Policy{Path: "/main/students/{id}/edit", AllowedStates: []UserState{StateActive}, AllowedRoles: writeRoles})

	t.add(&Policy{Path: "/unauthorized", AllowedStates: allStates, Public: true})

	t.finalize()
	return t
}

func (t *RouteTable) add(p *Policy) {
	t.exact[p.Path] = p
}

func (t *RouteTable) addPattern(pattern, param, expr string, p *Policy) {
	t.patterns = append(t.patterns, patternRoute{
		pattern: pattern,
		re:      regexp.MustCompile(expr),
		param:   param,
		policy:  p,
	})
}

// finalize computes the derived views; called once, after all adds.
func (t *RouteTable) finalize() {
	t.prefixPaths = make([]string, 0, len(t.exact))
	for path, p := range t.exact {
		t.prefixPaths = append(t.prefixPaths, path)
		if p.Public {
			t.public = append(t.public, path)
		} else {
			t.protected = append(t.protected, path)
		}
	}
	// longest first, so the first prefix hit wins
	sort.Slice(t.prefixPaths, func(i, j int) bool { return len(t.prefixPaths[i]) > len(t.prefixPaths[j]) })
	sort.Strings(t.public)
	sort.Strings(t.protected)
}

// Match resolves a path to its policy: exact match first, then single
// dynamic-segment patterns, then the longest defined path that is a prefix
// of the requested one. ok is false when nothing matches.
func (t *RouteTable) Match(path string) (policy *Policy, params map[string]string, ok bool) {
	if p, found := t.exact[path]; found {
		return p, map[string]string{}, true
	}

	for _, pr := range t.patterns {
		if m := pr.re.FindStringSubmatch(path); m != nil {
			params = map[string]string{}
			if len(m) > 1 {
				params[pr.param] = m[1]
			}
			return pr.policy, params, true
		}
	}

	for _, prefix := range t.prefixPaths {
		if prefix != "/" && strings.HasPrefix(path, prefix) {
			return t.exact[prefix], map[string]string{}, true
		}
	}

	return nil, nil, false
}

// IsPlatformAdmin reports whether the context holds the platform-admin
// override, by role or by allow-listed email flag.
func (t *RouteTable) IsPlatformAdmin(ctx Context) bool {
	if ctx.Role == user.RolePlatformAdmin || ctx.HasPermission(PermPlatformAdmin) {
		return true
	}
	for _, email := range t.cfg.PlatformAdminEmails {
		if ctx.HasPermission(email) {
			return true
		}
	}
	return false
}

// DefaultPathFor returns the context-appropriate landing path. Total: it
// always returns a path and never consults the decision logic.
func (t *RouteTable) DefaultPathFor(ctx Context) string {
	switch ctx.UserState {
	case StateAnonymous:
		return t.cfg.LoginPath
	case StateAuthenticated, StateOnboarding:
		return t.cfg.OnboardingPath
	case StatePending:
		return t.cfg.PendingApprovalPath
	case StateActive:
		if t.IsPlatformAdmin(ctx) {
			return t.cfg.RolePaths[user.RolePlatformAdmin]
		}
		if ctx.Role != "" {
			if path, ok := t.cfg.RolePaths[ctx.Role]; ok {
				return path
			}
		}
		return t.cfg.DashboardPath
	default:
		return t.cfg.LoginPath
	}
}

// PublicRoutes lists paths viewable without authentication.
func (t *RouteTable) PublicRoutes() []string { return t.public }

// ProtectedRoutes lists paths requiring authentication.
func (t *RouteTable) ProtectedRoutes() []string { return t.protected }
