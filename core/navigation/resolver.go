package navigation

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/lehine87/educanvas/core"
	"github.com/lehine87/educanvas/core/user"
)

// Identity is the minimal outcome of resolving a session token.
type Identity struct {
	UserID string
	Email  string
}

// Profile is the slice of a user's profile record the resolver needs.
type Profile struct {
	UserID        string
	Name          string
	Email         string
	Role          string
	TenantID      string
	Status        string
	EmailVerified bool
}

type (
	// SessionReader resolves ambient authentication state to an identity.
	// (nil, nil) means "no session" — an expected outcome, not an error.
	SessionReader interface {
		RequestSession(ctx context.Context, r *http.Request) (*Identity, error)
		// Session resolves the live client-side session, for SPA-driven checks.
		Session(ctx context.Context) (*Identity, error)
	}

	// ProfileReader fetches a user's profile record. (nil, nil) means the
	// user has not onboarded yet — also an expected outcome.
	ProfileReader interface {
		Profile(ctx context.Context, userID string) (*Profile, error)
	}
)

// authCookieRegexes recognize our session cookies without parsing them; a
// miss is the fast path that skips all backend calls.
var authCookieRegexes = []*regexp.Regexp{
	regexp.MustCompile(`educanvas(-[a-z0-9]+)?-auth-token=`),
	regexp.MustCompile(`educanvas(-[a-z0-9]+)?-auth-refresh-token=`),
}

// Resolver turns ambient authentication state (request cookies + session
// lookup on the server, the live session on the client) into a Context.
//
// Any failure during resolution yields the anonymous context: resolution
// errors must never leak partial state or elevate privilege.
type Resolver struct {
	cfg      Config
	sessions SessionReader
	profiles ProfileReader
	logger   core.Logger
}

func NewResolver(cfg Config, sessions SessionReader, profiles ProfileReader, logger core.Logger) *Resolver {
	return &Resolver{
		cfg:      cfg,
		sessions: sessions,
		profiles: profiles,
		logger:   logger,
	}
}

// ResolveFromRequest derives the navigation context for an inbound request.
func (r *Resolver) ResolveFromRequest(ctx context.Context, req *http.Request) Context {
	// fast path: no recognizable session cookie, no backend calls
	if !hasAuthCookie(req) {
		return AnonymousContext()
	}

	ident, err := r.sessions.RequestSession(ctx, req)
	if err != nil {
		r.logger.Warn(fmt.Sprintf("navigation: resolving request session: %v", err), err)
		return AnonymousContext()
	}
	return r.resolveIdentity(ctx, ident)
}

// ResolveFromSession derives the navigation context from the live
// client-side session.
func (r *Resolver) ResolveFromSession(ctx context.Context) Context {
	ident, err := r.sessions.Session(ctx)
	if err != nil {
		r.logger.Warn(fmt.Sprintf("navigation: resolving client session: %v", err), err)
		return AnonymousContext()
	}
	return r.resolveIdentity(ctx, ident)
}

func (r *Resolver) resolveIdentity(ctx context.Context, ident *Identity) Context {
	if ident == nil || ident.UserID == "" {
		return AnonymousContext()
	}

	profile, err := r.profiles.Profile(ctx, ident.UserID)
	if err != nil {
		r.logger.Warn(fmt.Sprintf("navigation: fetching profile for %s: %v", ident.UserID, err), err)
		return AnonymousContext()
	}
	if profile == nil {
		// signed in, not yet onboarded
		return r.authenticatedContext(ident.Email)
	}
	return r.ContextFromProfile(profile, ident.Email)
}

// ContextFromProfile derives a context from a profile record. State
// precedence: platform-admin override wins unconditionally; no tenant means
// onboarding; then the profile status decides, failing toward restricted.
func (r *Resolver) ContextFromProfile(p *Profile, email string) Context {
	perms := r.specialPermissions(email)
	isPlatformAdminEmail := len(perms) > 0

	var state UserState
	switch {
	case isPlatformAdminEmail || p.Role == user.RolePlatformAdmin:
		state = StateActive
	case p.TenantID == "":
		state = StateOnboarding
	case p.Status == user.StatusPendingApproval:
		state = StatePending
	case p.Status == user.StatusActive:
		state = StateActive
	default:
		// suspended, disabled, anything unknown: restricted, not open
		state = StatePending
	}

	return Context{
		UserState:          state,
		Role:               p.Role,
		TenantID:           p.TenantID,
		EmailVerified:      p.EmailVerified,
		AccountStatus:      p.Status,
		SpecialPermissions: perms,
	}
}

func (r *Resolver) authenticatedContext(email string) Context {
	return Context{
		UserState:          StateAuthenticated,
		SpecialPermissions: r.specialPermissions(email),
	}
}

func (r *Resolver) specialPermissions(email string) []string {
	for _, adm := range r.cfg.PlatformAdminEmails {
		if adm == email {
			return []string{PermPlatformAdmin, email}
		}
	}
	return nil
}

func hasAuthCookie(req *http.Request) bool {
	cookies := req.Header.Get("Cookie")
	if cookies == "" {
		return false
	}
	for _, re := range authCookieRegexes {
		if re.MatchString(cookies) {
			return true
		}
	}
	return false
}
