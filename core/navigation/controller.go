package navigation

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/lehine87/educanvas/core"
	"github.com/lehine87/educanvas/core/user"
)

const (
	maxEventHistory      = 100
	maxNavigationHistory = 200

	EventRedirect = "REDIRECT"
	EventApprove  = "APPROVE"
)

type (
	// Event is one append-only record of a decision, kept for debugging.
	Event struct {
		Type       string    `json:"type"`
		Path       string    `json:"path"`
		TargetPath string    `json:"target_path,omitempty"`
		Reason     string    `json:"reason"`
		Priority   int       `json:"priority"`
		Context    Context   `json:"context"`
		Timestamp  time.Time `json:"timestamp"`
	}

	// HistoryEntry is one append-only record of a navigation, kept for the
	// stats surfaces.
	HistoryEntry struct {
		Path           string    `json:"path"`
		Timestamp      time.Time `json:"timestamp"`
		Context        Context   `json:"context"`
		WasRedirected  bool      `json:"was_redirected"`
		RedirectReason string    `json:"redirect_reason,omitempty"`
	}

	// Access is the outcome of a pre-flight check: may this context view
	// this path, without triggering an actual redirect.
	Access struct {
		CanAccess  bool   `json:"can_access"`
		RedirectTo string `json:"redirect_to,omitempty"`
		Reason     string `json:"reason,omitempty"`
	}
)

// Controller is the façade the server middleware and the SPA guard call. It
// orchestrates context resolution, the state-machine decision and the
// event/history bookkeeping, and never lets an error escape to its callers.
//
// One controller instance is constructed at startup and shared by the whole
// process; its cache and histories are the process-wide ones.
type Controller struct {
	cfg      Config
	resolver *Resolver
	machine  *StateMachine
	routes   *RouteTable
	logger   core.Logger

	mu      sync.Mutex
	events  []Event
	history []HistoryEntry
}

func NewController(cfg Config, resolver *Resolver, machine *StateMachine, routes *RouteTable, logger core.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		resolver: resolver,
		machine:  machine,
		routes:   routes,
		logger:   logger,
	}
}

// CheckRedirectForRequest is the server middleware entry point: resolve the
// request's context, decide, record. Never returns an error; a failure
// anywhere in the chain becomes a redirect to login.
func (c *Controller) CheckRedirectForRequest(ctx context.Context, req *http.Request) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(fmt.Sprintf("navigation: panic during redirect check: %v", r))
			result = redirectResult(c.cfg.LoginPath, ReasonCheckError, priorityError)
		}
	}()

	path := req.URL.Path
	navCtx := c.resolver.ResolveFromRequest(ctx, req)
	result = c.machine.ShouldRedirect(path, navCtx)
	c.record(path, navCtx, result)
	return result
}

// CheckRedirectForClient is the SPA router guard entry point; the caller
// supplies an already-resolved context.
func (c *Controller) CheckRedirectForClient(path string, navCtx Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(fmt.Sprintf("navigation: panic during client redirect check: %v", r))
			result = redirectResult(c.cfg.LoginPath, ReasonCheckError, priorityError)
		}
	}()

	result = c.machine.ShouldRedirect(path, navCtx)
	c.record(path, navCtx, result)
	return result
}

// ResolveRequestContext exposes the resolver for callers that need the
// context itself, not just a decision.
func (c *Controller) ResolveRequestContext(ctx context.Context, req *http.Request) Context {
	return c.resolver.ResolveFromRequest(ctx, req)
}

// CanAccessPath answers a pre-flight query (e.g. whether to render a nav
// link) without recording a navigation.
func (c *Controller) CanAccessPath(path string, navCtx Context) Access {
	result := c.machine.ShouldRedirect(path, navCtx)
	return Access{
		CanAccess:  !result.ShouldRedirect,
		RedirectTo: result.TargetPath,
		Reason:     result.Reason,
	}
}

// AllowedPathsForContext is a best-effort enumeration of paths reachable by
// a context, based on coarse state/role grouping rather than a simulation of
// every policy.
func (c *Controller) AllowedPathsForContext(navCtx Context) []string {
	var allowed []string

	switch navCtx.UserState {
	case StateAnonymous:
		allowed = append(allowed, "/auth/login", "/auth/signup", "/auth/reset-password")
	case StateAuthenticated, StateOnboarding:
		allowed = append(allowed, c.cfg.OnboardingPath)
	case StatePending:
		allowed = append(allowed, c.cfg.PendingApprovalPath)
	case StateActive:
		allowed = append(allowed, c.cfg.DashboardPath)
		if c.routes.IsPlatformAdmin(navCtx) {
			allowed = append(allowed, "/platform-admin", "/tenant-admin")
			break
		}
		switch navCtx.Role {
		case user.RoleTenantAdmin, user.RoleInstructor, user.RoleStaff:
			allowed = append(allowed, "/tenant-admin")
		}
	}
	return allowed
}

func (c *Controller) record(path string, navCtx Context, result Result) {
	if c.cfg.EnableLogging && result.ShouldRedirect {
		c.logger.Info(fmt.Sprintf("navigation: %s -> %s (%s)", path, result.TargetPath, result.Reason))
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	evType := EventApprove
	if result.ShouldRedirect {
		evType = EventRedirect
	}
	ev := Event{
		Type:       evType,
		Path:       path,
		TargetPath: result.TargetPath,
		Reason:     result.Reason,
		Priority:   result.Priority,
		Context:    navCtx,
		Timestamp:  now,
	}
	// once full, shift in place; the backing arrays never regrow
	if len(c.events) < maxEventHistory {
		c.events = append(c.events, ev)
	} else {
		copy(c.events, c.events[1:])
		c.events[len(c.events)-1] = ev
	}

	entry := HistoryEntry{
		Path:           path,
		Timestamp:      now,
		Context:        navCtx,
		WasRedirected:  result.ShouldRedirect,
		RedirectReason: result.Reason,
	}
	if len(c.history) < maxNavigationHistory {
		c.history = append(c.history, entry)
	} else {
		copy(c.history, c.history[1:])
		c.history[len(c.history)-1] = entry
	}
}

type (
	// Stats summarizes the controller's recent activity, for the ops API.
	Stats struct {
		LastHour    HourStats    `json:"last_hour"`
		MostVisited []PathStats  `json:"most_visited_paths"`
		TopReasons  []ReasonStat `json:"most_common_redirect_reasons"`
		Cache       CacheStats   `json:"cache"`
	}

	HourStats struct {
		TotalNavigations int     `json:"total_navigations"`
		Redirects        int     `json:"redirects"`
		Allowed          int     `json:"allowed"`
		RedirectRate     float64 `json:"redirect_rate"` // percent
	}

	PathStats struct {
		Path         string  `json:"path"`
		Count        int     `json:"count"`
		RedirectRate float64 `json:"redirect_rate"` // percent
	}

	ReasonStat struct {
		Reason string `json:"reason"`
		Count  int    `json:"count"`
	}
)

// Stats reports redirect rate over the last hour, most-visited paths, most
// common redirect reasons and cache statistics.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	cutoff := time.Now().Add(-time.Hour)
	var recent []HistoryEntry
	for _, e := range c.history {
		if e.Timestamp.After(cutoff) {
			recent = append(recent, e)
		}
	}
	c.mu.Unlock()

	stats := Stats{Cache: c.machine.Stats()}
	for _, e := range recent {
		stats.LastHour.TotalNavigations++
		if e.WasRedirected {
			stats.LastHour.Redirects++
		} else {
			stats.LastHour.Allowed++
		}
	}
	if stats.LastHour.TotalNavigations > 0 {
		stats.LastHour.RedirectRate = float64(stats.LastHour.Redirects) / float64(stats.LastHour.TotalNavigations) * 100
	}
	stats.MostVisited = mostVisitedPaths(recent)
	stats.TopReasons = mostCommonReasons(recent)
	return stats
}

func mostVisitedPaths(entries []HistoryEntry) []PathStats {
	type counts struct{ total, redirects int }
	byPath := make(map[string]*counts)
	for _, e := range entries {
		cnt, ok := byPath[e.Path]
		if !ok {
			cnt = &counts{}
			byPath[e.Path] = cnt
		}
		cnt.total++
		if e.WasRedirected {
			cnt.redirects++
		}
	}

	stats := make([]PathStats, 0, len(byPath))
	for path, cnt := range byPath {
		stats = append(stats, PathStats{
			Path:         path,
			Count:        cnt.total,
			RedirectRate: float64(cnt.redirects) / float64(cnt.total) * 100,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Path < stats[j].Path
	})
	if len(stats) > 10 {
		stats = stats[:10]
	}
	return stats
}

func mostCommonReasons(entries []HistoryEntry) []ReasonStat {
	byReason := make(map[string]int)
	for _, e := range entries {
		if e.WasRedirected && e.RedirectReason != "" {
			byReason[e.RedirectReason]++
		}
	}

	stats := make([]ReasonStat, 0, len(byReason))
	for reason, count := range byReason {
		stats = append(stats, ReasonStat{Reason: reason, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Reason < stats[j].Reason
	})
	if len(stats) > 10 {
		stats = stats[:10]
	}
	return stats
}

// DebugInfo is a full snapshot of the navigation system's in-memory state.
type DebugInfo struct {
	EventHistoryLength      int              `json:"event_history_length"`
	NavigationHistoryLength int              `json:"navigation_history_length"`
	RecentEvents            []Event          `json:"recent_events"`
	RecentNavigation        []HistoryEntry   `json:"recent_navigation"`
	StateMachine            MachineDebugInfo `json:"state_machine"`
	PublicRoutes            []string         `json:"public_routes"`
	ProtectedRoutes         []string         `json:"protected_routes"`
}

func (c *Controller) DebugInfo() DebugInfo {
	c.mu.Lock()
	info := DebugInfo{
		EventHistoryLength:      len(c.events),
		NavigationHistoryLength: len(c.history),
	}
	start := len(c.events) - 10
	if start < 0 {
		start = 0
	}
	info.RecentEvents = append(info.RecentEvents, c.events[start:]...)
	start = len(c.history) - 10
	if start < 0 {
		start = 0
	}
	info.RecentNavigation = append(info.RecentNavigation, c.history[start:]...)
	c.mu.Unlock()

	info.StateMachine = c.machine.DebugInfo()
	info.PublicRoutes = c.routes.PublicRoutes()
	info.ProtectedRoutes = c.routes.ProtectedRoutes()
	return info
}

// ClearCache drops all memoized decisions.
func (c *Controller) ClearCache() {
	c.machine.ClearCache()
}

// ClearHistory drops the event and navigation histories.
func (c *Controller) ClearHistory() {
	c.mu.Lock()
	c.events = nil
	c.history = nil
	c.mu.Unlock()
	if c.cfg.Debug {
		c.logger.Debug("navigation: history cleared")
	}
}

// Reset drops both cache and histories.
func (c *Controller) Reset() {
	c.ClearCache()
	c.ClearHistory()
	c.logger.Info("navigation: controller reset")
}
