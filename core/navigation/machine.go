package navigation

import (
	"fmt"
	"sync"
	"time"

	"github.com/lehine87/educanvas/core"
)

// Decision priorities, for diagnostic ordering only; a call returns a single
// decision, never competing candidates. Lower is more urgent.
const (
	priorityError         = 0
	priorityRouteNotFound = 10
	priorityState         = 20
	priorityRole          = 30
	priorityCustom        = 40
)

// Decision reasons surfaced in logs and stats.
const (
	ReasonLoopRisk      = "infinite redirect risk detected"
	ReasonRouteNotFound = "route not found"
	ReasonCheckError    = "error during access check"
	ReasonCustom        = "custom redirect logic applied"
)

const (
	maxCacheEntries = 1000
	loopWindow      = 10 * time.Second
	loopThreshold   = 3
)

// Result is the outcome of one access decision.
type Result struct {
	ShouldRedirect bool   `json:"should_redirect"`
	TargetPath     string `json:"target_path,omitempty"`
	Reason         string `json:"reason"`
	Priority       int    `json:"priority"`
}

func redirectResult(target, reason string, priority int) Result {
	return Result{ShouldRedirect: true, TargetPath: target, Reason: reason, Priority: priority}
}

func noRedirectResult(reason string) Result {
	return Result{Reason: reason, Priority: 100}
}

type cacheEntry struct {
	Key       string        `json:"key"`
	Result    Result        `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
	HitCount  int           `json:"hit_count"`
}

type loopEntry struct {
	path string
	at   time.Time
}

// StateMachine is the decision core: it matches a path against the route
// table, applies state/role/verification checks and custom redirect logic,
// and memoizes results. Effectively a pure function plus a TTL'd memo and a
// sliding-window rate limiter (the loop guard).
type StateMachine struct {
	cfg    Config
	routes *RouteTable
	logger core.Logger

	mu      sync.Mutex
	cache   map[string]*cacheEntry
	order   []string // cache keys in insertion order, for oldest-first eviction
	window  []loopEntry
	nowFunc func() time.Time // mockable
}

func NewStateMachine(cfg Config, routes *RouteTable, logger core.Logger) *StateMachine {
	return &StateMachine{
		cfg:     cfg,
		routes:  routes,
		logger:  logger,
		cache:   make(map[string]*cacheEntry),
		nowFunc: time.Now,
	}
}

// ShouldRedirect decides whether ctx may view path. It never panics; an
// unexpected failure inside the checks fails closed to the login path.
func (sm *StateMachine) ShouldRedirect(path string, ctx Context) Result {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := ctx.cacheKey(path)
	if cached, ok := sm.cachedResult(key); ok {
		return cached
	}

	// loop guard: stop redirect cycles by letting the request through
	if sm.hasInfiniteRedirectRisk(path) {
		result := noRedirectResult(ReasonLoopRisk)
		sm.setCacheEntry(key, result)
		return result
	}

	result := sm.decide(path, ctx)
	sm.setCacheEntry(key, result)
	return result
}

// decide runs matching and checks, converting any panic into the fail-closed
// login redirect: at this point identity may be known but the authorization
// logic itself proved unreliable.
func (sm *StateMachine) decide(path string, ctx Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			sm.logger.Error(fmt.Sprintf("navigation: panic during access check for %s: %v", path, r))
			result = redirectResult(sm.cfg.LoginPath, ReasonCheckError, priorityError)
		}
	}()

	policy, _, ok := sm.routes.Match(path)
	if !ok {
		return redirectResult(sm.routes.DefaultPathFor(ctx), ReasonRouteNotFound, priorityRouteNotFound)
	}
	return sm.checkAccess(policy, ctx)
}

func (sm *StateMachine) checkAccess(policy *Policy, ctx Context) Result {
	// 1. user state
	if !policy.allowsState(ctx.UserState) {
		return redirectResult(
			sm.routes.DefaultPathFor(ctx),
			fmt.Sprintf("user state %q not allowed for this route", ctx.UserState),
			priorityState,
		)
	}

	// 2. role
	if len(policy.AllowedRoles) > 0 && ctx.Role != "" && !policy.allowsRole(ctx.Role) {
		target := policy.FallbackRoute
		if target == "" {
			target = sm.routes.DefaultPathFor(ctx)
		}
		return redirectResult(
			target,
			fmt.Sprintf("role %q not allowed for this route", ctx.Role),
			priorityRole,
		)
	}

	// 3. email verification: advisory only, never blocks
	if policy.RequiresEmailVerification && !ctx.EmailVerified {
		sm.logger.Warn(fmt.Sprintf("navigation: email verification required but not verified for %s", policy.Path))
	}

	// 4. custom redirect
	if policy.RedirectTo != nil {
		if target := policy.RedirectTo(ctx); target != "" {
			return redirectResult(target, ReasonCustom, priorityCustom)
		}
	}

	// 5. all checks passed
	return noRedirectResult(fmt.Sprintf("access granted to %s", policy.Path))
}

// hasInfiniteRedirectRisk records this check, then reports whether the same
// path has now been checked loopThreshold+ times within loopWindow. Callers
// hold sm.mu.
func (sm *StateMachine) hasInfiniteRedirectRisk(path string) bool {
	now := sm.nowFunc()

	// prune the window and record this check
	kept := sm.window[:0]
	for _, e := range sm.window {
		if now.Sub(e.at) < loopWindow {
			kept = append(kept, e)
		}
	}
	sm.window = append(kept, loopEntry{path: path, at: now})

	var recent int
	for _, e := range sm.window {
		if e.path == path {
			recent++
		}
	}
	if recent >= loopThreshold {
		sm.logger.Error(fmt.Sprintf("navigation: infinite redirect risk detected for path %s", path))
		return true
	}
	return false
}

// cachedResult returns a live cache hit and bumps its hit counter. Callers
// hold sm.mu.
func (sm *StateMachine) cachedResult(key string) (Result, bool) {
	entry, ok := sm.cache[key]
	if !ok {
		return Result{}, false
	}
	if sm.nowFunc().Sub(entry.CreatedAt) > entry.TTL {
		delete(sm.cache, key)
		return Result{}, false
	}
	entry.HitCount++
	return entry.Result, true
}

// setCacheEntry stores a result, evicting the oldest-inserted entry once the
// cap is reached. Callers hold sm.mu.
func (sm *StateMachine) setCacheEntry(key string, result Result) {
	if _, exists := sm.cache[key]; !exists {
		sm.order = append(sm.order, key)
	}
	sm.cache[key] = &cacheEntry{
		Key:       key,
		Result:    result,
		CreatedAt: sm.nowFunc(),
		TTL:       sm.cfg.CacheTTL,
		HitCount:  0,
	}

	for len(sm.cache) > maxCacheEntries && len(sm.order) > 0 {
		oldest := sm.order[0]
		sm.order = sm.order[1:]
		delete(sm.cache, oldest)
	}
}

// ClearCache drops all memoized decisions.
func (sm *StateMachine) ClearCache() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cache = make(map[string]*cacheEntry)
	sm.order = nil
	if sm.cfg.Debug {
		sm.logger.Debug("navigation: cache cleared")
	}
}

// CacheStats summarizes the decision cache.
type CacheStats struct {
	TotalEntries int       `json:"total_entries"`
	TotalHits    int       `json:"total_hits"`
	AverageHits  float64   `json:"average_hits"`
	OldestEntry  time.Time `json:"oldest_entry,omitempty"`
	NewestEntry  time.Time `json:"newest_entry,omitempty"`
}

func (sm *StateMachine) Stats() CacheStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	stats := CacheStats{TotalEntries: len(sm.cache)}
	for _, e := range sm.cache {
		stats.TotalHits += e.HitCount
		if stats.OldestEntry.IsZero() || e.CreatedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = e.CreatedAt
		}
		if e.CreatedAt.After(stats.NewestEntry) {
			stats.NewestEntry = e.CreatedAt
		}
	}
	if stats.TotalEntries > 0 {
		stats.AverageHits = float64(stats.TotalHits) / float64(stats.TotalEntries)
	}
	return stats
}

// MachineDebugInfo is a snapshot of the state machine's internals.
type MachineDebugInfo struct {
	CacheSize       int      `json:"cache_size"`
	LoopWindowSize  int      `json:"loop_window_size"`
	RecentChecks    []string `json:"recent_checks"`
	NewestCacheKeys []string `json:"newest_cache_keys"`
}

func (sm *StateMachine) DebugInfo() MachineDebugInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	info := MachineDebugInfo{
		CacheSize:      len(sm.cache),
		LoopWindowSize: len(sm.window),
	}
	start := len(sm.window) - 10
	if start < 0 {
		start = 0
	}
	for _, e := range sm.window[start:] {
		info.RecentChecks = append(info.RecentChecks, e.path)
	}
	start = len(sm.order) - 10
	if start < 0 {
		start = 0
	}
	info.NewestCacheKeys = append(info.NewestCacheKeys, sm.order[start:]...)
	return info
}
