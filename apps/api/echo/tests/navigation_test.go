package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echoapi "github.com/lehine87/educanvas/apps/api/echo"
	"github.com/lehine87/educanvas/core/navigation"
	"github.com/lehine87/educanvas/core/user"
	testutil "github.com/lehine87/educanvas/tests"
)

func withAuthCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "educanvas-auth-token", Value: token})
	return req
}

func Test_navigationMiddleware(t *testing.T) {
	app := setup(t)

	staff := testutil.CreateUser(t, usrRepo, "Staff", "staff", "staff@test.cd", "",
		user.RoleStaff, "tnt-001", user.StatusActive, true)
	fresh := testutil.CreateUser(t, usrRepo, "Fresh", "fresh", "fresh@test.cd", "",
		"", "", user.StatusPendingApproval, true)

	staffToken := getToken(t, staff)
	freshToken := getToken(t, fresh)

	tests := []struct {
		name         string
		path         string
		token        string
		wantCode     int
		wantLocation string
	}{
		{name: "API banner untouched", path: "/", wantCode: http.StatusOK},
		{name: "API routes untouched", path: "/v1/users/me", wantCode: http.StatusUnauthorized},
		{name: "asset requests untouched", path: "/static/logo.svg", wantCode: http.StatusNotFound},
		{name: "anonymous bounced to login", path: "/main", wantCode: http.StatusFound, wantLocation: "/auth/login"},
		{name: "anonymous may visit login", path: "/auth/login", wantCode: http.StatusNotFound},
		{name: "active user passes", path: "/main", token: staffToken, wantCode: http.StatusNotFound},
		{name: "active user bounced off login", path: "/auth/login", token: staffToken, wantCode: http.StatusFound, wantLocation: "/main"},
		{name: "no tenant yet, sent to onboarding", path: "/main", token: freshToken, wantCode: http.StatusFound, wantLocation: "/onboarding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				withAuthCookie(req, tt.token)
			}
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantLocation != "" {
				if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
					t.Errorf("Location = %s, want %s", loc, tt.wantLocation)
				}
			}
		})
	}
}

func Test_navigationApi_check(t *testing.T) {
	app := setup(t)

	viewer := testutil.CreateUser(t, usrRepo, "Viewer", "viewer", "viewer@test.cd", "",
		user.RoleViewer, "tnt-001", user.StatusActive, true)
	viewerToken := getToken(t, viewer)

	tests := []struct {
		name         string
		path         string
		token        string
		wantRedirect bool
		wantTarget   string
		wantState    navigation.UserState
	}{
		{name: "anonymous on a protected path", path: "/main", wantRedirect: true, wantTarget: "/auth/login", wantState: navigation.StateAnonymous},
		{name: "anonymous on login", path: "/auth/login", wantState: navigation.StateAnonymous},
		{name: "viewer on dashboard", path: "/main", token: viewerToken, wantState: navigation.StateActive},
		{name: "viewer on admin console", path: "/platform-admin", token: viewerToken, wantRedirect: true, wantTarget: "/main", wantState: navigation.StateActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := marchallObj(t, echoapi.CheckRequest{Path: tt.path})
			req, rec := newRequest(http.MethodPost, "/v1/navigation/check", body)
			if tt.token != "" {
				withAuthCookie(req, tt.token)
			}
			app.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
			}
			var resp echoapi.CheckResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			if resp.ShouldRedirect != tt.wantRedirect {
				t.Errorf("should_redirect = %v, want %v (%s)", resp.ShouldRedirect, tt.wantRedirect, resp.Reason)
			}
			if resp.TargetPath != tt.wantTarget {
				t.Errorf("target_path = %s, want %s", resp.TargetPath, tt.wantTarget)
			}
			if resp.Context.UserState != tt.wantState {
				t.Errorf("user_state = %s, want %s", resp.Context.UserState, tt.wantState)
			}
		})
	}

	// a missing path is a validation error
	req, rec := newRequest(http.MethodPost, "/v1/navigation/check", marchallObj(t, echoapi.CheckRequest{}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}
}

type countingProfiles struct {
	inner navigation.ProfileReader
	calls int
}

func (c *countingProfiles) Profile(ctx context.Context, userID string) (*navigation.Profile, error) {
	c.calls++
	return c.inner.Profile(ctx, userID)
}

// The decision and the response body share one session and profile lookup.
func Test_navigationApi_checkResolvesOnce(t *testing.T) {
	setup(t)

	viewer := testutil.CreateUser(t, usrRepo, "Viewer", "viewer", "viewer@test.cd", "",
		user.RoleViewer, "tnt-001", user.StatusActive, true)

	profiles := &countingProfiles{inner: echoapi.NewProfileReader(usrSvc)}
	lg := nopLogger{}
	navCfg := navigation.DefaultConfig()
	navCfg.PlatformAdminEmails = conf.PlatformAdminEmails
	routes := navigation.NewRouteTable(navCfg)
	machine := navigation.NewStateMachine(navCfg, routes, lg)
	resolver := navigation.NewResolver(navCfg, echoapi.NewSessionReader(conf), profiles, lg)
	ctl := navigation.NewController(navCfg, resolver, machine, routes, lg)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         lg,
		UserSvc:        usrSvc,
		StudentSvc:     stdSvc,
		NavCtl:         ctl,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	body := marchallObj(t, echoapi.CheckRequest{Path: "/main"})
	req, rec := newRequest(http.MethodPost, "/v1/navigation/check", body)
	withAuthCookie(req, getToken(t, viewer))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if resp.Context.UserState != navigation.StateActive {
		t.Errorf("user_state = %s, want %s", resp.Context.UserState, navigation.StateActive)
	}
	if profiles.calls != 1 {
		t.Errorf("profile lookups = %d, want 1", profiles.calls)
	}
}

func Test_navigationApi_canAccess(t *testing.T) {
	app := setup(t)

	viewer := testutil.CreateUser(t, usrRepo, "Viewer", "viewer", "viewer@test.cd", "",
		user.RoleViewer, "tnt-001", user.StatusActive, true)
	viewerToken := getToken(t, viewer)

	tests := []struct {
		name       string
		path       string
		token      string
		wantAccess bool
	}{
		{name: "anonymous cannot access dashboard", path: "/main"},
		{name: "viewer can access dashboard", path: "/main", token: viewerToken, wantAccess: true},
		{name: "viewer cannot access admin console", path: "/platform-admin", token: viewerToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := marchallObj(t, echoapi.CheckRequest{Path: tt.path})
			req, rec := newRequest(http.MethodPost, "/v1/navigation/can-access", body)
			if tt.token != "" {
				withAuthCookie(req, tt.token)
			}
			app.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
			}
			var access navigation.Access
			if err := json.Unmarshal(rec.Body.Bytes(), &access); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			if access.CanAccess != tt.wantAccess {
				t.Errorf("can_access = %v, want %v (%s)", access.CanAccess, tt.wantAccess, access.Reason)
			}
		})
	}

	// pre-flight checks leave no trace in the histories
	info := navCtl.DebugInfo()
	if info.NavigationHistoryLength != 0 {
		t.Errorf("navigation history length = %d, want 0", info.NavigationHistoryLength)
	}
}

func Test_navigationApi_allowedPaths(t *testing.T) {
	app := setup(t)

	tntAdmin := testutil.CreateUser(t, usrRepo, "Tenant Admin", "tntadmin", "tntadmin@test.cd", "",
		user.RoleTenantAdmin, "tnt-001", user.StatusActive, true)

	tests := []httpTest{
		{
			name: "anonymous", wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string][]string{"paths": {"/auth/login", "/auth/signup", "/auth/reset-password"}}),
		},
		{
			name: "tenant admin", token: getToken(t, tntAdmin), wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string][]string{"paths": {"/main", "/tenant-admin"}}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/v1/navigation/allowed-paths")
			if tt.token != "" {
				withAuthCookie(req, tt.token)
			}
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_navigationApi_adminEndpoints(t *testing.T) {
	app := setup(t)

	staff := testutil.CreateUser(t, usrRepo, "Staff", "staff", "staff@test.cd", "",
		user.RoleStaff, "tnt-001", user.StatusActive, true)
	root := testutil.CreateUser(t, usrRepo, "Root", "root", "root@test.cd", "",
		user.RolePlatformAdmin, "", user.StatusActive, true)

	staffToken := getToken(t, staff)
	rootToken := getToken(t, root)

	// generate some traffic first
	for _, path := range []string{"/main", "/main", "/platform-admin"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		withAuthCookie(req, staffToken)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
	}

	gates := []httpTest{
		{name: "stats requires auth", method: http.MethodGet, path: "/v1/navigation/stats", wantCode: http.StatusUnauthorized},
		{name: "stats requires platform admin", method: http.MethodGet, path: "/v1/navigation/stats", token: staffToken, wantCode: http.StatusForbidden},
		{name: "debug requires platform admin", method: http.MethodGet, path: "/v1/navigation/debug", token: staffToken, wantCode: http.StatusForbidden},
		{name: "clear cache requires platform admin", method: http.MethodDelete, path: "/v1/navigation/cache", token: staffToken, wantCode: http.StatusForbidden},
	}
	for _, tt := range gates {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
		})
	}

	t.Run("stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/navigation/stats", rootToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}

		var stats navigation.Stats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if stats.LastHour.TotalNavigations != 3 {
			t.Errorf("total navigations = %d, want 3", stats.LastHour.TotalNavigations)
		}
		if stats.LastHour.Redirects != 1 { // staff on /platform-admin
			t.Errorf("redirects = %d, want 1", stats.LastHour.Redirects)
		}
		if len(stats.MostVisited) == 0 || stats.MostVisited[0].Path != "/main" {
			t.Errorf("most visited = %+v, want /main first", stats.MostVisited)
		}
	})

	t.Run("debug", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/navigation/debug", rootToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}

		var info navigation.DebugInfo
		if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if info.NavigationHistoryLength != 3 {
			t.Errorf("navigation history length = %d, want 3", info.NavigationHistoryLength)
		}
	})

	t.Run("clear history and cache", func(t *testing.T) {
		for _, path := range []string{"/v1/navigation/history", "/v1/navigation/cache"} {
			req, rec := newAuthRequest(http.MethodDelete, path, rootToken)
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("failed! path = %s; code = %v", path, rec.Code)
			}
		}

		info := navCtl.DebugInfo()
		if info.NavigationHistoryLength != 0 || info.EventHistoryLength != 0 {
			t.Errorf("histories not cleared: %+v", info)
		}
	})
}
