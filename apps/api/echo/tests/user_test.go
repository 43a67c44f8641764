package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/lehine87/educanvas/apps/api/echo"
	"github.com/lehine87/educanvas/core/user"
	emailsvc "github.com/lehine87/educanvas/services/email"
	testutil "github.com/lehine87/educanvas/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "s3cret",
		user.RoleStaff, "tnt-001", user.StatusActive, true)
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.cd", "mdr",
		user.RoleViewer, "tnt-001", user.StatusActive, false) // 😂

	body := func(uname, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{name: "user not found", body: body("lol", "lol"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "wrong password", body: body("awe", "lol"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "email works too", body: body("awe@test.cd", "s3cret"), wantCode: http.StatusOK},
		{name: "deactivated account", body: body("ndog", "mdr"), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "login ok", body: body("awe", "s3cret"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}

			var resp echoapi.LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}

			// the session cookie mirrors the token for page requests
			var found bool
			for _, c := range rec.Result().Cookies() {
				if c.Name == "educanvas-auth-token" {
					found = c.Value == resp.Token && c.HttpOnly
				}
			}
			if !found {
				t.Error("expected the auth cookie to be set")
			}
		})
	}

	refreshed, err := usrRepo.GetUserByID(usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if !refreshed.LastLogin.Valid {
		t.Error("expected LastLogin to be set")
	}
}

func Test_userApi_userQuery(t *testing.T) {
	app := setup(t)

	path := func(params map[string]string) string {
		v := make(url.Values)
		for key, val := range params {
			v.Add(key, val)
		}
		return "/v1/users?" + v.Encode()
	}

	root := testutil.CreateUser(t, usrRepo, "Root", "root", "root@test.cd", "",
		user.RolePlatformAdmin, "", user.StatusActive, true)
	tntAdmin := testutil.CreateUser(t, usrRepo, "Tenant Admin", "tntadmin", "tntadmin@test.cd", "",
		user.RoleTenantAdmin, "tnt-001", user.StatusActive, true)
	staff := testutil.CreateUser(t, usrRepo, "Staff", "staff", "staff@test.cd", "",
		user.RoleStaff, "tnt-001", user.StatusActive, true)
	pending := testutil.CreateUser(t, usrRepo, "Pending", "pending", "pending@test.cd", "",
		user.RoleViewer, "tnt-001", user.StatusPendingApproval, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.cd", "",
		user.RoleInstructor, "tnt-002", user.StatusActive, true)

	rootToken := getToken(t, root)
	tntAdminToken := getToken(t, tntAdmin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, staff), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Platform admin sees all", path: "/v1/users", token: rootToken,
			wantData: marchallList(t, root, tntAdmin, staff, pending, other),
		},
		{
			name: "Tenant admin sees own tenant only", path: "/v1/users", token: tntAdminToken,
			wantData: marchallList(t, tntAdmin, staff, pending),
		},
		{name: "search (unknown)", path: path(map[string]string{"search": "lol"}), token: rootToken, wantData: empty},
		{
			name: "search matches name", path: path(map[string]string{"search": "staf"}), token: rootToken,
			wantData: marchallList(t, staff),
		},
		{
			name: "filter by role", path: path(map[string]string{"role": user.RoleTenantAdmin}), token: rootToken,
			wantData: marchallList(t, tntAdmin),
		},
		{
			name: "filter by status", path: path(map[string]string{"status": user.StatusPendingApproval}), token: rootToken,
			wantData: marchallList(t, pending),
		},
		{
			name: "filter by tenant", path: path(map[string]string{"tenant_id": "tnt-002"}), token: rootToken,
			wantData: marchallList(t, other),
		},
		{
			name: "tenant admin cannot widen the filter", path: path(map[string]string{"tenant_id": "tnt-002"}), token: tntAdminToken,
			wantData: marchallList(t, tntAdmin, staff, pending),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_signup(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Taken", "takenuname", "taken@test.cd", "",
		user.RoleViewer, "tnt-001", user.StatusActive, true)

	tests := []httpTest{
		{
			name: "signup ok",
			body: marchallObj(t, user.NewUser{Name: "New User", Username: "newuser", Email: "new@test.cd", Password: "v3rys3cret", PasswordConfirm: "v3rys3cret"}),
		},
		{
			name: "role is never self-assigned",
			body: marchallObj(t, user.NewUser{Name: "Sneaky", Username: "sneaky", Email: "sneaky@test.cd", Password: "v3rys3cret", PasswordConfirm: "v3rys3cret", Role: user.RolePlatformAdmin}),
		},
		{
			name:     "duplicate username",
			body:     marchallObj(t, user.NewUser{Name: "Copy Cat", Username: "takenuname", Email: "copycat@test.cd", Password: "v3rys3cret", PasswordConfirm: "v3rys3cret"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name:     "duplicate email",
			body:     marchallObj(t, user.NewUser{Name: "Copy Cat", Username: "copycat", Email: "taken@test.cd", Password: "v3rys3cret", PasswordConfirm: "v3rys3cret"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name:     "username charset",
			body:     marchallObj(t, user.NewUser{Name: "Bad Uname", Username: "bad uname!", Email: "baduname@test.cd", Password: "v3rys3cret", PasswordConfirm: "v3rys3cret"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "only letters, digits and underscores are allowed"}),
		},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusCreated
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/signup", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusCreated {
				checkCodeAndData(t, tt, rec)
				return
			}

			var usr user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			if usr.Role != "" {
				t.Errorf("role = %s, want none", usr.Role)
			}
			if usr.Status != user.StatusPendingApproval {
				t.Errorf("status = %s, want %s", usr.Status, user.StatusPendingApproval)
			}
		})
	}
}

func Test_userApi_onboarding(t *testing.T) {
	app := setup(t)

	fresh := testutil.CreateUser(t, usrRepo, "Fresh", "fresh", "fresh@test.cd", "",
		"", "", user.StatusPendingApproval, true)
	settled := testutil.CreateUser(t, usrRepo, "Settled", "settled", "settled@test.cd", "",
		user.RoleStaff, "tnt-001", user.StatusActive, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name:     "role is validated",
			token:    getToken(t, fresh),
			body:     marchallObj(t, echoapi.OnboardingRequest{TenantID: "tnt-007", Role: "overlord"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name:     "onboarding ok",
			token:    getToken(t, fresh),
			body:     marchallObj(t, echoapi.OnboardingRequest{TenantID: "tnt-007", Role: user.RoleInstructor}),
			wantCode: http.StatusOK,
		},
		{
			name:     "already completed",
			token:    getToken(t, settled),
			body:     marchallObj(t, echoapi.OnboardingRequest{TenantID: "tnt-007", Role: user.RoleInstructor}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "onboarding already completed"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/onboarding", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}

			var usr user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			if usr.TenantID.String != "tnt-007" {
				t.Errorf("tenant = %s, want tnt-007", usr.TenantID.String)
			}
			if usr.Role != user.RoleInstructor {
				t.Errorf("role = %s, want %s", usr.Role, user.RoleInstructor)
			}
			if usr.Status != user.StatusPendingApproval {
				t.Errorf("status = %s, want %s", usr.Status, user.StatusPendingApproval)
			}
		})
	}
}

func Test_userApi_approveSuspend(t *testing.T) {
	app := setup(t)
	emailsvc.ClearSentMessages()

	tntAdmin := testutil.CreateUser(t, usrRepo, "Tenant Admin", "tntadmin", "tntadmin@test.cd", "",
		user.RoleTenantAdmin, "tnt-001", user.StatusActive, true)
	pending := testutil.CreateUser(t, usrRepo, "Pending", "pending", "pending@test.cd", "",
		user.RoleStaff, "tnt-001", user.StatusPendingApproval, true)
	active := testutil.CreateUser(t, usrRepo, "Active", "active", "active@test.cd", "",
		user.RoleViewer, "tnt-001", user.StatusActive, true)
	stranger := testutil.CreateUser(t, usrRepo, "Stranger", "stranger", "stranger@test.cd", "",
		user.RoleStaff, "tnt-002", user.StatusPendingApproval, true)

	adminToken := getToken(t, tntAdmin)

	tests := []httpTest{
		{
			name: "Admin required", method: http.MethodPost, path: "/v1/users/" + pending.ID + "/approve",
			token: getToken(t, active), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "cross-tenant account is invisible", method: http.MethodPost, path: "/v1/users/" + stranger.ID + "/approve",
			token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "approve ok", method: http.MethodPost, path: "/v1/users/" + pending.ID + "/approve",
			token: adminToken, wantCode: http.StatusOK,
		},
		{
			name: "approve non-pending account", method: http.MethodPost, path: "/v1/users/" + active.ID + "/approve",
			token: adminToken, wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "account is not awaiting approval"}),
		},
		{
			name: "cannot suspend self", method: http.MethodPost, path: "/v1/users/" + tntAdmin.ID + "/suspend",
			token: adminToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "suspend ok", method: http.MethodPost, path: "/v1/users/" + active.ID + "/suspend",
			token: adminToken, wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	approved, err := usrRepo.GetUserByID(pending.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if approved.Status != user.StatusActive {
		t.Errorf("status = %s, want %s", approved.Status, user.StatusActive)
	}

	suspended, err := usrRepo.GetUserByID(active.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if suspended.Status != user.StatusSuspended {
		t.Errorf("status = %s, want %s", suspended.Status, user.StatusSuspended)
	}
	if suspended.IsActive {
		t.Error("expected the suspended user to be deactivated")
	}

	// the approval notifies the user by email
	var notified bool
	for _, msg := range emailsvc.SentMessages {
		for _, to := range msg.To {
			if to.Address == pending.Email {
				notified = true
			}
		}
	}
	if !notified {
		t.Error("expected an approval email")
	}
}

func Test_userApi_update(t *testing.T) {
	app := setup(t)

	tntAdmin := testutil.CreateUser(t, usrRepo, "Tenant Admin", "tntadmin", "tntadmin@test.cd", "",
		user.RoleTenantAdmin, "tnt-001", user.StatusActive, true)
	staff := testutil.CreateUser(t, usrRepo, "Staff", "staff", "staff@test.cd", "",
		user.RoleStaff, "tnt-001", user.StatusActive, true)

	tests := []httpTest{
		{
			name:     "self-update of restricted fields forbidden",
			path:     "/v1/users/" + staff.ID,
			token:    getToken(t, staff),
			body:     marchallObj(t, user.UpdateUser{Role: user.RoleTenantAdmin}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin cannot grant a role above their own",
			path:     "/v1/users/" + staff.ID,
			token:    getToken(t, tntAdmin),
			body:     marchallObj(t, user.UpdateUser{Role: user.RolePlatformAdmin}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "not enough rights to set this role"}),
		},
		{
			name:     "self-update of name ok",
			path:     "/v1/users/" + staff.ID,
			token:    getToken(t, staff),
			body:     marchallObj(t, user.UpdateUser{Name: "Reformed Staff"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "admin promotes within reach",
			path:     "/v1/users/" + staff.ID,
			token:    getToken(t, tntAdmin),
			body:     marchallObj(t, user.UpdateUser{Role: user.RoleInstructor}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	refreshed, err := usrRepo.GetUserByID(staff.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if refreshed.Name != "Reformed Staff" {
		t.Errorf("name = %s, want Reformed Staff", refreshed.Name)
	}
	if refreshed.Role != user.RoleInstructor {
		t.Errorf("role = %s, want %s", refreshed.Role, user.RoleInstructor)
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "",
		user.RoleStaff, "tnt-001", user.StatusActive, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.cd", "",
		user.RoleViewer, "tnt-001", user.StatusActive, false) // 😂

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  "EduCanvas",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Username:     usr.Username,
		Email:        usr.Email,
		Role:         usr.Role,
		TenantID:     usr.TenantID.String,
		Status:       usr.Status,
	}
	unrefreshableToken, err := echoapi.GenerateToken(conf, unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, usr), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}

			var resp echoapi.LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
		})
	}
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "",
		user.RoleStaff, "tnt-001", user.StatusActive, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "me ok", token: getToken(t, usr), wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
