package navigation

import (
	"context"
	"net/http"
)

// nopLogger discards everything; decision tests assert on results, not logs.
type nopLogger struct{}

func (nopLogger) Enable(bool)                        {}
func (nopLogger) Debug(string, ...interface{})       {}
func (nopLogger) Info(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})        {}
func (nopLogger) Error(string, ...interface{})       {}
func (nopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

type stubSessionReader struct {
	ident *Identity
	err   error
	calls int
}

func (s *stubSessionReader) RequestSession(ctx context.Context, r *http.Request) (*Identity, error) {
	s.calls++
	return s.ident, s.err
}

func (s *stubSessionReader) Session(ctx context.Context) (*Identity, error) {
	s.calls++
	return s.ident, s.err
}

type stubProfileReader struct {
	profile *Profile
	err     error
	calls   int
}

func (s *stubProfileReader) Profile(ctx context.Context, userID string) (*Profile, error) {
	s.calls++
	return s.profile, s.err
}

func activeCtx(role, tenantID string) Context {
	return Context{
		UserState:     StateActive,
		Role:          role,
		TenantID:      tenantID,
		EmailVerified: true,
		AccountStatus: "active",
	}
}
