package echoapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lehine87/educanvas/core"
	"github.com/lehine87/educanvas/core/navigation"
	"github.com/lehine87/educanvas/core/user"
)

// jwtSessionReader resolves the session from the auth cookie or the
// Authorization header. An invalid or expired token reads as "no session";
// the navigation layer then treats the caller as anonymous.
type jwtSessionReader struct {
	conf *core.Config
}

func NewSessionReader(conf *core.Config) navigation.SessionReader {
	return &jwtSessionReader{conf: conf}
}

var _ navigation.SessionReader = (*jwtSessionReader)(nil)

func (sr *jwtSessionReader) RequestSession(_ context.Context, r *http.Request) (*navigation.Identity, error) {
	raw := extractToken(r)
	if raw == "" {
		return nil, nil
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return sr.conf.SecretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, nil
	}
	return &navigation.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Session has no ambient session to read on the server; SPA-side checks go
// through RequestSession with the forwarded request.
func (sr *jwtSessionReader) Session(context.Context) (*navigation.Identity, error) {
	return nil, nil
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie(authCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// userProfileReader serves navigation profiles from the user service.
type userProfileReader struct {
	svc *user.Service
}

func NewProfileReader(svc *user.Service) navigation.ProfileReader {
	return &userProfileReader{svc: svc}
}

var _ navigation.ProfileReader = (*userProfileReader)(nil)

func (pr *userProfileReader) Profile(_ context.Context, userID string) (*navigation.Profile, error) {
	usr, err := pr.svc.GetByID(userID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "finding user by ID")
	}
	return &navigation.Profile{
		UserID:        usr.ID,
		Name:          usr.Name,
		Email:         usr.Email,
		Role:          usr.Role,
		TenantID:      usr.TenantID.String,
		Status:        usr.Status,
		EmailVerified: usr.EmailVerified,
	}, nil
}
