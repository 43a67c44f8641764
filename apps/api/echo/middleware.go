package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lehine87/educanvas/core/navigation"
	"github.com/lehine87/educanvas/core/user"
)

// roleMiddleware lets the request through when the authenticated user holds
// any of roles. With no roles it only requires authentication.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if len(roles) == 0 {
				return next(ctx)
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RolePlatformAdmin, user.RoleTenantAdmin)
}

func platformAdminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RolePlatformAdmin)
}

// navigationMiddleware is the server-side page guard: every page request is
// run through the navigation controller and bounced when the decision says
// so. API, debug and asset requests are not pages and pass through untouched.
func navigationMiddleware(ctl *navigation.Controller) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			path := ctx.Request().URL.Path
			if skipNavigation(path) {
				return next(ctx)
			}

			result := ctl.CheckRedirectForRequest(ctx.Request().Context(), ctx.Request())
			if result.ShouldRedirect && result.TargetPath != path {
				return ctx.Redirect(http.StatusFound, result.TargetPath)
			}
			return next(ctx)
		}
	}
}

func skipNavigation(path string) bool {
	if path == "/" { // API banner
		return true
	}
	for _, prefix := range []string{"/v1", "/debug", "/static", "/favicon.ico"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	// asset requests carry a file extension
	if i := strings.LastIndexByte(path, '/'); i >= 0 && strings.ContainsRune(path[i:], '.') {
		return true
	}
	return false
}
