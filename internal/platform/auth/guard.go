package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/rbac"
)

// RequireRole admits only actors whose role is in the given set.
func RequireRole(roles ...rbac.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := MustActor(c)
			for _, r := range roles {
				if actor.Role == r {
					return next(c)
				}
			}
			names := make([]string, len(roles))
			for i, r := range roles {
				names[i] = string(r)
			}
			return apperror.Authorization("required role: %s", strings.Join(names, " or "))
		}
	}
}

// RequireCapability admits only actors whose role satisfies the predicate.
// The name appears in the error message.
func RequireCapability(name string, pred func(rbac.Role) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !pred(MustActor(c).Role) {
				return apperror.Authorization("missing capability: %s", name)
			}
			return next(c)
		}
	}
}
