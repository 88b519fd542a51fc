package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole enforces that the authenticated user carries at least one
// of the given roles in its token claims. It assumes JWTAuth ran
// earlier and stored the roles slice in the context.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			have, _ := c.Get(CtxRoles).([]string)
			for _, r := range have {
				if allowed[r] {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}

// RequirePermission enforces that the token's permission claims contain
// every listed permission. Claims reflect the effective set resolved at
// issuance time; changes apply on the next login or refresh.
func RequirePermission(perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			have, _ := c.Get(CtxPermissions).([]string)
			haveSet := make(map[string]bool, len(have))
			for _, p := range have {
				haveSet[p] = true
			}
			for _, p := range perms {
				if !haveSet[p] {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
				}
			}
			return next(c)
		}
	}
}
