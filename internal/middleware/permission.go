package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/employee-management/internal/auth"
)

// RequirePermission returns a middleware that admits the request when the
// authenticated caller's claim set carries at least one of the given
// permissions. Holders of admin_access pass every guard. It assumes
// JWTAuth already ran; a request without claims is rejected outright.
func RequirePermission(perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			if claims.HasPermission(auth.PermAdminAccess) {
				return next(c)
			}
			for _, p := range perms {
				if claims.HasPermission(p) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}
