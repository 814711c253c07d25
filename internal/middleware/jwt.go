// Package middleware provides shared request processing for handlers:
// bearer-token authentication, permission enforcement, session activity
// tracking and rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/employee-management/internal/auth"
)

// Context keys populated by JWTAuth for downstream middleware and handlers.
const (
	CtxAccountID = "account_id"
	CtxClaims    = "claims"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the verified claim set into the request context. Handlers
// read the caller's identity via c.Get(CtxAccountID) and the full claims
// via c.Get(CtxClaims). Verification is stateless; revocation is enforced
// at refresh and logout, not per request.
func JWTAuth(issuer *auth.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := issuer.ValidateAccessToken(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxAccountID, claims.AccountID)
			c.Set(CtxClaims, claims)
			return next(c)
		}
	}
}

// ClaimsFrom extracts the verified claims stored by JWTAuth, or nil when
// the route is not behind it.
func ClaimsFrom(c echo.Context) *auth.Claims {
	claims, _ := c.Get(CtxClaims).(*auth.Claims)
	return claims
}

// AccountIDFrom extracts the authenticated account id, zero when absent.
func AccountIDFrom(c echo.Context) uint64 {
	id, _ := c.Get(CtxAccountID).(uint64)
	return id
}
