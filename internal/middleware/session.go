package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
)

// SessionHeader carries the opaque session token on authenticated requests.
const SessionHeader = "X-Session-Token"

// TrackActivity stamps the caller's session on every request that presents
// a session token. The touch function is fire-and-forget; a stale or
// unknown token never fails the request.
func TrackActivity(touch func(ctx context.Context, sessionToken string)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := c.Request().Header.Get(SessionHeader); token != "" {
				touch(c.Request().Context(), token)
			}
			return next(c)
		}
	}
}
