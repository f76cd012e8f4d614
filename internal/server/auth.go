package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderAPIKey carries the shared secret on every honeypot request.
const HeaderAPIKey = "X-API-Key"

// RequireAPIKey rejects requests whose X-API-Key header does not match
// the configured secret. It runs before the handler, so an
// unauthorized request never touches the ledger.
func RequireAPIKey(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			presented := c.Request().Header.Get(HeaderAPIKey)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			return next(c)
		}
	}
}
