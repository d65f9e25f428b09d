// Package middleware provides the session and capability checks applied at
// route boundaries.
package middleware

import (
	"strings"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/labstack/echo/v4"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "eb_session"

// Session resolves the request's session token, if any, and attaches the
// user to the request context. Anonymous requests pass through untouched;
// route-level guards decide whether that is acceptable.
func Session(store domain.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := sessionToken(c)
			if token == "" {
				return next(c)
			}

			user, err := store.GetUserBySessionToken(c.Request().Context(), token)
			if err != nil {
				// A stale token is treated as anonymous, not as an error.
				if domain.IsCode(err, domain.EUNAUTHORIZED) {
					return next(c)
				}
				return err
			}

			ctx := domain.NewContextWithUser(c.Request().Context(), user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if domain.UserFromContext(c.Request().Context()) == nil {
				return domain.Unauthorized("auth.require", "authentication required")
			}
			return next(c)
		}
	}
}

// RequireRole rejects requests whose user does not hold the role.
func RequireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := domain.UserFromContext(c.Request().Context())
			if user == nil {
				return domain.Unauthorized("auth.require", "authentication required")
			}
			if !user.Can(role) {
				return domain.Forbidden("auth.require", "insufficient permissions")
			}
			return next(c)
		}
	}
}

func sessionToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
