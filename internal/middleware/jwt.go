package middleware // middleware contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/openmat-booking/internal/utils"
)

// bearerToken returns the raw token of an "Authorization: Bearer <jwt>"
// header, or "" when the header is absent or uses another scheme.
func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and role claims into the request context.  A
// missing token is answered with 401, an invalid or expired one with 403.
// Handlers read the identity via UserID(c) and Role(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid token"})
			}
			uid, _ := claims.UserID()
			c.Set(CtxUserID, uid)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// OptionalJWT attaches the identity of a valid bearer token when one is
// sent and lets every request through.  Guests and callers with an unusable
// token proceed anonymously.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearerToken(c); raw != "" {
				claims, err := utils.ParseAccessToken(secret, raw)
				if err != nil {
					logrus.WithError(err).WithField("path", c.Path()).Debug("ignoring unusable bearer token")
				} else {
					uid, _ := claims.UserID()
					c.Set(CtxUserID, uid)
					c.Set(CtxRole, claims.Role)
				}
			}
			return next(c)
		}
	}
}
