package middleware

// identity.go holds the context keys shared by the middleware and handlers
// and helpers that read the authenticated identity back out of an Echo
// context.  Anonymous requests carry no user id.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth/OptionalJWT and RequestLogger.
const (
	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxRequestID = "request_id"
)

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id > 0
}

// Role returns the authenticated role or "" for anonymous requests.
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// identityKey identifies the caller for rate limiting: the user id when
// authenticated, "anon" otherwise.
func identityKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
