package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one structured access log line per request and
// tags the request with an id, taken from X-Request-ID when the caller sent
// one.  Errors returned by handlers are resolved through c.Error so the
// logged status is the one the client received.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(CtxRequestID, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := logrus.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"route":      c.Path(),
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"request_id": rid,
				"remote_ip":  c.RealIP(),
			}
			if uid, ok := UserID(c); ok {
				fields["user_id"] = uid
			}
			entry := logrus.WithFields(fields)
			switch {
			case status >= 500:
				entry.Error("request")
			case status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		}
	}
}
