// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/openmat-booking/internal/handler"
	"github.com/iliyamo/openmat-booking/internal/metrics"
	"github.com/iliyamo/openmat-booking/internal/middleware"
	"github.com/iliyamo/openmat-booking/internal/model"
)

// Deps carries everything the routes need.  Cache may be nil, in which
// case responses are not cached.
type Deps struct {
	JWTSecret string

	Auth     *handler.AuthHandler
	Clubs    *handler.ClubHandler
	Sessions *handler.SessionHandler
	Bookings *handler.BookingHandler

	Cache     *middleware.RedisCache
	RateLimit echo.MiddlewareFunc
	Metrics   *metrics.Metrics
}

func (d Deps) cache() echo.MiddlewareFunc {
	if d.Cache == nil {
		return passThrough
	}
	return d.Cache.Middleware()
}

func (d Deps) rateLimit() echo.MiddlewareFunc {
	if d.RateLimit == nil {
		return passThrough
	}
	return d.RateLimit
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// Register mounts every route of the service.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d.Metrics)
	RegisterAuth(e, d)
	RegisterPublic(e, d)
	RegisterAdmin(e, d)
}

// RegisterRoutes registers the operational endpoints: the health check and
// the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth registers the account endpoints under /api/auth.  Register,
// login and verify are rate limited; /me requires a bearer token.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/api/auth")
	rl := d.rateLimit()
	g.POST("/register", d.Auth.Register, rl)
	g.POST("/login", d.Auth.Login, rl)
	g.POST("/verify", d.Auth.Verify, rl)
	g.GET("/me", d.Auth.Me, middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(model.RoleMember, model.RoleAdmin))
}
