package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/openmat-booking/internal/middleware"
	"github.com/iliyamo/openmat-booking/internal/model"
)

// RegisterAdmin registers club and session writes.  All routes require a
// valid JWT and the ADMIN role.  The middleware is attached per route so
// unknown /api paths still answer 404 rather than 401.
func RegisterAdmin(e *echo.Echo, d Deps) {
	admin := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	}
	g := e.Group("/api")

	// ---- Clubs ----
	g.POST("/clubs", d.Clubs.Create, admin...)
	g.PUT("/clubs/:id", d.Clubs.Update, admin...)
	g.DELETE("/clubs/:id", d.Clubs.Delete, admin...)

	// ---- Sessions ----
	g.POST("/clubs/:id/sessions", d.Sessions.Create, admin...)
}
