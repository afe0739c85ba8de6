package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/openmat-booking/internal/middleware"
)

// RegisterPublic registers the browse endpoints and booking.  Reads are
// served through the response cache.  Booking accepts guests; a valid bearer
// token links the booking to the caller.
func RegisterPublic(e *echo.Echo, d Deps) {
	cache := d.cache()

	e.GET("/api/clubs", d.Clubs.List, cache)
	e.GET("/api/clubs/:id", d.Clubs.Get, cache)
	e.GET("/api/clubs/:id/sessions", d.Sessions.ListByClub, cache)

	e.GET("/api/sessions/upcoming", d.Sessions.Upcoming, cache)
	e.GET("/api/sessions/:id", d.Sessions.Get, cache)

	// OptionalJWT runs first so the limiter can key on the user.
	e.POST("/api/sessions/:id/book", d.Bookings.Book, middleware.OptionalJWT(d.JWTSecret), d.rateLimit())
}
