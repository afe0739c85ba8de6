package model

import "time"

// Booking is a reservation of one spot in a session.  Guests may book
// without an account, in which case UserID is nil; at least one of Email
// or Phone is always present.
type Booking struct {
	ID        uint64    `json:"id"`        // bookings.id
	SessionID uint64    `json:"sessionId"` // bookings.session_id
	UserID    *uint64   `json:"userId"`    // bookings.user_id (nullable)
	Name      string    `json:"name"`      // bookings.name
	Email     *string   `json:"email"`     // bookings.email (nullable)
	Phone     *string   `json:"phone"`     // bookings.phone (nullable)
	CreatedAt time.Time `json:"createdAt"` // bookings.created_at
}
