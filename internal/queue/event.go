// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

import "time"

// Queue names.  Events are published to the default exchange with the
// queue name as routing key.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueUserVerification = "user.verification"
)

// BookingConfirmedEvent is published when a booking has been stored.  It
// carries enough information for downstream consumers to log or notify
// without querying the primary database.
type BookingConfirmedEvent struct {
	EventID     string    `json:"eventId"`
	BookingID   uint64    `json:"bookingId"`
	SessionID   uint64    `json:"sessionId"`
	ClubID      uint64    `json:"clubId"`
	ClubName    string    `json:"clubName"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// VerificationRequestedEvent carries a freshly issued email verification
// token to whatever delivers it to the user.
type VerificationRequestedEvent struct {
	EventID   string    `json:"eventId"`
	UserID    uint64    `json:"userId"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
