package model

import "time"

// Session is a scheduled, capacity-limited open mat slot belonging to a
// club.  CurrentCapacity counts confirmed bookings and is only ever changed
// by the booking operation.
//
// Fields:
//  ID              – primary key identifier.
//  ClubID          – owning club.
//  Date            – calendar day of the session.
//  StartTime       – when the session begins.
//  EndTime         – when the session ends (after StartTime).
//  MaxCapacity     – number of spots offered.
//  CurrentCapacity – number of spots already booked.
//  Price           – price per spot in cents.
//  IsOpen          – whether the session accepts bookings.
type Session struct {
	ID              uint64    `json:"id"`              // sessions.id
	ClubID          uint64    `json:"clubId"`          // sessions.club_id
	Date            time.Time `json:"date"`            // sessions.date
	StartTime       time.Time `json:"startTime"`       // sessions.start_time
	EndTime         time.Time `json:"endTime"`         // sessions.end_time
	MaxCapacity     uint32    `json:"maxCapacity"`     // sessions.max_capacity
	CurrentCapacity uint32    `json:"currentCapacity"` // sessions.current_capacity
	Price           uint32    `json:"price"`           // sessions.price (cents)
	IsOpen          bool      `json:"isOpen"`          // sessions.is_open
	CreatedAt       time.Time `json:"-"`               // sessions.created_at
}

// SpotsLeft returns the number of unbooked spots.
func (s Session) SpotsLeft() uint32 {
	if s.CurrentCapacity >= s.MaxCapacity {
		return 0
	}
	return s.MaxCapacity - s.CurrentCapacity
}

// SessionListing is a session joined with the name of its club, used by the
// cross-club upcoming sessions feed.
type SessionListing struct {
	Session
	ClubName  string `json:"clubName"`
	SpotsLeft uint32 `json:"spotsLeft"`
}
