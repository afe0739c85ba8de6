package model

import "time"

// Club represents a venue that offers open mat sessions.  It corresponds
// to a row in the `clubs` table.  Clubs are managed by administrators and
// browsed publicly.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name of the club.
//  Address     – street address shown on the club page.
//  Description – free text about the club.
//  ImageURL    – banner image reference.
//  Phone       – contact phone number.
//  Email       – contact email address.
//  CreatedAt   – timestamp when the club was created.
//  UpdatedAt   – timestamp of last update.
type Club struct {
	ID          uint64    `json:"id"`          // clubs.id
	Name        string    `json:"name"`        // clubs.name
	Address     string    `json:"address"`     // clubs.address
	Description string    `json:"description"` // clubs.description
	ImageURL    string    `json:"imageUrl"`    // clubs.image_url
	Phone       string    `json:"phone"`       // clubs.phone
	Email       string    `json:"email"`       // clubs.email
	CreatedAt   time.Time `json:"-"`           // clubs.created_at
	UpdatedAt   time.Time `json:"-"`           // clubs.updated_at
}

// ClubWithSessions is the list representation of a club: the club itself
// plus a short preview of its next sessions.
type ClubWithSessions struct {
	Club
	UpcomingSessions []Session `json:"upcomingSessions"`
}
