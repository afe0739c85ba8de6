// Package repository contains the MySQL data access layer.  It defines
// sentinel errors that are reused across repositories so that handlers can
// distinguish failure scenarios with errors.Is.  For example ErrSessionFull
// signals that a booking lost the race for the last spot, while ErrConflict
// signals a write that clashes with existing state.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrClubNotFound is returned when a club id does not exist.
	ErrClubNotFound = errors.New("club not found")
	// ErrSessionNotFound is returned when a session id does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionFull is returned when a session has no spots left.
	ErrSessionFull = errors.New("session is full")
	// ErrSessionClosed is returned when a session does not accept bookings.
	ErrSessionClosed = errors.New("session is closed")
	// ErrEmailExists is returned when registering an address twice.
	ErrEmailExists = errors.New("email already registered")
	// ErrUserNotFound is returned when a user lookup has no result.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenInvalid covers unknown, expired and already used
	// verification tokens.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrForbidden is returned when the caller may not act on a resource.
	// Handlers translate this into an HTTP 403 response.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a write cannot be performed because of
	// conflicting state.  Handlers translate this into an HTTP 409 response.
	ErrConflict = errors.New("conflict")
)

// MySQL server error numbers inspected by the repositories.
const (
	mysqlDuplicateEntry  uint16 = 1062
	mysqlNoReferencedRow uint16 = 1452
)

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}
