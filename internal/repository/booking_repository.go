package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/openmat-booking/internal/model"
)

// BookingRepo inserts bookings and keeps the session capacity counter in
// step with them.  All timestamp fields are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create books one spot of b.SessionID.  The capacity counter is claimed
// with a single conditional UPDATE so two concurrent callers can never both
// take the last spot; the booking row is inserted in the same transaction.
// When the UPDATE matches nothing the session is inspected to report
// ErrSessionNotFound, ErrSessionClosed or ErrSessionFull.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) (*model.SessionListing, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const claim = `UPDATE sessions SET current_capacity = current_capacity + 1
	               WHERE id = ? AND is_open = TRUE AND current_capacity < max_capacity`
	res, err := tx.ExecContext(ctx, claim, b.SessionID)
	if err != nil {
		return nil, fmt.Errorf("claim spot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, classifyUnbookable(ctx, tx, b.SessionID)
	}

	const ins = `INSERT INTO bookings (session_id, user_id, name, email, phone) VALUES (?, ?, ?, ?, ?)`
	res, err = tx.ExecContext(ctx, ins, b.SessionID, b.UserID, b.Name, b.Email, b.Phone)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	b.ID = uint64(id)
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.CreatedAt); err != nil {
		return nil, err
	}

	const sel = `SELECT s.id, s.club_id, s.date, s.start_time, s.end_time,
	                    s.max_capacity, s.current_capacity, s.price, s.is_open, s.created_at,
	                    c.name
	             FROM sessions s
	             JOIN clubs c ON c.id = s.club_id
	             WHERE s.id = ?`
	var l model.SessionListing
	if err := tx.QueryRowContext(ctx, sel, b.SessionID).Scan(
		&l.ID, &l.ClubID, &l.Date, &l.StartTime, &l.EndTime,
		&l.MaxCapacity, &l.CurrentCapacity, &l.Price, &l.IsOpen, &l.CreatedAt,
		&l.ClubName,
	); err != nil {
		return nil, err
	}
	l.SpotsLeft = l.Session.SpotsLeft()

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &l, nil
}

func classifyUnbookable(ctx context.Context, tx *sql.Tx, sessionID uint64) error {
	var (
		maxCap, curCap uint32
		isOpen         bool
	)
	err := tx.QueryRowContext(ctx,
		`SELECT max_capacity, current_capacity, is_open FROM sessions WHERE id = ?`, sessionID,
	).Scan(&maxCap, &curCap, &isOpen)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrSessionNotFound
	case err != nil:
		return err
	case !isOpen:
		return ErrSessionClosed
	default:
		return ErrSessionFull
	}
}
