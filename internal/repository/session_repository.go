package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/openmat-booking/internal/model"
)

const sessionColumns = "id, club_id, date, start_time, end_time, max_capacity, current_capacity, price, is_open, created_at"

// SessionRepo manages persistence for sessions.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a SessionRepo bound to db.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

func scanSession(row interface{ Scan(...any) error }, s *model.Session) error {
	return row.Scan(&s.ID, &s.ClubID, &s.Date, &s.StartTime, &s.EndTime,
		&s.MaxCapacity, &s.CurrentCapacity, &s.Price, &s.IsOpen, &s.CreatedAt)
}

// Create inserts a new session for s.ClubID.  The current capacity always
// starts at zero regardless of the value carried by s.  ErrClubNotFound is
// returned when the club does not exist.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions (club_id, date, start_time, end_time, max_capacity, current_capacity, price, is_open)
	           VALUES (?, ?, ?, ?, ?, 0, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.ClubID, s.Date.UTC(), s.StartTime.UTC(), s.EndTime.UTC(), s.MaxCapacity, s.Price, s.IsOpen)
	if err != nil {
		if isMySQLError(err, mysqlNoReferencedRow) {
			return ErrClubNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	const sel = "SELECT " + sessionColumns + " FROM sessions WHERE id = ?"
	return scanSession(r.db.QueryRowContext(ctx, sel, id), s)
}

// GetByID fetches a session.  ErrSessionNotFound is returned when the id is
// unknown.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = "SELECT " + sessionColumns + " FROM sessions WHERE id = ?"
	var s model.Session
	if err := scanSession(r.db.QueryRowContext(ctx, q, id), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByClub returns all sessions of a club ordered by start time.  An
// unknown club yields an empty slice.
func (r *SessionRepo) ListByClub(ctx context.Context, clubID uint64) ([]model.Session, error) {
	const q = "SELECT " + sessionColumns + " FROM sessions WHERE club_id = ? ORDER BY start_time, id"
	rows, err := r.db.QueryContext(ctx, q, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Session, 0)
	for rows.Next() {
		var s model.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListUpcomingPerClub returns, keyed by club id, at most perClub sessions per
// club that have not started yet, earliest first.  Clubs without upcoming
// sessions are absent from the map.
func (r *SessionRepo) ListUpcomingPerClub(ctx context.Context, perClub int) (map[uint64][]model.Session, error) {
	const q = `SELECT ` + sessionColumns + `
	           FROM (
	               SELECT s.*, ROW_NUMBER() OVER (PARTITION BY s.club_id ORDER BY s.start_time, s.id) AS rn
	               FROM sessions s
	               WHERE s.start_time >= UTC_TIMESTAMP()
	           ) ranked
	           WHERE rn <= ?
	           ORDER BY club_id, start_time, id`
	rows, err := r.db.QueryContext(ctx, q, perClub)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64][]model.Session)
	for rows.Next() {
		var s model.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		out[s.ClubID] = append(out[s.ClubID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
