package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/openmat-booking/internal/model"
)

const clubColumns = "id, name, address, description, image_url, phone, email, created_at, updated_at"

// ClubRepo encapsulates all database queries related to clubs.  It depends
// on a sql.DB connection which is configured elsewhere.
type ClubRepo struct {
	db *sql.DB
}

// NewClubRepo constructs a ClubRepo with the provided DB handle.
func NewClubRepo(db *sql.DB) *ClubRepo {
	return &ClubRepo{db: db}
}

func scanClub(row interface{ Scan(...any) error }, c *model.Club) error {
	return row.Scan(&c.ID, &c.Name, &c.Address, &c.Description, &c.ImageURL, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
}

// Create inserts a new club.  On success the ID and timestamp fields are
// populated from a follow-up SELECT so callers receive the stored record.
func (r *ClubRepo) Create(ctx context.Context, c *model.Club) error {
	const q = `INSERT INTO clubs (name, address, description, image_url, phone, email) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Address, c.Description, c.ImageURL, c.Phone, c.Email)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return r.reload(ctx, c)
}

func (r *ClubRepo) reload(ctx context.Context, c *model.Club) error {
	const q = "SELECT " + clubColumns + " FROM clubs WHERE id = ?"
	if err := scanClub(r.db.QueryRowContext(ctx, q, c.ID), c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrClubNotFound
		}
		return err
	}
	return nil
}

// GetByID fetches a club by id.  It returns ErrClubNotFound when no row
// matches.
func (r *ClubRepo) GetByID(ctx context.Context, id uint64) (*model.Club, error) {
	c := &model.Club{ID: id}
	if err := r.reload(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns every club ordered by id.  The slice is empty, never nil,
// when there are no clubs.
func (r *ClubRepo) List(ctx context.Context) ([]model.Club, error) {
	const q = "SELECT " + clubColumns + " FROM clubs ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Club, 0)
	for rows.Next() {
		var c model.Club
		if err := scanClub(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites every editable field of the club identified by c.ID and
// reloads it.  MySQL reports zero affected rows for an update that changes
// nothing, so existence is decided by the reload.
func (r *ClubRepo) Update(ctx context.Context, c *model.Club) error {
	const q = `UPDATE clubs
	           SET name = ?, address = ?, description = ?, image_url = ?, phone = ?, email = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, c.Name, c.Address, c.Description, c.ImageURL, c.Phone, c.Email, c.ID); err != nil {
		return err
	}
	return r.reload(ctx, c)
}

// Delete removes a club.  Sessions and bookings are removed by the foreign
// key cascade and users' home club reference is cleared.
func (r *ClubRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clubs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClubNotFound
	}
	return nil
}
