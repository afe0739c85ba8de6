package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/openmat-booking/internal/model"
)

// UserRepo reads and writes the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, email, password_hash, name, role, is_verified, home_club_id, created_at, updated_at"

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u    model.User
		home sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.IsVerified, &home, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if home.Valid {
		id := uint64(home.Int64)
		u.HomeClubID = &id
	}
	return &u, nil
}

// Create inserts u with an already hashed password and fills in its ID.
// The email is normalized first.  A duplicate email yields ErrEmailExists
// and an unknown home club ErrClubNotFound.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = model.RoleMember
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, role, is_verified, home_club_id) VALUES (?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Name, u.Role, u.IsVerified, u.HomeClubID)
	if err != nil {
		switch {
		case isMySQLError(err, mysqlDuplicateEntry):
			return ErrEmailExists
		case isMySQLError(err, mysqlNoReferencedRow):
			return ErrClubNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}
