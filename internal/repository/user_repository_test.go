package repository

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/openmat-booking/internal/model"
)

var userCols = []string{"id", "email", "password_hash", "name", "role", "is_verified", "home_club_id", "created_at", "updated_at"}

func TestUserRepo_CreateNormalizesEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	u := &model.User{Email: "  Ann@Example.COM ", PasswordHash: "hash", Name: gofakeit.Name()}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("ann@example.com", "hash", u.Name, model.RoleMember, false, nil).
		WillReturnResult(sqlmock.NewResult(12, 1))

	require.NoError(t, NewUserRepo(db).Create(context.Background(), u))
	assert.Equal(t, uint64(12), u.ID)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	email := strings.ToLower(gofakeit.Email())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '" + email + "' for key 'uq_users_email'"})

	u := &model.User{Email: email, PasswordHash: "hash", Name: gofakeit.Name()}
	err = NewUserRepo(db).Create(context.Background(), u)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.Zero(t, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateUnknownHomeClub(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	home := uint64(99)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(sqlmock.AnyArg(), "hash", "Bo", model.RoleMember, true, 99).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	u := &model.User{Email: gofakeit.Email(), PasswordHash: "hash", Name: "Bo", IsVerified: true, HomeClubID: &home}
	assert.ErrorIs(t, NewUserRepo(db).Create(context.Background(), u), ErrClubNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("coach@club.test").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(3, "coach@club.test", "h", "Coach", "ADMIN", true, 4, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("nobody@club.test").
		WillReturnRows(sqlmock.NewRows(userCols))

	repo := NewUserRepo(db)
	u, err := repo.GetByEmail(context.Background(), "Coach@Club.test")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	require.NotNil(t, u.HomeClubID)
	assert.Equal(t, uint64(4), *u.HomeClubID)

	_, err = repo.GetByEmail(context.Background(), "nobody@club.test")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByIDWithoutHomeClub(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(3, "a@b.test", "h", "A", "MEMBER", false, nil, now, now))

	u, err := NewUserRepo(db).GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, u.HomeClubID)
	assert.False(t, u.IsVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}
