package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenCols = []string{"id", "user_id", "expires_at", "used_at"}

const tokenLookupSQL = "SELECT id, user_id, expires_at, used_at FROM verification_tokens WHERE token_hash=?"

func TestTokenRepo_StoreVerification(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO verification_tokens")).
		WithArgs(4, "abc", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, NewTokenRepo(db).StoreVerification(context.Background(), 4, "abc", time.Now().Add(time.Hour)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_ConsumeVerification(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(tokenLookupSQL)).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(1, 9, time.Now().UTC().Add(time.Hour), nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE verification_tokens SET used_at=UTC_TIMESTAMP() WHERE id=?")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_verified=TRUE WHERE id=?")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	userID, err := NewTokenRepo(db).ConsumeVerification(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), userID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_ConsumeVerificationRejects(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(time.Hour)
	cases := map[string]*sqlmock.Rows{
		"unknown": sqlmock.NewRows(tokenCols),
		"expired": sqlmock.NewRows(tokenCols).AddRow(1, 9, past, nil),
		"used":    sqlmock.NewRows(tokenCols).AddRow(1, 9, future, past),
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(tokenLookupSQL)).WillReturnRows(rows)
			mock.ExpectRollback()

			_, err = NewTokenRepo(db).ConsumeVerification(context.Background(), "abc")
			assert.ErrorIs(t, err, ErrTokenInvalid)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
