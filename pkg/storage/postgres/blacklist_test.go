package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockBlacklist(t *testing.T) (*BlacklistStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewBlacklistStore(NewSinglePool(db)), mock, func() { db.Close() }
}

func TestBlacklistStore_Insert(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store, mock, cleanup := setupMockBlacklist(t)
		defer cleanup()

		expiresAt := time.Now().Add(time.Hour)
		mock.ExpectExec("INSERT INTO token_blacklist").
			WithArgs("fp-1", sql.NullString{String: "user-1", Valid: true}, "logout", expiresAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.Insert(context.Background(), "fp-1", expiresAt, "user-1", "logout")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no user id", func(t *testing.T) {
		store, mock, cleanup := setupMockBlacklist(t)
		defer cleanup()

		expiresAt := time.Now().Add(time.Hour)
		mock.ExpectExec("INSERT INTO token_blacklist").
			WithArgs("fp-1", sql.NullString{}, "logout", expiresAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.Insert(context.Background(), "fp-1", expiresAt, "", "logout")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate fingerprint is a no-op", func(t *testing.T) {
		store, mock, cleanup := setupMockBlacklist(t)
		defer cleanup()

		expiresAt := time.Now().Add(time.Hour)
		mock.ExpectExec("INSERT INTO token_blacklist").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Insert(context.Background(), "fp-1", expiresAt, "user-1", "logout")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		store, mock, cleanup := setupMockBlacklist(t)
		defer cleanup()

		mock.ExpectExec("INSERT INTO token_blacklist").
			WillReturnError(errors.New("connection refused"))

		err := store.Insert(context.Background(), "fp-1", time.Now().Add(time.Hour), "user-1", "logout")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBlacklistStore_Lookup(t *testing.T) {
	t.Run("active entry", func(t *testing.T) {
		store, mock, cleanup := setupMockBlacklist(t)
		defer cleanup()

		expiresAt := time.Now().Add(time.Hour).UTC()
		mock.ExpectQuery("SELECT expires_at FROM token_blacklist").
			WithArgs("fp-1").
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(expiresAt))

		got, found, err := store.Lookup(context.Background(), "fp-1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.WithinDuration(t, expiresAt, got, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no entry", func(t *testing.T) {
		store, mock, cleanup := setupMockBlacklist(t)
		defer cleanup()

		mock.ExpectQuery("SELECT expires_at FROM token_blacklist").
			WithArgs("fp-2").
			WillReturnError(sql.ErrNoRows)

		_, found, err := store.Lookup(context.Background(), "fp-2")
		assert.NoError(t, err)
		assert.False(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		store, mock, cleanup := setupMockBlacklist(t)
		defer cleanup()

		mock.ExpectQuery("SELECT expires_at FROM token_blacklist").
			WillReturnError(errors.New("connection refused"))

		_, found, err := store.Lookup(context.Background(), "fp-3")
		assert.Error(t, err)
		assert.False(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBlacklistStore_DeleteExpired(t *testing.T) {
	store, mock, cleanup := setupMockBlacklist(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM token_blacklist").
		WillReturnResult(sqlmock.NewResult(0, 7))

	removed, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistStore_CountActive(t *testing.T) {
	store, mock, cleanup := setupMockBlacklist(t)
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM token_blacklist").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := store.CountActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
