package sqlstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
	"github.com/Chia-Network/offer-codes/storage/testkit"
)

func TestSQLiteConformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		s, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), "offers.db"), true)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestPostgresConformance(t *testing.T) {
	dsn := os.Getenv("OFFER_CODES_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("OFFER_CODES_TEST_POSTGRES_DSN not set")
	}
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		s, err := Open(context.Background(), Postgres, dsn, true)
		require.NoError(t, err)
		_, err = s.db.Exec("DELETE FROM offers")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestPostgresDialectStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS offers")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := New(ctx, db, Postgres, true)
	require.NoError(t, err)

	payload := []byte("offer")
	code := offer.DefaultScheme().Code(payload)

	// Fresh insert.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO offers (code, payload) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING")).
		WithArgs([]byte(code), payload).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, s.Put(ctx, code, payload))

	// Existing identical record.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO offers")).
		WithArgs([]byte(code), payload).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM offers WHERE code = $1")).
		WithArgs([]byte(code)).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	assert.NoError(t, s.Put(ctx, code, payload))

	// Existing different record.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO offers")).
		WithArgs([]byte(code), []byte("other")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM offers")).
		WithArgs([]byte(code)).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	assert.ErrorIs(t, s.Put(ctx, code, []byte("other")), storage.ErrCollision)

	// Absent.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM offers")).
		WithArgs([]byte(code)).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))
	_, found, err := s.Get(ctx, code)
	assert.NoError(t, err)
	assert.False(t, found)

	// Driver failure.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM offers")).
		WithArgs([]byte(code)).
		WillReturnError(errors.New("connection reset"))
	_, _, err = s.Get(ctx, code)
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteDialectPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := New(context.Background(), db, SQLite, false)
	require.NoError(t, err)

	payload := []byte("offer")
	code := offer.DefaultScheme().Code(payload)
	mock.ExpectExec(regexp.QuoteMeta("VALUES (?, ?) ON CONFLICT (code) DO NOTHING")).
		WithArgs([]byte(code), payload).
		WillReturnError(errors.New("disk I/O error"))
	err = s.Put(context.Background(), code, payload)
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrCollision)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	_, _, err := registry.Open(ctx, "sqlite", registry.UsageServer, registry.Settings{}, nil)
	require.Error(t, err)

	s, closeFn, err := registry.Open(ctx, "sqlite", registry.UsageServer,
		registry.Settings{"path": filepath.Join(t.TempDir(), "x.db")}, nil)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NoError(t, closeFn())

	_, _, err = registry.Open(ctx, "postgres", registry.UsageServer, registry.Settings{}, nil)
	require.Error(t, err)
}
