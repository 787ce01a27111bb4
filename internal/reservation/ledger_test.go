package reservation_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/models"
	"github.com/vouchertrack/backoffice/internal/reservation"
	"github.com/vouchertrack/backoffice/pkg/database"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Run())
	return db
}

// seedBook inserts a branch and one voucher book, returning the book.
func seedBook(t *testing.T, db *database.DB, name string, start, end int64) *models.VoucherBook {
	t.Helper()
	result, err := db.Exec(
		"INSERT INTO branches (username, password_hash, branch_name) VALUES (?, ?, ?)",
		"branch-"+name, "x", "Branch "+name)
	require.NoError(t, err)
	branchID, err := result.LastInsertId()
	require.NoError(t, err)

	result, err = db.Exec(
		"INSERT INTO voucher_books (branch_id, name, start_no, end_no) VALUES (?, ?, ?, ?)",
		branchID, name, start, end)
	require.NoError(t, err)
	bookID, err := result.LastInsertId()
	require.NoError(t, err)

	return &models.VoucherBook{ID: bookID, BranchID: branchID, Name: name, Start: start, End: end}
}

func inTx(t *testing.T, db *database.DB, fn func(tx *sql.Tx) error) error {
	t.Helper()
	return db.WithTransaction(context.Background(), fn)
}

func countReservations(t *testing.T, db *database.DB, book *models.VoucherBook) int {
	t.Helper()
	var n int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM voucher_reservations WHERE branch_id = ? AND book_id = ?",
		book.BranchID, book.ID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestLedger_Reserve(t *testing.T) {
	ctx := context.Background()
	ledger := reservation.NewLedger(zap.NewNop())

	t.Run("reserves a number in range", func(t *testing.T) {
		db := newTestDB(t)
		book := seedBook(t, db, "A", 1, 100)

		err := inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Reserve(ctx, tx, book, "7")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, countReservations(t, db, book))
	})

	t.Run("conflict when number already used", func(t *testing.T) {
		db := newTestDB(t)
		book := seedBook(t, db, "A", 1, 100)

		require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Reserve(ctx, tx, book, "7")
		}))

		err := inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Reserve(ctx, tx, book, "7")
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.Equal(t, 1, countReservations(t, db, book), "registry unchanged on conflict")
	})

	t.Run("validation when number out of range", func(t *testing.T) {
		db := newTestDB(t)
		book := seedBook(t, db, "A", 10, 20)

		for _, no := range []string{"9", "21"} {
			err := inTx(t, db, func(tx *sql.Tx) error {
				return ledger.Reserve(ctx, tx, book, no)
			})
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		}
		assert.Equal(t, 0, countReservations(t, db, book))
	})

	t.Run("validation on non-numeric token", func(t *testing.T) {
		db := newTestDB(t)
		book := seedBook(t, db, "A", 1, 100)

		err := inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Reserve(ctx, tx, book, "7a")
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("padded tokens are distinct", func(t *testing.T) {
		db := newTestDB(t)
		book := seedBook(t, db, "A", 1, 100)

		require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Reserve(ctx, tx, book, "7")
		}))
		require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Reserve(ctx, tx, book, "007")
		}))
		assert.Equal(t, 2, countReservations(t, db, book))
	})
}

func TestLedger_Release(t *testing.T) {
	ctx := context.Background()
	ledger := reservation.NewLedger(zap.NewNop())
	db := newTestDB(t)
	book := seedBook(t, db, "A", 1, 100)

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		return ledger.Reserve(ctx, tx, book, "5")
	}))

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		return ledger.Release(ctx, tx, book.BranchID, book.ID, "5")
	}))
	assert.Equal(t, 0, countReservations(t, db, book))

	// Releasing an absent number is a no-op.
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		return ledger.Release(ctx, tx, book.BranchID, book.ID, "5")
	}))

	// The freed number can be reserved again.
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		return ledger.Reserve(ctx, tx, book, "5")
	}))
	assert.Equal(t, 1, countReservations(t, db, book))
}

func TestLedger_Change(t *testing.T) {
	ctx := context.Background()
	ledger := reservation.NewLedger(zap.NewNop())

	t.Run("same pair is a no-op", func(t *testing.T) {
		db := newTestDB(t)
		book := seedBook(t, db, "A", 1, 100)

		require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Reserve(ctx, tx, book, "3")
		}))
		require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Change(ctx, tx, book.BranchID, book, "3", book, "3")
		}))
		assert.Equal(t, 1, countReservations(t, db, book))
	})

	t.Run("swaps old claim for new", func(t *testing.T) {
		db := newTestDB(t)
		book := seedBook(t, db, "A", 1, 100)

		require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Reserve(ctx, tx, book, "3")
		}))
		require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Change(ctx, tx, book.BranchID, book, "3", book, "4")
		}))

		reserved, err := ledger.IsReserved(ctx, db.DB, book.BranchID, book.ID, "4")
		require.NoError(t, err)
		assert.True(t, reserved)

		reserved, err = ledger.IsReserved(ctx, db.DB, book.BranchID, book.ID, "3")
		require.NoError(t, err)
		assert.False(t, reserved)
	})

	t.Run("conflict when new number is taken, old claim survives rollback", func(t *testing.T) {
		db := newTestDB(t)
		book := seedBook(t, db, "A", 1, 100)

		require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Reserve(ctx, tx, book, "3")
		}))
		require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Reserve(ctx, tx, book, "4")
		}))

		err := inTx(t, db, func(tx *sql.Tx) error {
			return ledger.Change(ctx, tx, book.BranchID, book, "3", book, "4")
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

		// The rolled-back transaction must leave the old claim in place.
		reserved, err := ledger.IsReserved(ctx, db.DB, book.BranchID, book.ID, "3")
		require.NoError(t, err)
		assert.True(t, reserved)
	})
}
