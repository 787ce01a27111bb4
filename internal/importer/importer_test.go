package importer_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/importer"
	"github.com/vouchertrack/backoffice/internal/models"
	"github.com/vouchertrack/backoffice/internal/repository"
	"github.com/vouchertrack/backoffice/internal/reservation"
	"github.com/vouchertrack/backoffice/pkg/database"
	"go.uber.org/zap"
)

type fixture struct {
	db       *database.DB
	importer *importer.Importer
	branchID int64
}

func newFixture(t *testing.T) *fixture {
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

	result, err := db.Exec(
		"INSERT INTO branches (username, password_hash, branch_name) VALUES (?, ?, ?)",
		"branch-1", "x", "Branch One")
	require.NoError(t, err)
	branchID, err := result.LastInsertId()
	require.NoError(t, err)

	_, err = db.Exec(
		"INSERT INTO voucher_books (branch_id, name, start_no, end_no) VALUES (?, ?, ?, ?)",
		branchID, "A", 1, 10)
	require.NoError(t, err)

	branchRepo := repository.NewBranchRepository(db.DB, logger)
	entryRepo := repository.NewEntryRepository(db.DB, logger)
	ledger := reservation.NewLedger(logger)

	return &fixture{
		db:       db,
		importer: importer.New(db, branchRepo, entryRepo, ledger, logger),
		branchID: branchID,
	}
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func rows(nos ...string) []importer.Row {
	out := make([]importer.Row, 0, len(nos))
	for _, no := range nos {
		out = append(out, importer.Row{VoucherBook: "A", VoucherNo: no, Amount: "100"})
	}
	return out
}

func TestImportStrict(t *testing.T) {
	ctx := context.Background()

	t.Run("commits a clean batch with reservations", func(t *testing.T) {
		f := newFixture(t)

		entries, err := f.importer.ImportStrict(ctx, f.branchID, rows("1", "2", "3"))
		require.NoError(t, err)
		assert.Len(t, entries, 3)
		assert.Equal(t, 3, f.count(t, "voucher_entries"))
		assert.Equal(t, 3, f.count(t, "voucher_reservations"))
	})

	t.Run("out-of-range row aborts the whole batch", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.importer.ImportStrict(ctx, f.branchID, rows("1", "2", "11", "3"))
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Contains(t, apperr.MessageOf(err), "row 3")

		assert.Equal(t, 0, f.count(t, "voucher_entries"), "zero rows persisted")
		assert.Equal(t, 0, f.count(t, "voucher_reservations"), "zero numbers left reserved")
	})

	t.Run("duplicate number within the batch conflicts", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.importer.ImportStrict(ctx, f.branchID, rows("1", "1"))
		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.Equal(t, 0, f.count(t, "voucher_entries"))
		assert.Equal(t, 0, f.count(t, "voucher_reservations"))
	})

	t.Run("unknown book is not found", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.importer.ImportStrict(ctx, f.branchID, []importer.Row{
			{VoucherBook: "Z", VoucherNo: "1"},
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestImportPermissive(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts rows without reservation checks", func(t *testing.T) {
		f := newFixture(t)

		// "11" is outside the book range and "1" repeats: both accepted.
		entries, err := f.importer.ImportPermissive(ctx, f.branchID, rows("1", "1", "11"))
		require.NoError(t, err)
		assert.Len(t, entries, 3)
		assert.Equal(t, 0, f.count(t, "voucher_reservations"), "permissive mode reserves nothing")
	})

	t.Run("coerces amounts and derives status", func(t *testing.T) {
		f := newFixture(t)

		entries, err := f.importer.ImportPermissive(ctx, f.branchID, []importer.Row{
			{
				VoucherBook:        "A",
				VoucherNo:          "5",
				Amount:             "1,000",
				DiscountAdvance:    "50",
				Dues:               "not-a-number",
				VoucherClearedDate: "2024-03-01",
			},
			{
				VoucherBook: "A",
				VoucherNo:   "6",
				Amount:      "",
			},
		})
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, 1000.0, entries[0].Amount)
		assert.Equal(t, 0.0, entries[0].Dues, "unparsable dues coerced to zero")
		assert.Equal(t, 950.0, entries[0].NetBalance)
		assert.Equal(t, models.StatusActive, entries[0].Status, "clearing date makes it active")

		assert.Equal(t, 0.0, entries[1].Amount, "missing amount coerced to zero")
		assert.Equal(t, models.StatusPending, entries[1].Status)
	})
}
