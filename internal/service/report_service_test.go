package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/models"
	"github.com/vouchertrack/backoffice/internal/service"
)

// setCreatedAt pins an entry's creation time for the date-window tests.
func (f *fixture) setCreatedAt(t *testing.T, entryID int64, ts time.Time) {
	t.Helper()
	_, err := f.db.Exec("UPDATE voucher_entries SET created_at = ? WHERE id = ?", ts, entryID)
	require.NoError(t, err)
}

func TestReportService_StatusAndDateWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "A", 1, 1000)

	create := func(no string) *models.VoucherEntry {
		entry, err := f.entries.Create(ctx, f.branch.ID, service.EntryInput{
			VoucherBook: "A", VoucherNo: no, Supplier: "Acme", Amount: 10,
		})
		require.NoError(t, err)
		return entry
	}

	inWindow := create("1")
	lastMinute := create("2")
	after := create("3")
	before := create("4")

	f.setCreatedAt(t, inWindow.ID, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	f.setCreatedAt(t, lastMinute.ID, time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC))
	f.setCreatedAt(t, after.ID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	f.setCreatedAt(t, before.ID, time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC))

	page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{
		Status:      models.StatusPending,
		CreatedFrom: "2024-01-01",
		CreatedTo:   "2024-01-31",
	})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)

	got := []string{page.Entries[0].VoucherNo, page.Entries[1].VoucherNo}
	assert.ElementsMatch(t, []string{"1", "2"}, got,
		"23:59 on the last day is included, next-day midnight is excluded")
}

func TestReportService_WindowIncludesStoredTimestampFormat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "A", 1, 100)

	entry, err := f.entries.Create(ctx, f.branch.ID, service.EntryInput{
		VoucherBook: "A", VoucherNo: "1", Amount: 10,
	})
	require.NoError(t, err)

	// CURRENT_TIMESTAMP writes bare "YYYY-MM-DD HH:MM:SS" text, without the
	// timezone suffix a bound time.Time carries. An entry created exactly at
	// midnight must still fall inside its own day's inclusive window.
	_, err = f.db.Exec(
		"UPDATE voucher_entries SET created_at = '2024-01-15 00:00:00' WHERE id = ?", entry.ID)
	require.NoError(t, err)

	page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{
		CreatedFrom: "2024-01-15",
		CreatedTo:   "2024-01-15",
	})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, entry.ID, page.Entries[0].ID)
}

func TestReportService_SubstringAndStatusFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "A", 1, 1000)

	_, err := f.entries.Create(ctx, f.branch.ID, service.EntryInput{
		VoucherBook: "A", VoucherNo: "101", Supplier: "Karim Traders",
	})
	require.NoError(t, err)

	cleared := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.entries.Create(ctx, f.branch.ID, service.EntryInput{
		VoucherBook: "A", VoucherNo: "202", Supplier: "Rahim Stores",
		VoucherClearedDate: &cleared,
	})
	require.NoError(t, err)

	t.Run("case-insensitive supplier substring", func(t *testing.T) {
		page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{Supplier: "karim"})
		require.NoError(t, err)
		require.Len(t, page.Entries, 1)
		assert.Equal(t, "101", page.Entries[0].VoucherNo)
	})

	t.Run("voucher number substring", func(t *testing.T) {
		page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{VoucherNo: "02"})
		require.NoError(t, err)
		require.Len(t, page.Entries, 1)
		assert.Equal(t, "202", page.Entries[0].VoucherNo)
	})

	t.Run("exact status match", func(t *testing.T) {
		page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{Status: models.StatusActive})
		require.NoError(t, err)
		require.Len(t, page.Entries, 1)
		assert.Equal(t, "202", page.Entries[0].VoucherNo)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{Status: "paid"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestReportService_TotalsIgnorePagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "A", 1, 1000)

	for i := 1; i <= 5; i++ {
		_, err := f.entries.Create(ctx, f.branch.ID, service.EntryInput{
			VoucherBook:     "A",
			VoucherNo:       fmt.Sprintf("%d", i),
			Amount:          100,
			DiscountAdvance: 10,
		})
		require.NoError(t, err)
	}

	page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{Page: 1, PageSize: 2})
	require.NoError(t, err)

	assert.Len(t, page.Entries, 2)
	assert.Equal(t, int64(5), page.Totals.Count)
	assert.Equal(t, 500.0, page.Totals.Amount)
	assert.Equal(t, 450.0, page.Totals.NetBalance)
}

func TestReportService_SortAndPageBounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "A", 1, 1000)

	amounts := []float64{30, 10, 20}
	for i, amount := range amounts {
		_, err := f.entries.Create(ctx, f.branch.ID, service.EntryInput{
			VoucherBook: "A",
			VoucherNo:   fmt.Sprintf("%d", i+1),
			Amount:      amount,
		})
		require.NoError(t, err)
	}

	t.Run("allow-listed sort field ascending", func(t *testing.T) {
		page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{
			SortBy: "amount", SortDir: "asc",
		})
		require.NoError(t, err)
		require.Len(t, page.Entries, 3)
		assert.Equal(t, 10.0, page.Entries[0].Amount)
		assert.Equal(t, 30.0, page.Entries[2].Amount)
	})

	t.Run("unknown sort field falls back to creation time", func(t *testing.T) {
		page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{
			SortBy: "password_hash; DROP TABLE branches",
		})
		require.NoError(t, err)
		assert.Len(t, page.Entries, 3)
	})

	t.Run("default sort is newest first", func(t *testing.T) {
		page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{})
		require.NoError(t, err)
		require.Len(t, page.Entries, 3)
		assert.Equal(t, "3", page.Entries[0].VoucherNo)
		assert.Equal(t, "1", page.Entries[2].VoucherNo)
	})

	t.Run("page size is capped", func(t *testing.T) {
		page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{PageSize: 9000})
		require.NoError(t, err)
		assert.Equal(t, 500, page.PageSize)
	})

	t.Run("page beyond the end is empty but keeps totals", func(t *testing.T) {
		page, err := f.reports.Query(ctx, f.branch.ID, service.ReportParams{Page: 99, PageSize: 10})
		require.NoError(t, err)
		assert.Empty(t, page.Entries)
		assert.Equal(t, int64(3), page.Totals.Count)
	})
}
