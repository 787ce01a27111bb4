package excel_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vouchertrack/backoffice/internal/excel"
	"github.com/vouchertrack/backoffice/internal/models"
	"github.com/vouchertrack/backoffice/internal/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestWorkbook_BuildAndReparse(t *testing.T) {
	w := excel.New(zap.NewNop())
	given := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	entries := []*models.VoucherEntry{
		{
			VoucherBook:      "A",
			VoucherNo:        "7",
			InvoiceNo:        "INV-12",
			VoucherGivenDate: &given,
			Supplier:         "Acme",
			Amount:           1000,
			DiscountAdvance:  50,
			NetBalance:       950,
			Status:           models.StatusPending,
		},
		{
			VoucherBook: "A",
			VoucherNo:   "8",
			Supplier:    "Rahim Stores",
			Amount:      200,
			NetBalance:  200,
			Status:      models.StatusActive,
		},
	}
	totals := &repository.EntryTotals{Count: 2, Amount: 1200, NetBalance: 1150}

	f, err := w.Build(entries, totals)
	require.NoError(t, err)
	defer f.Close()

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	// An exported workbook must round-trip through the import parser.
	rows, err := w.ParseRows(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 3, "two entries plus the totals row")

	assert.Equal(t, "A", rows[0].VoucherBook)
	assert.Equal(t, "7", rows[0].VoucherNo)
	assert.Equal(t, "INV-12", rows[0].InvoiceNo)
	assert.Equal(t, "2024-02-10", rows[0].VoucherGivenDate)
	assert.Equal(t, "Acme", rows[0].Supplier)
	assert.Equal(t, "1000", rows[0].Amount)
	assert.Equal(t, "50", rows[0].DiscountAdvance)

	assert.Equal(t, "8", rows[1].VoucherNo)
	assert.Equal(t, "Rahim Stores", rows[1].Supplier)
}

func TestWorkbook_ParseRows(t *testing.T) {
	w := excel.New(zap.NewNop())

	build := func(t *testing.T, cells [][]interface{}) *bytes.Reader {
		t.Helper()
		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		for i := range cells {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &cells[i]))
		}
		var buf bytes.Buffer
		require.NoError(t, f.Write(&buf))
		require.NoError(t, f.Close())
		return bytes.NewReader(buf.Bytes())
	}

	t.Run("matches api field names case-insensitively", func(t *testing.T) {
		r := build(t, [][]interface{}{
			{"voucherbook", "VOUCHERNO", "Amount"},
			{"A", "12", "99.5"},
		})

		rows, err := w.ParseRows(r)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "A", rows[0].VoucherBook)
		assert.Equal(t, "12", rows[0].VoucherNo)
		assert.Equal(t, "99.5", rows[0].Amount)
	})

	t.Run("skips blank rows", func(t *testing.T) {
		r := build(t, [][]interface{}{
			{"voucherBook", "voucherNo"},
			{"A", "1"},
			{"", ""},
			{"A", "2"},
		})

		rows, err := w.ParseRows(r)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("rejects a workbook with no known columns", func(t *testing.T) {
		r := build(t, [][]interface{}{
			{"foo", "bar"},
			{"1", "2"},
		})

		_, err := w.ParseRows(r)
		require.Error(t, err)
	})

	t.Run("rejects a workbook without data rows", func(t *testing.T) {
		r := build(t, [][]interface{}{
			{"voucherBook", "voucherNo"},
		})

		_, err := w.ParseRows(r)
		require.Error(t, err)
	})
}
