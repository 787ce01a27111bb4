// Package excel handles the spreadsheet edge of the bulk import/export
// surface: parsing uploaded .xlsx files into candidate rows and rendering
// report pages back out as workbooks.
package excel

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vouchertrack/backoffice/internal/importer"
	"github.com/vouchertrack/backoffice/internal/models"
	"github.com/vouchertrack/backoffice/internal/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Column order shared by import and export.
var columns = []string{
	"voucherBook", "voucherNo", "invoiceNo", "voucherGivenDate", "supplier",
	"amount", "dues", "return", "discountAdvance", "netBalance",
	"chqCashIssuedDate", "amountPaid", "voucherClearedDate", "remarks", "status",
}

// Workbook parses and builds voucher spreadsheets.
type Workbook struct {
	logger *zap.Logger
}

// New creates a new workbook codec
func New(logger *zap.Logger) *Workbook {
	return &Workbook{logger: logger}
}

// ParseRows reads the first sheet of an uploaded .xlsx file. The first row
// is a header matched case-insensitively against the API field names; every
// following non-empty row becomes one candidate import row. Field values are
// passed through as strings; coercion belongs to the import modes.
func (w *Workbook) ParseRows(r io.Reader) ([]importer.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook has no data rows")
	}

	// Map header cells to field names. Headers are matched loosely so both
	// API field names ("voucherGivenDate") and exported labels
	// ("Voucher Given Date") resolve to the same column.
	fieldIndex := map[int]string{}
	for i, cell := range rows[0] {
		name := normalizeHeader(cell)
		for _, col := range columns {
			if name == normalizeHeader(col) {
				fieldIndex[i] = col
				break
			}
		}
	}
	if len(fieldIndex) == 0 {
		return nil, fmt.Errorf("header row matches no known columns")
	}

	var parsed []importer.Row
	for _, cells := range rows[1:] {
		if rowEmpty(cells) {
			continue
		}
		row := importer.Row{}
		for i, cell := range cells {
			field, ok := fieldIndex[i]
			if !ok {
				continue
			}
			setField(&row, field, strings.TrimSpace(cell))
		}
		parsed = append(parsed, row)
	}

	w.logger.Info("Parsed workbook", zap.Int("rows", len(parsed)))
	return parsed, nil
}

// Build renders a filtered report as a workbook: a header row, one row per
// entry, and a totals row over the whole set.
func (w *Workbook) Build(entries []*models.VoucherEntry, totals *repository.EntryTotals) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	header := []interface{}{
		"Voucher Book", "Voucher No", "Invoice No", "Voucher Given Date", "Supplier",
		"Amount", "Dues", "Return", "Discount Advance", "Net Balance",
		"Chq Cash Issued Date", "Amount Paid", "Voucher Cleared Date", "Remarks", "Status",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, entry := range entries {
		row := []interface{}{
			entry.VoucherBook,
			entry.VoucherNo,
			entry.InvoiceNo,
			formatDate(entry.VoucherGivenDate),
			entry.Supplier,
			entry.Amount,
			entry.Dues,
			entry.Return,
			entry.DiscountAdvance,
			entry.NetBalance,
			formatDate(entry.ChqCashIssuedDate),
			entry.AmountPaid,
			formatDate(entry.VoucherClearedDate),
			entry.Remarks,
			entry.Status,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	totalRow := len(entries) + 2
	totalCells := []interface{}{
		"Total", "", "", "", "",
		totals.Amount, "", "", "", totals.NetBalance,
	}
	cell, err := excelize.CoordinatesToCellName(1, totalRow)
	if err != nil {
		return nil, fmt.Errorf("failed to compute cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &totalCells); err != nil {
		return nil, fmt.Errorf("failed to write totals row: %w", err)
	}

	return f, nil
}

func setField(row *importer.Row, field, value string) {
	switch field {
	case "voucherBook":
		row.VoucherBook = value
	case "voucherNo":
		row.VoucherNo = value
	case "invoiceNo":
		row.InvoiceNo = value
	case "voucherGivenDate":
		row.VoucherGivenDate = value
	case "supplier":
		row.Supplier = value
	case "amount":
		row.Amount = value
	case "dues":
		row.Dues = value
	case "return":
		row.Return = value
	case "discountAdvance":
		row.DiscountAdvance = value
	case "chqCashIssuedDate":
		row.ChqCashIssuedDate = value
	case "amountPaid":
		row.AmountPaid = value
	case "voucherClearedDate":
		row.VoucherClearedDate = value
	case "remarks":
		row.Remarks = value
	}
	// netBalance and status columns are ignored on import; both are
	// recomputed server-side.
}

// normalizeHeader lowercases a header cell and strips everything that is not
// a letter or digit.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func rowEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
