// Package importer implements the two bulk-import modes for voucher entries:
// strict (validate and reserve every number, all-or-nothing) and permissive
// (best-effort coercion, no reservation check). Both modes exist in the
// product; permissive is the fast "trust the file" path.
package importer

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/models"
	"github.com/vouchertrack/backoffice/internal/repository"
	"github.com/vouchertrack/backoffice/internal/reservation"
	"github.com/vouchertrack/backoffice/pkg/database"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Row is one candidate voucher row. Amount-like fields arrive as strings so
// the permissive mode can coerce unparsable values to zero instead of
// rejecting the row.
type Row struct {
	VoucherBook        string `json:"voucherBook"`
	VoucherNo          string `json:"voucherNo"`
	InvoiceNo          string `json:"invoiceNo"`
	VoucherGivenDate   string `json:"voucherGivenDate"`
	Supplier           string `json:"supplier"`
	Amount             string `json:"amount"`
	Dues               string `json:"dues"`
	Return             string `json:"return"`
	DiscountAdvance    string `json:"discountAdvance"`
	ChqCashIssuedDate  string `json:"chqCashIssuedDate"`
	AmountPaid         string `json:"amountPaid"`
	VoucherClearedDate string `json:"voucherClearedDate"`
	Remarks            string `json:"remarks"`
}

// Importer inserts batches of voucher rows for one branch.
type Importer struct {
	db       *database.DB
	branches *repository.BranchRepository
	entries  *repository.EntryRepository
	ledger   *reservation.Ledger
	logger   *zap.Logger
}

// New creates a new importer
func New(db *database.DB, branches *repository.BranchRepository, entries *repository.EntryRepository, ledger *reservation.Ledger, logger *zap.Logger) *Importer {
	return &Importer{
		db:       db,
		branches: branches,
		entries:  entries,
		ledger:   ledger,
		logger:   logger,
	}
}

// ImportStrict validates every row against its book's range and reservation
// state and commits the batch as one transaction. Any row error aborts the
// whole unit: zero rows persisted, zero numbers left reserved.
func (im *Importer) ImportStrict(ctx context.Context, branchID int64, rows []Row) ([]*models.VoucherEntry, error) {
	if len(rows) == 0 {
		return nil, apperr.Validation("no rows to import")
	}

	var inserted []*models.VoucherEntry
	err := im.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		books := map[string]*models.VoucherBook{}

		for i, row := range rows {
			book, err := im.resolveBook(ctx, tx, books, branchID, row.VoucherBook)
			if err != nil {
				return rowError(i, err)
			}

			if err := im.ledger.Reserve(ctx, tx, book, strings.TrimSpace(row.VoucherNo)); err != nil {
				return rowError(i, err)
			}

			entry := buildRowEntry(branchID, book, row)
			if err := im.entries.Insert(ctx, tx, entry); err != nil {
				return rowError(i, err)
			}
			inserted = append(inserted, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	im.logger.Info("Strict import committed",
		zap.Int64("branch_id", branchID),
		zap.Int("rows", len(inserted)))
	return inserted, nil
}

// ImportPermissive accepts rows unconditionally with best-effort coercion
// and no reservation check. Books are still resolved by name; a row naming
// an unknown book fails the batch, matching the lookup-time integrity the
// rest of the system relies on.
func (im *Importer) ImportPermissive(ctx context.Context, branchID int64, rows []Row) ([]*models.VoucherEntry, error) {
	if len(rows) == 0 {
		return nil, apperr.Validation("no rows to import")
	}

	var inserted []*models.VoucherEntry
	err := im.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		books := map[string]*models.VoucherBook{}

		for i, row := range rows {
			book, err := im.resolveBook(ctx, tx, books, branchID, row.VoucherBook)
			if err != nil {
				return rowError(i, err)
			}

			entry := buildRowEntry(branchID, book, row)
			if err := im.entries.Insert(ctx, tx, entry); err != nil {
				return rowError(i, err)
			}
			inserted = append(inserted, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	im.logger.Info("Permissive import committed",
		zap.Int64("branch_id", branchID),
		zap.Int("rows", len(inserted)))
	return inserted, nil
}

func (im *Importer) resolveBook(ctx context.Context, tx *sql.Tx, cache map[string]*models.VoucherBook, branchID int64, name string) (*models.VoucherBook, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("voucherBook is required")
	}
	if book, ok := cache[name]; ok {
		return book, nil
	}

	book, err := im.branches.GetBookByNameTx(ctx, tx, branchID, name)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperr.NotFound("voucher book %q not found", name)
	}
	cache[name] = book
	return book, nil
}

func buildRowEntry(branchID int64, book *models.VoucherBook, row Row) *models.VoucherEntry {
	entry := &models.VoucherEntry{
		BranchID:           branchID,
		BookID:             book.ID,
		VoucherBook:        book.Name,
		VoucherNo:          strings.TrimSpace(row.VoucherNo),
		InvoiceNo:          strings.TrimSpace(row.InvoiceNo),
		VoucherGivenDate:   coerceDate(row.VoucherGivenDate),
		Supplier:           strings.TrimSpace(row.Supplier),
		Amount:             coerceAmount(row.Amount),
		Dues:               coerceAmount(row.Dues),
		Return:             coerceAmount(row.Return),
		DiscountAdvance:    coerceAmount(row.DiscountAdvance),
		ChqCashIssuedDate:  coerceDate(row.ChqCashIssuedDate),
		AmountPaid:         coerceAmount(row.AmountPaid),
		VoucherClearedDate: coerceDate(row.VoucherClearedDate),
		Remarks:            strings.TrimSpace(row.Remarks),
	}
	entry.NetBalance = entry.ComputeNetBalance()
	entry.Status = entry.DeriveStatus()
	return entry
}

// coerceAmount parses an amount-like field; missing or unparsable values
// default to 0.
func coerceAmount(raw string) float64 {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func coerceDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	return nil
}

func rowError(index int, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		return err
	}
	return apperr.Wrap(kind, err, "row %d: %s", index+1, apperr.MessageOf(err))
}
