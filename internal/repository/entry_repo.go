package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/models"
	"go.uber.org/zap"
)

// Sortable columns for the report query, keyed by API field name.
var entrySortColumns = map[string]string{
	"createdAt":          "created_at",
	"voucherNo":          "voucher_no",
	"voucherBook":        "voucher_book",
	"supplier":           "supplier",
	"amount":             "amount",
	"netBalance":         "net_balance",
	"status":             "status",
	"voucherGivenDate":   "voucher_given_date",
	"voucherClearedDate": "voucher_cleared_date",
}

// SortColumn maps an API sort field to its column, falling back to creation
// time for anything outside the allow-list.
func SortColumn(apiField string) string {
	if col, ok := entrySortColumns[apiField]; ok {
		return col
	}
	return "created_at"
}

// EntryFilter describes the report query over one branch's entries. Zero
// values mean "no constraint".
type EntryFilter struct {
	BranchID    int64
	VoucherNo   string // case-insensitive substring
	Supplier    string // case-insensitive substring
	Status      string // exact
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	GivenFrom   *time.Time
	GivenTo     *time.Time
	ClearedFrom *time.Time
	ClearedTo   *time.Time
	// SortColumn must come from SortColumn(), which owns the created_at
	// default for unknown fields.
	SortColumn string
	SortDesc   bool
	Page       int // 1-based
	PageSize   int
}

// EntryTotals aggregates the full filtered set, ignoring pagination.
type EntryTotals struct {
	Count      int64   `json:"count"`
	Amount     float64 `json:"amount"`
	NetBalance float64 `json:"netBalance"`
}

// EntryRepository handles voucher entry database operations
type EntryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *sql.DB, logger *zap.Logger) *EntryRepository {
	return &EntryRepository{
		db:     db,
		logger: logger,
	}
}

const entryColumns = `
	id, branch_id, book_id, voucher_book, voucher_no, invoice_no,
	voucher_given_date, supplier, amount, dues, return_amount,
	discount_advance, net_balance, chq_cash_issued_date, amount_paid,
	voucher_cleared_date, remarks, status, created_at, updated_at
`

// Insert creates an entry inside the caller's transaction, sharing the
// atomic unit with its voucher-number reservation.
func (r *EntryRepository) Insert(ctx context.Context, tx *sql.Tx, entry *models.VoucherEntry) error {
	query := `
		INSERT INTO voucher_entries (
			branch_id, book_id, voucher_book, voucher_no, invoice_no,
			voucher_given_date, supplier, amount, dues, return_amount,
			discount_advance, net_balance, chq_cash_issued_date, amount_paid,
			voucher_cleared_date, remarks, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		entry.BranchID,
		entry.BookID,
		entry.VoucherBook,
		entry.VoucherNo,
		entry.InvoiceNo,
		nullTime(entry.VoucherGivenDate),
		entry.Supplier,
		entry.Amount,
		entry.Dues,
		entry.Return,
		entry.DiscountAdvance,
		entry.NetBalance,
		nullTime(entry.ChqCashIssuedDate),
		entry.AmountPaid,
		nullTime(entry.VoucherClearedDate),
		entry.Remarks,
		entry.Status,
	)
	if err != nil {
		r.logger.Error("Failed to insert voucher entry", zap.Error(err))
		return fmt.Errorf("failed to insert voucher entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// Update rewrites all mutable fields of an entry inside the caller's
// transaction.
func (r *EntryRepository) Update(ctx context.Context, tx *sql.Tx, entry *models.VoucherEntry) error {
	query := `
		UPDATE voucher_entries SET
			book_id = ?, voucher_book = ?, voucher_no = ?, invoice_no = ?,
			voucher_given_date = ?, supplier = ?, amount = ?, dues = ?,
			return_amount = ?, discount_advance = ?, net_balance = ?,
			chq_cash_issued_date = ?, amount_paid = ?, voucher_cleared_date = ?,
			remarks = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND branch_id = ?
	`
	result, err := tx.ExecContext(ctx, query,
		entry.BookID,
		entry.VoucherBook,
		entry.VoucherNo,
		entry.InvoiceNo,
		nullTime(entry.VoucherGivenDate),
		entry.Supplier,
		entry.Amount,
		entry.Dues,
		entry.Return,
		entry.DiscountAdvance,
		entry.NetBalance,
		nullTime(entry.ChqCashIssuedDate),
		entry.AmountPaid,
		nullTime(entry.VoucherClearedDate),
		entry.Remarks,
		entry.Status,
		entry.ID,
		entry.BranchID,
	)
	if err != nil {
		r.logger.Error("Failed to update voucher entry", zap.Int64("id", entry.ID), zap.Error(err))
		return fmt.Errorf("failed to update voucher entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("voucher entry %d not found", entry.ID)
	}
	return nil
}

// GetByID fetches one entry scoped to a branch.
func (r *EntryRepository) GetByID(ctx context.Context, branchID, id int64) (*models.VoucherEntry, error) {
	return r.getByID(ctx, r.db, branchID, id)
}

// GetByIDTx is GetByID inside a caller-owned transaction, so an edit reads
// the book/number pair it is about to release under the same snapshot that
// releases it.
func (r *EntryRepository) GetByIDTx(ctx context.Context, tx *sql.Tx, branchID, id int64) (*models.VoucherEntry, error) {
	return r.getByID(ctx, tx, branchID, id)
}

func (r *EntryRepository) getByID(ctx context.Context, q dbtx, branchID, id int64) (*models.VoucherEntry, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM voucher_entries WHERE id = ? AND branch_id = ?",
		id, branchID)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("voucher entry %d not found", id)
	}
	if err != nil {
		r.logger.Error("Failed to get voucher entry", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher entry: %w", err)
	}
	return entry, nil
}

// Delete removes an entry inside the caller's transaction so the number
// release shares the atomic unit.
func (r *EntryRepository) Delete(ctx context.Context, tx *sql.Tx, branchID, id int64) error {
	result, err := tx.ExecContext(ctx,
		"DELETE FROM voucher_entries WHERE id = ? AND branch_id = ?", id, branchID)
	if err != nil {
		return fmt.Errorf("failed to delete voucher entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("voucher entry %d not found", id)
	}
	return nil
}

// SetStatus updates only the status column.
func (r *EntryRepository) SetStatus(ctx context.Context, branchID, id int64, status string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE voucher_entries SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND branch_id = ?
	`, status, id, branchID)
	if err != nil {
		return fmt.Errorf("failed to set entry status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("voucher entry %d not found", id)
	}
	return nil
}

// MarkPaid settles a batch of entries: amount paid becomes the net balance,
// the issue and cleared dates are stamped, and status flips to active.
func (r *EntryRepository) MarkPaid(ctx context.Context, tx *sql.Tx, branchID int64, ids []int64, issuedDate time.Time) error {
	query := `
		UPDATE voucher_entries SET
			amount_paid = net_balance,
			chq_cash_issued_date = ?,
			voucher_cleared_date = ?,
			status = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND branch_id = ? AND status != ?
	`
	for _, id := range ids {
		result, err := tx.ExecContext(ctx, query,
			issuedDate, issuedDate, models.StatusActive, id, branchID, models.StatusCancel)
		if err != nil {
			return fmt.Errorf("failed to mark entry %d paid: %w", id, err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return apperr.NotFound("voucher entry %d not found or cancelled", id)
		}
	}
	return nil
}

// Query returns one page of entries matching the filter plus totals computed
// over the whole filtered set.
func (r *EntryRepository) Query(ctx context.Context, filter EntryFilter) ([]*models.VoucherEntry, *EntryTotals, error) {
	where, args := buildEntryWhere(filter)

	totals := &EntryTotals{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0), COALESCE(SUM(net_balance), 0)
		FROM voucher_entries `+where, args...).Scan(
		&totals.Count, &totals.Amount, &totals.NetBalance)
	if err != nil {
		r.logger.Error("Failed to aggregate voucher entries", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to aggregate voucher entries: %w", err)
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	offset := (filter.Page - 1) * filter.PageSize
	query := fmt.Sprintf(
		"SELECT %s FROM voucher_entries %s ORDER BY %s %s, id %s LIMIT ? OFFSET ?",
		entryColumns, where, filter.SortColumn, direction, direction)
	pageArgs := append(append([]interface{}{}, args...), filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		r.logger.Error("Failed to query voucher entries", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to query voucher entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.VoucherEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan voucher entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to query voucher entries: %w", err)
	}
	return entries, totals, nil
}

func buildEntryWhere(filter EntryFilter) (string, []interface{}) {
	conds := []string{"branch_id = ?"}
	args := []interface{}{filter.BranchID}

	if filter.VoucherNo != "" {
		conds = append(conds, "LOWER(voucher_no) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.VoucherNo)+"%")
	}
	if filter.Supplier != "" {
		conds = append(conds, "LOWER(supplier) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Supplier)+"%")
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}

	// CURRENT_TIMESTAMP stores bare "YYYY-MM-DD HH:MM:SS" text while bound
	// time.Time values carry a timezone suffix; datetime() normalizes both
	// sides so the comparison is chronological, not lexical.
	addRange := func(column string, from, to *time.Time) {
		if from != nil {
			conds = append(conds, "datetime("+column+") >= datetime(?)")
			args = append(args, *from)
		}
		if to != nil {
			conds = append(conds, "datetime("+column+") <= datetime(?)")
			args = append(args, *to)
		}
	}
	addRange("created_at", filter.CreatedFrom, filter.CreatedTo)
	addRange("voucher_given_date", filter.GivenFrom, filter.GivenTo)
	addRange("voucher_cleared_date", filter.ClearedFrom, filter.ClearedTo)

	return "WHERE " + strings.Join(conds, " AND "), args
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*models.VoucherEntry, error) {
	var entry models.VoucherEntry
	var given, issued, cleared sql.NullTime

	err := s.Scan(
		&entry.ID,
		&entry.BranchID,
		&entry.BookID,
		&entry.VoucherBook,
		&entry.VoucherNo,
		&entry.InvoiceNo,
		&given,
		&entry.Supplier,
		&entry.Amount,
		&entry.Dues,
		&entry.Return,
		&entry.DiscountAdvance,
		&entry.NetBalance,
		&issued,
		&entry.AmountPaid,
		&cleared,
		&entry.Remarks,
		&entry.Status,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if given.Valid {
		entry.VoucherGivenDate = &given.Time
	}
	if issued.Valid {
		entry.ChqCashIssuedDate = &issued.Time
	}
	if cleared.Valid {
		entry.VoucherClearedDate = &cleared.Time
	}
	return &entry, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
