// Package reservation implements the voucher-number reservation protocol:
// within one branch and one voucher book, a number can back at most one live
// voucher entry. The registry is the voucher_reservations table; its unique
// index is the lock, so add-if-absent is a single INSERT OR IGNORE and every
// reserve/release runs inside the same transaction as the entry write it
// protects.
package reservation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/models"
	"github.com/vouchertrack/backoffice/pkg/utils"
	"go.uber.org/zap"
)

// Ledger coordinates voucher-number reservations.
type Ledger struct {
	logger *zap.Logger
}

// NewLedger creates a reservation ledger.
func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{logger: logger}
}

// Reserve claims a voucher number within a book. It validates the token and
// its range, then performs an atomic add-if-absent against the registry.
// A number already present yields a Conflict; the registry is unchanged.
func (l *Ledger) Reserve(ctx context.Context, tx *sql.Tx, book *models.VoucherBook, number string) error {
	if err := utils.ValidateVoucherNumber(number); err != nil {
		return apperr.Validation("%v", err)
	}

	inRange, err := utils.VoucherNumberInRange(number, book.Start, book.End)
	if err != nil {
		return apperr.Validation("%v", err)
	}
	if !inRange {
		return apperr.Validation("voucher number %s is outside book %q range [%d, %d]",
			number, book.Name, book.Start, book.End)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO voucher_reservations (branch_id, book_id, voucher_no)
		VALUES (?, ?, ?)
	`, book.BranchID, book.ID, number)
	if err != nil {
		l.logger.Error("Failed to reserve voucher number",
			zap.Int64("branch_id", book.BranchID),
			zap.String("book", book.Name),
			zap.String("voucher_no", number),
			zap.Error(err))
		return fmt.Errorf("failed to reserve voucher number: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve voucher number: %w", err)
	}
	if affected == 0 {
		return apperr.Conflict("voucher number %s already used in book %q", number, book.Name)
	}

	return nil
}

// Release frees a voucher number. Releasing an absent number is a no-op.
func (l *Ledger) Release(ctx context.Context, tx *sql.Tx, branchID, bookID int64, number string) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM voucher_reservations
		WHERE branch_id = ? AND book_id = ? AND voucher_no = ?
	`, branchID, bookID, number); err != nil {
		l.logger.Error("Failed to release voucher number",
			zap.Int64("branch_id", branchID),
			zap.Int64("book_id", bookID),
			zap.String("voucher_no", number),
			zap.Error(err))
		return fmt.Errorf("failed to release voucher number: %w", err)
	}
	return nil
}

// Change moves an entry's claim from one book/number pair to another. When
// the pairs are identical it is a no-op. The release of the old pair and the
// add-if-absent of the new pair run in the caller's transaction, so two
// concurrent edits racing for the same new number serialize on the unique
// index and exactly one of them gets a Conflict.
func (l *Ledger) Change(ctx context.Context, tx *sql.Tx, branchID int64, oldBook *models.VoucherBook, oldNumber string, newBook *models.VoucherBook, newNumber string) error {
	if oldBook.ID == newBook.ID && oldNumber == newNumber {
		return nil
	}

	if err := l.Release(ctx, tx, branchID, oldBook.ID, oldNumber); err != nil {
		return err
	}
	return l.Reserve(ctx, tx, newBook, newNumber)
}

// IsReserved reports whether a number currently has a live claim.
func (l *Ledger) IsReserved(ctx context.Context, db *sql.DB, branchID, bookID int64, number string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM voucher_reservations
		WHERE branch_id = ? AND book_id = ? AND voucher_no = ?
	`, branchID, bookID, number).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check reservation: %w", err)
	}
	return count > 0, nil
}
