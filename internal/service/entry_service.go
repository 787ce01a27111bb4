package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/models"
	"github.com/vouchertrack/backoffice/internal/repository"
	"github.com/vouchertrack/backoffice/internal/reservation"
	"github.com/vouchertrack/backoffice/pkg/database"
	"go.uber.org/zap"
)

// EntryInput carries the caller-supplied fields of a voucher entry. The net
// balance is never taken from the caller; it is recomputed from the amount
// fields on every write.
type EntryInput struct {
	VoucherBook        string
	VoucherNo          string
	InvoiceNo          string
	VoucherGivenDate   *time.Time
	Supplier           string
	Amount             float64
	Dues               float64
	Return             float64
	DiscountAdvance    float64
	ChqCashIssuedDate  *time.Time
	AmountPaid         float64
	VoucherClearedDate *time.Time
	Remarks            string
}

// EntryService coordinates voucher entry writes with the reservation ledger.
// Every create, edit, and delete runs as one transaction so an entry and its
// number claim can never exist without each other.
type EntryService struct {
	db       *database.DB
	branches *repository.BranchRepository
	entries  *repository.EntryRepository
	ledger   *reservation.Ledger
	logger   *zap.Logger
}

// NewEntryService creates a new entry service
func NewEntryService(db *database.DB, branches *repository.BranchRepository, entries *repository.EntryRepository, ledger *reservation.Ledger, logger *zap.Logger) *EntryService {
	return &EntryService{
		db:       db,
		branches: branches,
		entries:  entries,
		ledger:   ledger,
		logger:   logger,
	}
}

// Create reserves the voucher number and inserts the entry in one atomic
// unit. If the insert fails after the reservation, the whole unit rolls back
// and the reservation is undone.
func (s *EntryService) Create(ctx context.Context, branchID int64, input EntryInput) (*models.VoucherEntry, error) {
	if input.VoucherBook == "" {
		return nil, apperr.Validation("voucherBook is required")
	}

	var created *models.VoucherEntry
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		book, err := s.branches.GetBookByNameTx(ctx, tx, branchID, input.VoucherBook)
		if err != nil {
			return err
		}
		if book == nil {
			return apperr.NotFound("voucher book %q not found", input.VoucherBook)
		}

		if err := s.ledger.Reserve(ctx, tx, book, input.VoucherNo); err != nil {
			return err
		}

		entry := buildEntry(branchID, book, input)
		if err := s.entries.Insert(ctx, tx, entry); err != nil {
			return err
		}
		created = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Voucher entry created",
		zap.Int64("branch_id", branchID),
		zap.Int64("entry_id", created.ID),
		zap.String("book", created.VoucherBook),
		zap.String("voucher_no", created.VoucherNo))
	return created, nil
}

// Get fetches one entry scoped to a branch.
func (s *EntryService) Get(ctx context.Context, branchID, id int64) (*models.VoucherEntry, error) {
	return s.entries.GetByID(ctx, branchID, id)
}

// Update edits an entry. When the book/number pair changes, the old claim is
// released and the new one reserved inside the same transaction as the row
// update, so the swap either fully happens or not at all.
func (s *EntryService) Update(ctx context.Context, branchID, id int64, input EntryInput) (*models.VoucherEntry, error) {
	if input.VoucherBook == "" {
		return nil, apperr.Validation("voucherBook is required")
	}

	var updated *models.VoucherEntry
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		// Read inside the transaction so the release below targets the pair
		// this edit actually observed, not one a concurrent edit replaced.
		existing, err := s.entries.GetByIDTx(ctx, tx, branchID, id)
		if err != nil {
			return err
		}

		newBook, err := s.branches.GetBookByNameTx(ctx, tx, branchID, input.VoucherBook)
		if err != nil {
			return err
		}
		if newBook == nil {
			return apperr.NotFound("voucher book %q not found", input.VoucherBook)
		}

		oldBook := &models.VoucherBook{
			ID:       existing.BookID,
			BranchID: branchID,
			Name:     existing.VoucherBook,
		}
		if err := s.ledger.Change(ctx, tx, branchID, oldBook, existing.VoucherNo, newBook, input.VoucherNo); err != nil {
			return err
		}

		entry := buildEntry(branchID, newBook, input)
		entry.ID = id
		entry.CreatedAt = existing.CreatedAt
		if existing.Status == models.StatusCancel {
			entry.Status = models.StatusCancel
		}
		if err := s.entries.Update(ctx, tx, entry); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Voucher entry updated",
		zap.Int64("branch_id", branchID),
		zap.Int64("entry_id", id))
	return updated, nil
}

// Delete removes an entry and releases its voucher number in one atomic
// unit; the freed number can be reserved again immediately afterwards.
func (s *EntryService) Delete(ctx context.Context, branchID, id int64) error {
	entry, err := s.entries.GetByID(ctx, branchID, id)
	if err != nil {
		return err
	}

	err = s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := s.entries.Delete(ctx, tx, branchID, id); err != nil {
			return err
		}
		return s.ledger.Release(ctx, tx, branchID, entry.BookID, entry.VoucherNo)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Voucher entry deleted",
		zap.Int64("branch_id", branchID),
		zap.Int64("entry_id", id),
		zap.String("voucher_no", entry.VoucherNo))
	return nil
}

// ToggleCancel flips an entry between cancelled and its derived live status
// (active when a clearing date is present, pending otherwise). The number
// stays reserved either way; only delete frees it.
func (s *EntryService) ToggleCancel(ctx context.Context, branchID, id int64) (*models.VoucherEntry, error) {
	entry, err := s.entries.GetByID(ctx, branchID, id)
	if err != nil {
		return nil, err
	}

	next := models.StatusCancel
	if entry.Status == models.StatusCancel {
		next = entry.DeriveStatus()
	}

	if err := s.entries.SetStatus(ctx, branchID, id, next); err != nil {
		return nil, err
	}
	entry.Status = next
	return entry, nil
}

// MarkPaid settles a batch of entries with the given issue date. The batch
// is one transaction: an unknown or cancelled entry fails the whole set.
func (s *EntryService) MarkPaid(ctx context.Context, branchID int64, ids []int64, issuedDate time.Time) error {
	if len(ids) == 0 {
		return apperr.Validation("entryIds is required")
	}

	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return s.entries.MarkPaid(ctx, tx, branchID, ids, issuedDate)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Voucher entries marked paid",
		zap.Int64("branch_id", branchID),
		zap.Int("count", len(ids)))
	return nil
}

func buildEntry(branchID int64, book *models.VoucherBook, input EntryInput) *models.VoucherEntry {
	entry := &models.VoucherEntry{
		BranchID:           branchID,
		BookID:             book.ID,
		VoucherBook:        book.Name,
		VoucherNo:          input.VoucherNo,
		InvoiceNo:          input.InvoiceNo,
		VoucherGivenDate:   input.VoucherGivenDate,
		Supplier:           input.Supplier,
		Amount:             input.Amount,
		Dues:               input.Dues,
		Return:             input.Return,
		DiscountAdvance:    input.DiscountAdvance,
		ChqCashIssuedDate:  input.ChqCashIssuedDate,
		AmountPaid:         input.AmountPaid,
		VoucherClearedDate: input.VoucherClearedDate,
		Remarks:            input.Remarks,
	}
	entry.NetBalance = entry.ComputeNetBalance()
	entry.Status = entry.DeriveStatus()
	return entry
}
