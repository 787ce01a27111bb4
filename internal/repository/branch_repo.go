package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/models"
	"go.uber.org/zap"
)

// BranchRepository handles branch, voucher-book, and supplier database
// operations. Books and suppliers are addressed by stable IDs rather than
// list positions so concurrent edits cannot shift targets.
type BranchRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(db *sql.DB, logger *zap.Logger) *BranchRepository {
	return &BranchRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new branch with an empty book and supplier registry.
func (r *BranchRepository) Create(ctx context.Context, username, passwordHash, branchName string) (*models.Branch, error) {
	query := `
		INSERT INTO branches (username, password_hash, branch_name)
		VALUES (?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query, username, passwordHash, branchName)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("branch username %q already exists", username)
		}
		r.logger.Error("Failed to create branch", zap.Error(err))
		return nil, fmt.Errorf("failed to create branch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID loads one branch with its voucher books, suppliers, and column
// visibility preference.
func (r *BranchRepository) GetByID(ctx context.Context, id int64) (*models.Branch, error) {
	branch, err := r.scanBranch(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, apperr.NotFound("branch %d not found", id)
	}
	if err := r.loadEmbedded(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// GetByUsername loads a branch for login. Returns nil when no branch matches.
func (r *BranchRepository) GetByUsername(ctx context.Context, username string) (*models.Branch, error) {
	branch, err := r.scanBranch(ctx, "username = ?", username)
	if err != nil || branch == nil {
		return branch, err
	}
	if err := r.loadEmbedded(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// List returns all branches with their embedded registries.
func (r *BranchRepository) List(ctx context.Context) ([]*models.Branch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, password_hash, branch_name, column_visibility, created_at, updated_at
		FROM branches
		ORDER BY branch_name
	`)
	if err != nil {
		r.logger.Error("Failed to list branches", zap.Error(err))
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	defer rows.Close()

	var branches []*models.Branch
	for rows.Next() {
		branch, err := scanBranchRow(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	for _, branch := range branches {
		if err := r.loadEmbedded(ctx, branch); err != nil {
			return nil, err
		}
	}
	return branches, nil
}

// Update applies partial updates to a branch. Nil fields are left unchanged.
func (r *BranchRepository) Update(ctx context.Context, id int64, username, passwordHash, branchName *string) error {
	set := "updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	if username != nil {
		set += ", username = ?"
		args = append(args, *username)
	}
	if passwordHash != nil {
		set += ", password_hash = ?"
		args = append(args, *passwordHash)
	}
	if branchName != nil {
		set += ", branch_name = ?"
		args = append(args, *branchName)
	}
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, "UPDATE branches SET "+set+" WHERE id = ?", args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("branch username already exists")
		}
		r.logger.Error("Failed to update branch", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update branch: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("branch %d not found", id)
	}
	return nil
}

// GetColumnVisibility returns the opaque per-branch column preference map.
func (r *BranchRepository) GetColumnVisibility(ctx context.Context, branchID int64) (map[string]bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT column_visibility FROM branches WHERE id = ?", branchID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("branch %d not found", branchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get column visibility: %w", err)
	}

	visibility := map[string]bool{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &visibility); err != nil {
			return nil, fmt.Errorf("failed to decode column visibility: %w", err)
		}
	}
	return visibility, nil
}

// SetColumnVisibility stores the preference map verbatim; the core never
// interprets the column names.
func (r *BranchRepository) SetColumnVisibility(ctx context.Context, branchID int64, visibility map[string]bool) error {
	raw, err := json.Marshal(visibility)
	if err != nil {
		return fmt.Errorf("failed to encode column visibility: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE branches SET column_visibility = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		string(raw), branchID)
	if err != nil {
		return fmt.Errorf("failed to set column visibility: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("branch %d not found", branchID)
	}
	return nil
}

// AddBook registers a new voucher book. Book names are unique per branch.
func (r *BranchRepository) AddBook(ctx context.Context, branchID int64, name string, start, end int64) (*models.VoucherBook, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO voucher_books (branch_id, name, start_no, end_no) VALUES (?, ?, ?, ?)",
		branchID, name, start, end)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("voucher book %q already exists", name)
		}
		r.logger.Error("Failed to add voucher book", zap.Int64("branch_id", branchID), zap.Error(err))
		return nil, fmt.Errorf("failed to add voucher book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return &models.VoucherBook{ID: id, BranchID: branchID, Name: name, Start: start, End: end}, nil
}

// GetBookByName resolves a voucher book by its per-branch unique name.
func (r *BranchRepository) GetBookByName(ctx context.Context, branchID int64, name string) (*models.VoucherBook, error) {
	return r.getBook(ctx, r.db, "branch_id = ? AND name = ?", branchID, name)
}

// GetBookByNameTx is GetBookByName inside a caller-owned transaction.
func (r *BranchRepository) GetBookByNameTx(ctx context.Context, tx *sql.Tx, branchID int64, name string) (*models.VoucherBook, error) {
	return r.getBook(ctx, tx, "branch_id = ? AND name = ?", branchID, name)
}

// GetBookByID resolves a voucher book by its stable identifier.
func (r *BranchRepository) GetBookByID(ctx context.Context, branchID, bookID int64) (*models.VoucherBook, error) {
	return r.getBook(ctx, r.db, "branch_id = ? AND id = ?", branchID, bookID)
}

// UpdateBook renames a book or adjusts its range. Existing reservations are
// not revalidated against a narrowed range.
func (r *BranchRepository) UpdateBook(ctx context.Context, branchID, bookID int64, name string, start, end int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE voucher_books SET name = ?, start_no = ?, end_no = ?
		WHERE branch_id = ? AND id = ?
	`, name, start, end, branchID, bookID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("voucher book %q already exists", name)
		}
		return fmt.Errorf("failed to update voucher book: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("voucher book %d not found", bookID)
	}

	// Keep the denormalized book name on entries in step with renames.
	if _, err := r.db.ExecContext(ctx, `
		UPDATE voucher_entries SET voucher_book = ?
		WHERE branch_id = ? AND book_id = ?
	`, name, branchID, bookID); err != nil {
		return fmt.Errorf("failed to propagate book rename: %w", err)
	}
	return nil
}

// DeleteBook removes a book; its reservations go with it via the cascading
// foreign key. Entries keep their denormalized book name for historical
// reporting.
func (r *BranchRepository) DeleteBook(ctx context.Context, branchID, bookID int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM voucher_books WHERE branch_id = ? AND id = ?", branchID, bookID)
	if err != nil {
		return fmt.Errorf("failed to delete voucher book: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("voucher book %d not found", bookID)
	}
	return nil
}

// AddSupplier registers a supplier name, unique per branch (case-sensitive).
func (r *BranchRepository) AddSupplier(ctx context.Context, branchID int64, name string) (*models.Supplier, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO suppliers (branch_id, name) VALUES (?, ?)", branchID, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("supplier %q already exists", name)
		}
		return nil, fmt.Errorf("failed to add supplier: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return &models.Supplier{ID: id, BranchID: branchID, Name: name}, nil
}

// UpdateSupplier renames a supplier addressed by stable ID.
func (r *BranchRepository) UpdateSupplier(ctx context.Context, branchID, supplierID int64, name string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE suppliers SET name = ? WHERE branch_id = ? AND id = ?",
		name, branchID, supplierID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("supplier %q already exists", name)
		}
		return fmt.Errorf("failed to update supplier: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("supplier %d not found", supplierID)
	}
	return nil
}

// DeleteSupplier removes a supplier addressed by stable ID.
func (r *BranchRepository) DeleteSupplier(ctx context.Context, branchID, supplierID int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM suppliers WHERE branch_id = ? AND id = ?", branchID, supplierID)
	if err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("supplier %d not found", supplierID)
	}
	return nil
}

func (r *BranchRepository) scanBranch(ctx context.Context, where string, arg interface{}) (*models.Branch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, password_hash, branch_name, column_visibility, created_at, updated_at
		FROM branches WHERE `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanBranchRow(rows)
}

func scanBranchRow(rows *sql.Rows) (*models.Branch, error) {
	var branch models.Branch
	var visibility string
	if err := rows.Scan(
		&branch.ID,
		&branch.Username,
		&branch.PasswordHash,
		&branch.BranchName,
		&visibility,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan branch: %w", err)
	}

	branch.ColumnVisibility = map[string]bool{}
	if visibility != "" {
		if err := json.Unmarshal([]byte(visibility), &branch.ColumnVisibility); err != nil {
			return nil, fmt.Errorf("failed to decode column visibility: %w", err)
		}
	}
	return &branch, nil
}

func (r *BranchRepository) loadEmbedded(ctx context.Context, branch *models.Branch) error {
	bookRows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.branch_id, b.name, b.start_no, b.end_no,
			(SELECT COUNT(*) FROM voucher_reservations vr
			 WHERE vr.branch_id = b.branch_id AND vr.book_id = b.id) AS used_count
		FROM voucher_books b
		WHERE b.branch_id = ?
		ORDER BY b.id
	`, branch.ID)
	if err != nil {
		return fmt.Errorf("failed to load voucher books: %w", err)
	}
	defer bookRows.Close()

	branch.VoucherBooks = []models.VoucherBook{}
	for bookRows.Next() {
		var book models.VoucherBook
		if err := bookRows.Scan(&book.ID, &book.BranchID, &book.Name, &book.Start, &book.End, &book.UsedCount); err != nil {
			return fmt.Errorf("failed to scan voucher book: %w", err)
		}
		branch.VoucherBooks = append(branch.VoucherBooks, book)
	}
	if err := bookRows.Err(); err != nil {
		return fmt.Errorf("failed to load voucher books: %w", err)
	}

	supplierRows, err := r.db.QueryContext(ctx,
		"SELECT id, branch_id, name FROM suppliers WHERE branch_id = ? ORDER BY id", branch.ID)
	if err != nil {
		return fmt.Errorf("failed to load suppliers: %w", err)
	}
	defer supplierRows.Close()

	branch.Suppliers = []models.Supplier{}
	for supplierRows.Next() {
		var supplier models.Supplier
		if err := supplierRows.Scan(&supplier.ID, &supplier.BranchID, &supplier.Name); err != nil {
			return fmt.Errorf("failed to scan supplier: %w", err)
		}
		branch.Suppliers = append(branch.Suppliers, supplier)
	}
	return supplierRows.Err()
}

func (r *BranchRepository) getBook(ctx context.Context, q dbtx, where string, args ...interface{}) (*models.VoucherBook, error) {
	var book models.VoucherBook
	err := q.QueryRowContext(ctx, `
		SELECT id, branch_id, name, start_no, end_no
		FROM voucher_books WHERE `+where, args...).Scan(
		&book.ID, &book.BranchID, &book.Name, &book.Start, &book.End)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voucher book: %w", err)
	}
	return &book, nil
}
