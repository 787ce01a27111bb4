package service

import (
	"context"

	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/auth"
	"github.com/vouchertrack/backoffice/internal/models"
	"github.com/vouchertrack/backoffice/internal/repository"
	"github.com/vouchertrack/backoffice/pkg/utils"
	"go.uber.org/zap"
)

// BranchService manages branches and their embedded voucher-book and
// supplier registries.
type BranchService struct {
	branches *repository.BranchRepository
	logger   *zap.Logger
}

// NewBranchService creates a new branch service
func NewBranchService(branches *repository.BranchRepository, logger *zap.Logger) *BranchService {
	return &BranchService{
		branches: branches,
		logger:   logger,
	}
}

// CreateBranch registers a new branch tenant with hashed credentials.
func (s *BranchService) CreateBranch(ctx context.Context, username, password, branchName string) (*models.Branch, error) {
	if username == "" || password == "" || branchName == "" {
		return nil, apperr.Validation("username, password, and branchName are required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	branch, err := s.branches.Create(ctx, utils.SanitizeString(username), hash, utils.SanitizeString(branchName))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Branch created",
		zap.Int64("branch_id", branch.ID),
		zap.String("branch_name", branch.BranchName))
	return branch, nil
}

// ListBranches returns all branches.
func (s *BranchService) ListBranches(ctx context.Context) ([]*models.Branch, error) {
	return s.branches.List(ctx)
}

// GetBranch returns one branch with its registries.
func (s *BranchService) GetBranch(ctx context.Context, id int64) (*models.Branch, error) {
	return s.branches.GetByID(ctx, id)
}

// UpdateBranch applies partial credential or name updates. A supplied
// password is hashed before storage.
func (s *BranchService) UpdateBranch(ctx context.Context, id int64, username, password, branchName *string) (*models.Branch, error) {
	if username == nil && password == nil && branchName == nil {
		return nil, apperr.Validation("no fields to update")
	}

	var passwordHash *string
	if password != nil {
		if *password == "" {
			return nil, apperr.Validation("password must not be empty")
		}
		hash, err := auth.HashPassword(*password)
		if err != nil {
			return nil, err
		}
		passwordHash = &hash
	}

	if err := s.branches.Update(ctx, id, username, passwordHash, branchName); err != nil {
		return nil, err
	}
	return s.branches.GetByID(ctx, id)
}

// AddBook registers a voucher book after validating its numeric range.
func (s *BranchService) AddBook(ctx context.Context, branchID int64, name string, start, end int64) (*models.VoucherBook, error) {
	if name == "" {
		return nil, apperr.Validation("voucher book name is required")
	}
	if err := utils.ValidateBookRange(start, end); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	return s.branches.AddBook(ctx, branchID, utils.SanitizeString(name), start, end)
}

// EditBook updates a voucher book addressed by stable ID.
func (s *BranchService) EditBook(ctx context.Context, branchID, bookID int64, name string, start, end int64) error {
	if name == "" {
		return apperr.Validation("voucher book name is required")
	}
	if err := utils.ValidateBookRange(start, end); err != nil {
		return apperr.Validation("%v", err)
	}
	return s.branches.UpdateBook(ctx, branchID, bookID, utils.SanitizeString(name), start, end)
}

// DeleteBook removes a voucher book and its reservations.
func (s *BranchService) DeleteBook(ctx context.Context, branchID, bookID int64) error {
	return s.branches.DeleteBook(ctx, branchID, bookID)
}

// AddSupplier registers a supplier name for a branch.
func (s *BranchService) AddSupplier(ctx context.Context, branchID int64, name string) (*models.Supplier, error) {
	if name == "" {
		return nil, apperr.Validation("supplier name is required")
	}
	return s.branches.AddSupplier(ctx, branchID, utils.SanitizeString(name))
}

// EditSupplier renames a supplier addressed by stable ID.
func (s *BranchService) EditSupplier(ctx context.Context, branchID, supplierID int64, name string) error {
	if name == "" {
		return apperr.Validation("supplier name is required")
	}
	return s.branches.UpdateSupplier(ctx, branchID, supplierID, utils.SanitizeString(name))
}

// DeleteSupplier removes a supplier addressed by stable ID.
func (s *BranchService) DeleteSupplier(ctx context.Context, branchID, supplierID int64) error {
	return s.branches.DeleteSupplier(ctx, branchID, supplierID)
}

// GetColumnVisibility returns the per-branch UI column preference blob.
func (s *BranchService) GetColumnVisibility(ctx context.Context, branchID int64) (map[string]bool, error) {
	return s.branches.GetColumnVisibility(ctx, branchID)
}

// SetColumnVisibility stores the preference blob verbatim.
func (s *BranchService) SetColumnVisibility(ctx context.Context, branchID int64, visibility map[string]bool) error {
	if visibility == nil {
		return apperr.Validation("columnVisibility is required")
	}
	return s.branches.SetColumnVisibility(ctx, branchID, visibility)
}
