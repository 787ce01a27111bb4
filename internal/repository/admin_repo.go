package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vouchertrack/backoffice/internal/models"
	"go.uber.org/zap"
)

// AdminRepository handles admin account database operations
type AdminRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *sql.DB, logger *zap.Logger) *AdminRepository {
	return &AdminRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUsername retrieves an admin by username. Returns nil when no admin
// matches.
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM admins
		WHERE username = ?
	`

	var admin models.Admin
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get admin", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return &admin, nil
}

// EnsureSeed creates the configured admin account if it does not exist yet,
// and refreshes the password hash if it does.
func (r *AdminRepository) EnsureSeed(ctx context.Context, username, passwordHash string) error {
	query := `
		INSERT INTO admins (username, password_hash) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash
	`
	if _, err := r.db.ExecContext(ctx, query, username, passwordHash); err != nil {
		r.logger.Error("Failed to seed admin account", zap.Error(err))
		return fmt.Errorf("failed to seed admin account: %w", err)
	}
	return nil
}
