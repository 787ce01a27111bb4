package service

import (
	"context"

	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/auth"
	"github.com/vouchertrack/backoffice/internal/repository"
	"go.uber.org/zap"
)

// LoginResult is the successful login payload: a signed token, the resolved
// role, and the account profile.
type LoginResult struct {
	Token   string      `json:"token"`
	Role    string      `json:"role"`
	Profile interface{} `json:"profile"`
}

// AuthService authenticates admins and branches against their bcrypt hashes.
type AuthService struct {
	admins   *repository.AdminRepository
	branches *repository.BranchRepository
	tokens   *auth.TokenManager
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(admins *repository.AdminRepository, branches *repository.BranchRepository, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	return &AuthService{
		admins:   admins,
		branches: branches,
		tokens:   tokens,
		logger:   logger,
	}
}

// Login checks the credentials against branch accounts first, then the admin
// account. A miss on both yields Unauthorized without revealing which lookup
// failed.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}

	branch, err := s.branches.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if branch != nil && auth.CheckPassword(branch.PasswordHash, password) {
		token, err := s.tokens.Generate(auth.RoleBranch, branch.Username, branch.ID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Branch login", zap.String("username", username), zap.Int64("branch_id", branch.ID))
		return &LoginResult{Token: token, Role: auth.RoleBranch, Profile: branch}, nil
	}

	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if admin != nil && auth.CheckPassword(admin.PasswordHash, password) {
		token, err := s.tokens.Generate(auth.RoleAdmin, admin.Username, 0)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Admin login", zap.String("username", username))
		return &LoginResult{Token: token, Role: auth.RoleAdmin, Profile: admin}, nil
	}

	s.logger.Warn("Failed login attempt", zap.String("username", username))
	return nil, apperr.Unauthorized("invalid username or password")
}
