package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subosito/gotenv"
	"github.com/vouchertrack/backoffice/internal/auth"
	"github.com/vouchertrack/backoffice/internal/config"
	"github.com/vouchertrack/backoffice/internal/excel"
	"github.com/vouchertrack/backoffice/internal/importer"
	httpiface "github.com/vouchertrack/backoffice/internal/interfaces/http"
	"github.com/vouchertrack/backoffice/internal/repository"
	"github.com/vouchertrack/backoffice/internal/reservation"
	"github.com/vouchertrack/backoffice/internal/service"
	"github.com/vouchertrack/backoffice/pkg/database"
	"github.com/vouchertrack/backoffice/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	// Local .env overrides, if present
	_ = gotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting voucher tracker",
		zap.Int("port", cfg.Server.Port))

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	adminRepo := repository.NewAdminRepository(db.DB, logger)
	branchRepo := repository.NewBranchRepository(db.DB, logger)
	entryRepo := repository.NewEntryRepository(db.DB, logger)

	// Seed the configured admin account with a fresh hash.
	adminHash, err := auth.HashPassword(cfg.Admin.Password)
	if err != nil {
		logger.Fatal("Failed to hash admin password", zap.Error(err))
	}
	if err := adminRepo.EnsureSeed(context.Background(), cfg.Admin.Username, adminHash); err != nil {
		logger.Fatal("Failed to seed admin account", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	ledger := reservation.NewLedger(logger)

	authService := service.NewAuthService(adminRepo, branchRepo, tokens, logger)
	branchService := service.NewBranchService(branchRepo, logger)
	entryService := service.NewEntryService(db, branchRepo, entryRepo, ledger, logger)
	reportService := service.NewReportService(entryRepo,
		cfg.Report.DefaultPageSize, cfg.Report.MaxPageSize, logger)
	imp := importer.New(db, branchRepo, entryRepo, ledger, logger)
	workbook := excel.New(logger)

	handlers := httpiface.NewHandlers(
		authService, branchService, entryService, reportService, imp, workbook, logger)

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server := httpiface.NewServer(httpiface.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, tokens, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "configs/config.yaml"
}
