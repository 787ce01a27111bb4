package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/vouchertrack/backoffice/internal/auth"
	"go.uber.org/zap"
)

// Server wraps the gin router in an http.Server with graceful shutdown.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// Config holds HTTP server settings
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer builds the router and binds all routes.
func NewServer(cfg Config, handlers *Handlers, tokens *auth.TokenManager, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", handlers.HealthCheck)
	router.POST("/login", handlers.Login)

	authed := router.Group("/", auth.RequireAuth(tokens))

	adminOnly := authed.Group("/", auth.RequireRole(auth.RoleAdmin))
	{
		adminOnly.POST("/branch", handlers.CreateBranch)
		adminOnly.GET("/branch", handlers.ListBranches)
		adminOnly.GET("/branch/:id", handlers.GetBranch)
		adminOnly.PATCH("/branch/:id", handlers.UpdateBranch)
		adminOnly.PUT("/branch/:id", handlers.UpdateBranch)
	}

	branchOnly := authed.Group("/", auth.RequireRole(auth.RoleBranch))
	{
		branchOnly.PATCH("/branch", handlers.PatchBranchRegistry)
		branchOnly.GET("/branch/columns", handlers.GetColumnVisibility)
		branchOnly.PATCH("/branch/columns", handlers.SetColumnVisibility)
		branchOnly.PATCH("/branch/supplier/:id", handlers.EditSupplier)
		branchOnly.DELETE("/branch/supplier/:id", handlers.DeleteSupplier)
	}

	entries := authed.Group("/voucherEntry")
	{
		entries.GET("", handlers.ListEntries)
		entries.POST("", handlers.CreateEntry)
		entries.PATCH("", handlers.UpdateEntry)
		entries.GET("/export", handlers.ExportEntries)
		entries.PATCH("/paid", handlers.MarkEntriesPaid)
		entries.POST("/bulk", handlers.ImportStrict)
		entries.POST("/simple", handlers.ImportPermissive)
		entries.POST("/importFile", handlers.ImportWorkbook)
		entries.GET("/:id", handlers.GetEntry)
		entries.DELETE("/:id", handlers.DeleteEntry)
		entries.PATCH("/:id/cancel", handlers.ToggleEntryCancel)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{srv: srv, logger: logger}
}

// Start begins serving and blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
