package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/auth"
	"github.com/vouchertrack/backoffice/internal/excel"
	"github.com/vouchertrack/backoffice/internal/importer"
	"github.com/vouchertrack/backoffice/internal/service"
	"go.uber.org/zap"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	authService   *service.AuthService
	branchService *service.BranchService
	entryService  *service.EntryService
	reportService *service.ReportService
	importer      *importer.Importer
	workbook      *excel.Workbook
	logger        *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	authService *service.AuthService,
	branchService *service.BranchService,
	entryService *service.EntryService,
	reportService *service.ReportService,
	imp *importer.Importer,
	workbook *excel.Workbook,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		authService:   authService,
		branchService: branchService,
		entryService:  entryService,
		reportService: reportService,
		importer:      imp,
		workbook:      workbook,
		logger:        logger,
	}
}

// Response is the standard JSON envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":  "healthy",
			"service": "voucher-tracker",
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Login handles POST /login
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "username and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, result)
}

func (h *Handlers) ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// fail maps the error taxonomy onto HTTP statuses. Everything is caught
// here; unclassified failures surface as a generic 500.
func (h *Handlers) fail(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: apperr.MessageOf(err)})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, Response{Success: false, Error: apperr.MessageOf(err)})
	case apperr.KindUnauthorized:
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: apperr.MessageOf(err)})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal server error"})
	}
}

// branchScope resolves which branch a request operates on: branch sessions
// are bound to their own branch, admin sessions pass ?branchId=.
func (h *Handlers) branchScope(c *gin.Context) (int64, bool) {
	claims := auth.ClaimsFrom(c)
	if claims != nil && claims.Role == auth.RoleBranch {
		return claims.BranchID, true
	}

	raw := c.Query("branchId")
	if raw == "" {
		h.badRequest(c, "branchId query parameter is required for admin sessions")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid branchId")
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
