package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vouchertrack/backoffice/internal/service"
	"go.uber.org/zap"
)

// ListEntries handles GET /voucherEntry: the filtered, sorted, paginated
// report plus totals over the whole filtered set.
func (h *Handlers) ListEntries(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	page, err := h.reportService.Query(c.Request.Context(), branchID, reportParams(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, page)
}

// CreateEntry handles POST /voucherEntry
func (h *Handlers) CreateEntry(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "voucherBook and voucherNo are required")
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.fail(c, err)
		return
	}

	entry, err := h.entryService.Create(c.Request.Context(), branchID, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, entry)
}

// UpdateEntry handles PATCH /voucherEntry
func (h *Handlers) UpdateEntry(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "voucherBook and voucherNo are required")
		return
	}
	if req.ID == 0 {
		h.badRequest(c, "id is required")
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.fail(c, err)
		return
	}

	entry, err := h.entryService.Update(c.Request.Context(), branchID, req.ID, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, entry)
}

// GetEntry handles GET /voucherEntry/:id
func (h *Handlers) GetEntry(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid entry id")
		return
	}

	entry, err := h.entryService.Get(c.Request.Context(), branchID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, entry)
}

// DeleteEntry handles DELETE /voucherEntry/:id; the entry's voucher number
// is released in the same unit.
func (h *Handlers) DeleteEntry(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid entry id")
		return
	}

	if err := h.entryService.Delete(c.Request.Context(), branchID, id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": id})
}

// ToggleEntryCancel handles PATCH /voucherEntry/:id/cancel
func (h *Handlers) ToggleEntryCancel(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid entry id")
		return
	}

	entry, err := h.entryService.ToggleCancel(c.Request.Context(), branchID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, entry)
}

// MarkEntriesPaid handles PATCH /voucherEntry/paid
func (h *Handlers) MarkEntriesPaid(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "entryIds and chqCashIssuedDate are required")
		return
	}

	issued, err := parseOptionalDate(req.ChqCashIssuedDate)
	if err != nil || issued == nil {
		h.badRequest(c, "invalid chqCashIssuedDate")
		return
	}

	if err := h.entryService.MarkPaid(c.Request.Context(), branchID, req.EntryIDs, *issued); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"paid": req.EntryIDs})
}

// ImportStrict handles POST /voucherEntry/bulk: all rows validated and
// reserved, or none persisted.
func (h *Handlers) ImportStrict(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "entries is required")
		return
	}

	entries, err := h.importer.ImportStrict(c.Request.Context(), branchID, req.Entries)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"imported": len(entries), "entries": entries})
}

// ImportPermissive handles POST /voucherEntry/simple: best-effort coercion,
// no reservation check.
func (h *Handlers) ImportPermissive(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "entries is required")
		return
	}

	entries, err := h.importer.ImportPermissive(c.Request.Context(), branchID, req.Entries)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"imported": len(entries), "entries": entries})
}

// ImportWorkbook handles POST /voucherEntry/importFile: an uploaded .xlsx
// parsed into rows and fed through the strict import.
func (h *Handlers) ImportWorkbook(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		h.badRequest(c, "file upload is required")
		return
	}
	defer file.Close()

	rows, err := h.workbook.ParseRows(file)
	if err != nil {
		h.badRequest(c, fmt.Sprintf("failed to parse workbook: %v", err))
		return
	}

	entries, err := h.importer.ImportStrict(c.Request.Context(), branchID, rows)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"imported": len(entries)})
}

// ExportEntries handles GET /voucherEntry/export: the current report filter
// rendered as an .xlsx workbook.
func (h *Handlers) ExportEntries(c *gin.Context) {
	branchID, ok := h.branchScope(c)
	if !ok {
		return
	}

	entries, totals, err := h.reportService.QueryAll(c.Request.Context(), branchID, reportParams(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	f, err := h.workbook.Build(entries, totals)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("vouchers-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("Failed to stream workbook", zap.Error(err))
		c.Status(http.StatusInternalServerError)
	}
}

func reportParams(c *gin.Context) service.ReportParams {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))

	return service.ReportParams{
		Page:        page,
		PageSize:    pageSize,
		SortBy:      c.Query("sortBy"),
		SortDir:     c.Query("sortDir"),
		VoucherNo:   c.Query("voucherNo"),
		Supplier:    c.Query("supplier"),
		Status:      c.Query("status"),
		CreatedFrom: c.Query("createdFrom"),
		CreatedTo:   c.Query("createdTo"),
		GivenFrom:   c.Query("givenFrom"),
		GivenTo:     c.Query("givenTo"),
		ClearedFrom: c.Query("clearedFrom"),
		ClearedTo:   c.Query("clearedTo"),
	}
}
