package http

import (
	"github.com/gin-gonic/gin"
	"github.com/vouchertrack/backoffice/internal/auth"
)

// CreateBranch handles POST /branch (admin)
func (h *Handlers) CreateBranch(c *gin.Context) {
	var req createBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "username, password, and branchName are required")
		return
	}

	branch, err := h.branchService.CreateBranch(c.Request.Context(), req.Username, req.Password, req.BranchName)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, branch)
}

// ListBranches handles GET /branch (admin)
func (h *Handlers) ListBranches(c *gin.Context) {
	branches, err := h.branchService.ListBranches(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, branches)
}

// GetBranch handles GET /branch/:id (admin)
func (h *Handlers) GetBranch(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid branch id")
		return
	}

	branch, err := h.branchService.GetBranch(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, branch)
}

// UpdateBranch handles PATCH and PUT /branch/:id (admin)
func (h *Handlers) UpdateBranch(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid branch id")
		return
	}

	var req updateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	branch, err := h.branchService.UpdateBranch(c.Request.Context(), id, req.Username, req.Password, req.BranchName)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, branch)
}

// PatchBranchRegistry handles PATCH /branch (branch): supplier add and
// voucher-book add/edit/delete selected by the action discriminator.
func (h *Handlers) PatchBranchRegistry(c *gin.Context) {
	branchID := auth.BranchIDFrom(c)

	var req branchRegistryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "action must be one of addSupplier, addVoucher, editVoucher, deleteVoucher")
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case actionAddSupplier:
		supplier, err := h.branchService.AddSupplier(ctx, branchID, req.Name)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.ok(c, supplier)
	case actionAddVoucher:
		book, err := h.branchService.AddBook(ctx, branchID, req.Name, req.Start, req.End)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.ok(c, book)
	case actionEditVoucher:
		if err := h.branchService.EditBook(ctx, branchID, req.BookID, req.Name, req.Start, req.End); err != nil {
			h.fail(c, err)
			return
		}
		h.ok(c, gin.H{"updated": req.BookID})
	case actionDeleteVoucher:
		if err := h.branchService.DeleteBook(ctx, branchID, req.BookID); err != nil {
			h.fail(c, err)
			return
		}
		h.ok(c, gin.H{"deleted": req.BookID})
	}
}

// GetColumnVisibility handles GET /branch/columns (branch)
func (h *Handlers) GetColumnVisibility(c *gin.Context) {
	visibility, err := h.branchService.GetColumnVisibility(c.Request.Context(), auth.BranchIDFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"columnVisibility": visibility})
}

// SetColumnVisibility handles PATCH /branch/columns (branch)
func (h *Handlers) SetColumnVisibility(c *gin.Context) {
	var req columnVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "columnVisibility is required")
		return
	}

	branchID := auth.BranchIDFrom(c)
	if err := h.branchService.SetColumnVisibility(c.Request.Context(), branchID, req.ColumnVisibility); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"columnVisibility": req.ColumnVisibility})
}

// EditSupplier handles PATCH /branch/supplier/:id (branch)
func (h *Handlers) EditSupplier(c *gin.Context) {
	supplierID, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid supplier id")
		return
	}

	var req supplierEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "name is required")
		return
	}

	branchID := auth.BranchIDFrom(c)
	if err := h.branchService.EditSupplier(c.Request.Context(), branchID, supplierID, req.Name); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"updated": supplierID})
}

// DeleteSupplier handles DELETE /branch/supplier/:id (branch)
func (h *Handlers) DeleteSupplier(c *gin.Context) {
	supplierID, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid supplier id")
		return
	}

	branchID := auth.BranchIDFrom(c)
	if err := h.branchService.DeleteSupplier(c.Request.Context(), branchID, supplierID); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": supplierID})
}
