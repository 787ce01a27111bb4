package http

import (
	"time"

	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/importer"
	"github.com/vouchertrack/backoffice/internal/service"
)

// Request bodies are explicit, exhaustively enumerated schemas; nothing is
// coerced ad hoc past this boundary.

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createBranchRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	BranchName string `json:"branchName" binding:"required"`
}

type updateBranchRequest struct {
	Username   *string `json:"username"`
	Password   *string `json:"password"`
	BranchName *string `json:"branchName"`
}

// Registry edit actions on PATCH /branch.
const (
	actionAddSupplier   = "addSupplier"
	actionAddVoucher    = "addVoucher"
	actionEditVoucher   = "editVoucher"
	actionDeleteVoucher = "deleteVoucher"
)

type branchRegistryRequest struct {
	Action string `json:"action" binding:"required,oneof=addSupplier addVoucher editVoucher deleteVoucher"`
	Name   string `json:"name"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	// BookID addresses an existing voucher book for edit/delete.
	BookID int64 `json:"bookId"`
}

type supplierEditRequest struct {
	Name string `json:"name" binding:"required"`
}

type columnVisibilityRequest struct {
	ColumnVisibility map[string]bool `json:"columnVisibility" binding:"required"`
}

type entryRequest struct {
	ID                 int64   `json:"id"` // required for PATCH /voucherEntry
	VoucherBook        string  `json:"voucherBook" binding:"required"`
	VoucherNo          string  `json:"voucherNo" binding:"required"`
	InvoiceNo          string  `json:"invoiceNo"`
	VoucherGivenDate   string  `json:"voucherGivenDate"`
	Supplier           string  `json:"supplier"`
	Amount             float64 `json:"amount"`
	Dues               float64 `json:"dues"`
	Return             float64 `json:"return"`
	DiscountAdvance    float64 `json:"discountAdvance"`
	ChqCashIssuedDate  string  `json:"chqCashIssuedDate"`
	AmountPaid         float64 `json:"amountPaid"`
	VoucherClearedDate string  `json:"voucherClearedDate"`
	Remarks            string  `json:"remarks"`
}

type markPaidRequest struct {
	EntryIDs          []int64 `json:"entryIds" binding:"required"`
	ChqCashIssuedDate string  `json:"chqCashIssuedDate" binding:"required"`
}

type importRequest struct {
	Entries []importer.Row `json:"entries" binding:"required"`
}

func (r entryRequest) toInput() (service.EntryInput, error) {
	given, err := parseOptionalDate(r.VoucherGivenDate)
	if err != nil {
		return service.EntryInput{}, err
	}
	issued, err := parseOptionalDate(r.ChqCashIssuedDate)
	if err != nil {
		return service.EntryInput{}, err
	}
	cleared, err := parseOptionalDate(r.VoucherClearedDate)
	if err != nil {
		return service.EntryInput{}, err
	}

	return service.EntryInput{
		VoucherBook:        r.VoucherBook,
		VoucherNo:          r.VoucherNo,
		InvoiceNo:          r.InvoiceNo,
		VoucherGivenDate:   given,
		Supplier:           r.Supplier,
		Amount:             r.Amount,
		Dues:               r.Dues,
		Return:             r.Return,
		DiscountAdvance:    r.DiscountAdvance,
		ChqCashIssuedDate:  issued,
		AmountPaid:         r.AmountPaid,
		VoucherClearedDate: cleared,
		Remarks:            r.Remarks,
	}, nil
}

// parseOptionalDate accepts "YYYY-MM-DD" or RFC 3339; empty means unset.
func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	return nil, apperr.Validation("invalid date %q, expected YYYY-MM-DD", value)
}
