package models

import "time"

// Voucher entry status values.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusCancel  = "cancel"
)

// VoucherEntry is one recorded transaction against a specific voucher number
// in a voucher book. Voucher numbers are decimal strings compared exactly:
// "007" and "7" are distinct tokens.
type VoucherEntry struct {
	ID                 int64      `json:"id"`
	BranchID           int64      `json:"branchId"`
	BookID             int64      `json:"bookId"`
	VoucherBook        string     `json:"voucherBook"`
	VoucherNo          string     `json:"voucherNo"`
	InvoiceNo          string     `json:"invoiceNo"`
	VoucherGivenDate   *time.Time `json:"voucherGivenDate"`
	Supplier           string     `json:"supplier"`
	Amount             float64    `json:"amount"`
	Dues               float64    `json:"dues"`
	Return             float64    `json:"return"`
	DiscountAdvance    float64    `json:"discountAdvance"`
	NetBalance         float64    `json:"netBalance"`
	ChqCashIssuedDate  *time.Time `json:"chqCashIssuedDate"`
	AmountPaid         float64    `json:"amountPaid"`
	VoucherClearedDate *time.Time `json:"voucherClearedDate"`
	Remarks            string     `json:"remarks"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// ComputeNetBalance returns amount - dues - return - discountAdvance. The
// stored net balance is always recomputed server-side from these fields; a
// client-supplied value is ignored.
func (e *VoucherEntry) ComputeNetBalance() float64 {
	return e.Amount - e.Dues - e.Return - e.DiscountAdvance
}

// DeriveStatus returns "active" when a clearing date is present, otherwise
// "pending". Used by the import paths and the cancel toggle.
func (e *VoucherEntry) DeriveStatus() string {
	if e.VoucherClearedDate != nil {
		return StatusActive
	}
	return StatusPending
}
