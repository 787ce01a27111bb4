package models

import "time"

// Branch is a tenant unit: its own credentials, voucher books, and supplier
// list. Passwords are stored as bcrypt hashes and never serialized.
type Branch struct {
	ID               int64           `json:"id"`
	Username         string          `json:"username"`
	PasswordHash     string          `json:"-"`
	BranchName       string          `json:"branchName"`
	VoucherBooks     []VoucherBook   `json:"vouchers"`
	Suppliers        []Supplier      `json:"suppliers"`
	ColumnVisibility map[string]bool `json:"columnVisibility"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// VoucherBook is a named inclusive numeric range of voucher numbers owned by
// one branch. Book names are unique within a branch.
type VoucherBook struct {
	ID       int64  `json:"id"`
	BranchID int64  `json:"branchId"`
	Name     string `json:"name"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	// UsedCount is the number of reserved voucher numbers in this book.
	UsedCount int `json:"usedCount"`
}

// Supplier is a named supplier registered with one branch. Names are unique
// within a branch, compared case-sensitively.
type Supplier struct {
	ID       int64  `json:"id"`
	BranchID int64  `json:"branchId"`
	Name     string `json:"name"`
}
