package service

import (
	"context"
	"time"

	"github.com/vouchertrack/backoffice/internal/apperr"
	"github.com/vouchertrack/backoffice/internal/models"
	"github.com/vouchertrack/backoffice/internal/repository"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ReportParams are the raw query parameters of the report endpoint. Dates
// are "YYYY-MM-DD" strings; empty fields mean "no constraint".
type ReportParams struct {
	Page        int
	PageSize    int
	SortBy      string
	SortDir     string
	VoucherNo   string
	Supplier    string
	Status      string
	CreatedFrom string
	CreatedTo   string
	GivenFrom   string
	GivenTo     string
	ClearedFrom string
	ClearedTo   string
}

// ReportPage is one page of the filtered report plus totals over the whole
// filtered set.
type ReportPage struct {
	Entries  []*models.VoucherEntry `json:"entries"`
	Totals   repository.EntryTotals `json:"totals"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"pageSize"`
}

// ReportService builds filtered, sorted, paginated views over one branch's
// voucher entries.
type ReportService struct {
	entries         *repository.EntryRepository
	defaultPageSize int
	maxPageSize     int
	logger          *zap.Logger
}

// NewReportService creates a new report service
func NewReportService(entries *repository.EntryRepository, defaultPageSize, maxPageSize int, logger *zap.Logger) *ReportService {
	return &ReportService{
		entries:         entries,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger,
	}
}

// Query runs the report for one branch.
func (s *ReportService) Query(ctx context.Context, branchID int64, params ReportParams) (*ReportPage, error) {
	filter, err := s.buildFilter(branchID, params)
	if err != nil {
		return nil, err
	}

	entries, totals, err := s.entries.Query(ctx, *filter)
	if err != nil {
		return nil, err
	}

	return &ReportPage{
		Entries:  entries,
		Totals:   *totals,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// QueryAll runs the report without pagination, for the Excel export. The
// page size cap does not apply; the export walks the whole filtered set.
func (s *ReportService) QueryAll(ctx context.Context, branchID int64, params ReportParams) ([]*models.VoucherEntry, *repository.EntryTotals, error) {
	filter, err := s.buildFilter(branchID, params)
	if err != nil {
		return nil, nil, err
	}
	filter.Page = 1
	filter.PageSize = int(^uint(0) >> 1) // no limit

	entries, totals, err := s.entries.Query(ctx, *filter)
	if err != nil {
		return nil, nil, err
	}
	return entries, totals, nil
}

func (s *ReportService) buildFilter(branchID int64, params ReportParams) (*repository.EntryFilter, error) {
	if params.Status != "" &&
		params.Status != models.StatusPending &&
		params.Status != models.StatusActive &&
		params.Status != models.StatusCancel {
		return nil, apperr.Validation("invalid status filter: %s", params.Status)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	filter := &repository.EntryFilter{
		BranchID:   branchID,
		VoucherNo:  params.VoucherNo,
		Supplier:   params.Supplier,
		Status:     params.Status,
		SortColumn: repository.SortColumn(params.SortBy),
		SortDesc:   params.SortDir != "asc",
		Page:       page,
		PageSize:   pageSize,
	}

	var err error
	if filter.CreatedFrom, err = parseFrom(params.CreatedFrom); err != nil {
		return nil, err
	}
	if filter.CreatedTo, err = parseTo(params.CreatedTo); err != nil {
		return nil, err
	}
	if filter.GivenFrom, err = parseFrom(params.GivenFrom); err != nil {
		return nil, err
	}
	if filter.GivenTo, err = parseTo(params.GivenTo); err != nil {
		return nil, err
	}
	if filter.ClearedFrom, err = parseFrom(params.ClearedFrom); err != nil {
		return nil, err
	}
	if filter.ClearedTo, err = parseTo(params.ClearedTo); err != nil {
		return nil, err
	}

	return filter, nil
}

func parseFrom(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, apperr.Validation("invalid date %q, expected YYYY-MM-DD", value)
	}
	return &t, nil
}

// parseTo treats the range end as inclusive end-of-day: the stored upper
// bound is advanced to the next day minus one millisecond.
func parseTo(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, apperr.Validation("invalid date %q, expected YYYY-MM-DD", value)
	}
	end := t.Add(24*time.Hour - time.Millisecond)
	return &end, nil
}
