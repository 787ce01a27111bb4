package utils

import (
	"fmt"
	"regexp"
	"strconv"
)

var voucherNoPattern = regexp.MustCompile(`^[0-9]+$`)

// ValidateVoucherNumber checks that a voucher number is a non-empty decimal
// string. Numbers are compared as strings, so "007" and "7" are distinct
// tokens; callers normalize before reserving.
func ValidateVoucherNumber(no string) error {
	if no == "" {
		return fmt.Errorf("voucher number is required")
	}
	if !voucherNoPattern.MatchString(no) {
		return fmt.Errorf("voucher number must be a decimal string: %s", no)
	}
	return nil
}

// VoucherNumberInRange parses a voucher number token and checks it against an
// inclusive [start, end] range.
func VoucherNumberInRange(no string, start, end int64) (bool, error) {
	n, err := strconv.ParseInt(no, 10, 64)
	if err != nil {
		return false, fmt.Errorf("voucher number is not numeric: %s", no)
	}
	return n >= start && n <= end, nil
}

// ValidateBookRange checks a voucher book's inclusive numeric range.
func ValidateBookRange(start, end int64) error {
	if start < 0 {
		return fmt.Errorf("range start must be non-negative: %d", start)
	}
	if start > end {
		return fmt.Errorf("range start %d exceeds end %d", start, end)
	}
	return nil
}

// SanitizeString removes control characters from user-supplied text fields.
func SanitizeString(s string) string {
	return regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
}
