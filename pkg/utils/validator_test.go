package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateVoucherNumber(t *testing.T) {
	tests := []struct {
		name    string
		no      string
		wantErr bool
	}{
		{"plain number", "7", false},
		{"zero-padded", "007", false},
		{"empty", "", true},
		{"alphanumeric", "7a", true},
		{"negative", "-7", true},
		{"decimal point", "7.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVoucherNumber(tt.no)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVoucherNumberInRange(t *testing.T) {
	in, err := VoucherNumberInRange("7", 1, 10)
	require.NoError(t, err)
	assert.True(t, in)

	// Zero-padding does not change the numeric range check.
	in, err = VoucherNumberInRange("007", 1, 10)
	require.NoError(t, err)
	assert.True(t, in)

	in, err = VoucherNumberInRange("11", 1, 10)
	require.NoError(t, err)
	assert.False(t, in)

	in, err = VoucherNumberInRange("1", 1, 1)
	require.NoError(t, err)
	assert.True(t, in, "range bounds are inclusive")

	_, err = VoucherNumberInRange("x", 1, 10)
	assert.Error(t, err)
}

func TestValidateBookRange(t *testing.T) {
	assert.NoError(t, ValidateBookRange(1, 100))
	assert.NoError(t, ValidateBookRange(5, 5))
	assert.Error(t, ValidateBookRange(100, 1))
	assert.Error(t, ValidateBookRange(-1, 10))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("he\x00llo"))
	assert.Equal(t, "tab and newline", SanitizeString("tab\t and newline\n"))
}
