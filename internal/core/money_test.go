package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"45.00", "45.00", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{".5", "0.50", true},
		{"3.", "3.00", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.50", true},
		{"-5", "", false},
		{"+5", "", false},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.out, FormatAmount(got), "input %q", tc.in)
	}
}

func TestParseAmountIsValidation(t *testing.T) {
	_, err := ParseAmount("-5")
	assert.True(t, IsValidation(err))
}
