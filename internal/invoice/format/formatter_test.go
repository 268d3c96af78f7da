package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	issued := time.Date(2026, 4, 7, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		prefix string
		width  int
		seq    int64
		want   string
	}{
		{name: "slash prefix", prefix: "INV/", width: 4, seq: 42, want: "INV/0042"},
		{name: "no padding", prefix: "INV-", width: 0, seq: 7, want: "INV-7"},
		{name: "overflow keeps digits", prefix: "A", width: 2, seq: 12345, want: "A12345"},
		{name: "date tokens", prefix: "INV/{YYYY}-{MM}/", width: 3, seq: 5, want: "INV/2026-04/005"},
		{name: "short year and day", prefix: "{YY}{DD}-", width: 2, seq: 1, want: "2607-01"},
		{name: "empty prefix", prefix: "", width: 4, seq: 1, want: "0001"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatInvoiceNumber(tc.prefix, tc.width, issued, tc.seq)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatInvoiceNumberErrors(t *testing.T) {
	now := time.Now()

	_, err := FormatInvoiceNumber("INV-", 4, now, 0)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber("INV-", -1, now, 1)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber("INV-{QQ}-", 4, now, 1)
	assert.Error(t, err)
}

func TestValidatePrefix(t *testing.T) {
	assert.NoError(t, ValidatePrefix("INV/{YYYY}/"))
	assert.Error(t, ValidatePrefix("INV-{SEQ4}"))
	assert.Error(t, ValidatePrefix("INV-{"))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "22.50", Money(decimal.RequireFromString("22.5")))
	assert.Equal(t, "0.01", Money(decimal.RequireFromString("0.005")))
	assert.Equal(t, "-3.46", Money(decimal.RequireFromString("-3.455")))
	assert.Equal(t, "0.00", Money(decimal.Zero))
}

func TestRupees(t *testing.T) {
	assert.Equal(t, "₹295.00", Rupees(decimal.NewFromInt(295)))
	assert.Equal(t, "₹1,000.00", Rupees(decimal.NewFromInt(1000)))
	assert.Equal(t, "₹12,34,567.50", Rupees(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "-₹1,00,000.00", Rupees(decimal.NewFromInt(-100000)))
}
