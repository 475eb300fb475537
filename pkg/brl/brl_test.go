package brl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"1.234,56", "1234.56", true},
		{"R$ 5,91", "5.91", true},
		{"-2327,00", "-2327", true},
		{"R$ -50,00", "-50", true},
		{"120,00", "120", true},
		{"1,234,56", "1234.56", true},
		{"42", "42", true},
		{"R$", "0", false},
		{"", "0", false},
		{"valor", "0", false},
		{"5,91-", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseAmount(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("15/03/2024")
	require.True(t, ok)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 15, d.Day())
	assert.Equal(t, 12, d.Hour())

	for _, raw := range []string{"31/02/2024", "2024-03-15", "15/3/2024", "aa/bb/cccc", ""} {
		_, ok := ParseDate(raw)
		assert.False(t, ok, raw)
	}
}

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"5/3/24", "2024-03-05"},
		{"15/03/2024", "2024-03-15"},
		{"2025-06-27", "2025-06-27"},
		{"2025-06-27T10:00:00", "2025-06-27"},
	}
	for _, tt := range tests {
		got, ok := ParseFlexibleDate(tt.raw)
		require.True(t, ok, tt.raw)
		assert.Equal(t, tt.want, got.Format("2006-01-02"))
		assert.Equal(t, 12, got.Hour())
	}

	_, ok := ParseFlexibleDate("ontem")
	assert.False(t, ok)
}

func TestISODate(t *testing.T) {
	got, ok := ISODate("01/12/2023")
	require.True(t, ok)
	assert.Equal(t, "2023-12-01", got)
}

func TestToCents(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"1.234,56", 123456},
		{"5,91", 591},
		{"0,10", 10},
		{"100", 10000},
		{"1.000.000,00", 100000000},
		{"12,50,", 1250},
		{"89,90.", 8990},
		{"7,5,1", 750},
	}
	for _, tt := range tests {
		got, ok := ToCents(tt.raw)
		require.True(t, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, ok := ToCents("abc")
	assert.False(t, ok)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", FormatCents(123456))
	assert.Equal(t, "-R$ 5,91", FormatCents(-591))
	assert.Equal(t, "R$ 50,00", Format(decimal.NewFromInt(50)))
}
