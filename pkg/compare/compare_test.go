package compare

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDistanceAndExact(t *testing.T) {
	assert.True(t, Exact(Distance(d("150.00"), d("-150.00"))))
	assert.False(t, Exact(Distance(d("150.01"), d("-150.00"))))
	assert.True(t, Exact(Distance(d("150.004"), d("150"))))
	assert.Equal(t, "10", Distance(d("40"), d("-50")).String())
}

func TestAmountContains(t *testing.T) {
	assert.True(t, AmountContains(d("-5.91"), "5,9"))
	assert.True(t, AmountContains(d("-150"), "150.00"))
	assert.True(t, AmountContains(d("12.3"), ""))
	assert.False(t, AmountContains(d("12.30"), "-12"))
	assert.False(t, AmountContains(d("12.30"), "99"))
}

func TestTextContains(t *testing.T) {
	assert.True(t, TextContains("posto", "PIX", "Posto Shell"))
	assert.True(t, TextContains("", "x"))
	assert.False(t, TextContains("uber", "PIX", ""))
}
