package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOriginalPrice_NoDiscount(t *testing.T) {
	p := Product{
		Price:         decimal.RequireFromString("19.99"),
		PercentageOff: decimal.Zero,
	}
	assert.True(t, p.Price.Equal(p.OriginalPrice()))
}

func TestOriginalPrice_WithDiscount(t *testing.T) {
	// 25% off a $75.00 sale price restores a $100.00 original price.
	p := Product{
		Price:         decimal.RequireFromString("75.00"),
		PercentageOff: decimal.NewFromInt(25),
	}
	assert.True(t, decimal.RequireFromString("100.00").Equal(p.OriginalPrice()),
		"got %s", p.OriginalPrice())
}

func TestOriginalPrice_Rounding(t *testing.T) {
	p := Product{
		Price:         decimal.RequireFromString("10.00"),
		PercentageOff: decimal.NewFromInt(30),
	}
	// 10 / 0.7 = 14.2857... rounds to 14.29.
	assert.True(t, decimal.RequireFromString("14.29").Equal(p.OriginalPrice()),
		"got %s", p.OriginalPrice())
}

func TestOriginalPrice_FullDiscountDegenerate(t *testing.T) {
	// 100% off would divide by zero; fall back to the sale price.
	p := Product{
		Price:         decimal.RequireFromString("5.00"),
		PercentageOff: decimal.NewFromInt(100),
	}
	assert.True(t, p.Price.Equal(p.OriginalPrice()))
}

func TestSoldOut(t *testing.T) {
	assert.True(t, Product{Stock: 0}.SoldOut())
	assert.False(t, Product{Stock: 3}.SoldOut())
}
