package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a flash-sale catalog item. Price is the current sale
// price; PercentageOff (0-100) records the discount already applied to it.
// Stock is the remaining sellable quantity and may be refreshed externally
// while a session is live; TotalStock is the initial allocation and never
// drops below Stock.
type Product struct {
	ID            int64
	Name          string
	Description   string
	Price         decimal.Decimal
	PercentageOff decimal.Decimal
	Stock         int
	TotalStock    int
	ImageLink     string
}

// OriginalPrice derives the pre-discount price from the sale price and the
// discount percentage, rounded to 2 decimal places. Without a discount the
// original price equals the sale price, so Price <= OriginalPrice always holds.
func (p Product) OriginalPrice() decimal.Decimal {
	if p.PercentageOff.IsZero() {
		return p.Price
	}
	factor := decimal.NewFromInt(1).Sub(p.PercentageOff.Div(decimal.NewFromInt(100)))
	if factor.IsZero() || factor.IsNegative() {
		return p.Price
	}
	return p.Price.Div(factor).Round(2)
}

// SoldOut reports whether the product has no remaining stock.
func (p Product) SoldOut() bool {
	return p.Stock <= 0
}

// Repository defines catalog operations backed by durable storage.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListPage(ctx context.Context, limit, offset int) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	UpdateStock(ctx context.Context, id int64, stock int) (*Product, error)
}
