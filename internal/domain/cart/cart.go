// Package cart holds the per-session shopping cart and its session-keyed
// store. Carts live in volatile memory for the lifetime of a browser session;
// there is no durable backing.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/flashsale-storefront/internal/domain/product"
)

// Line is one product's presence in a cart: a lookup key, a cached copy of
// the product for display and pricing, and a quantity that is always >= 1.
type Line struct {
	ProductID int64
	Product   product.Product
	Quantity  int
}

// Subtotal returns the line price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the ordered collection of lines for one session. All access goes
// through its methods; mutations within a session are serialized by the
// internal mutex, so handler goroutines never interleave mid-update.
//
// None of the mutating operations can fail: invalid quantities are redirected
// to removal rather than stored or rejected.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add inserts a new line for p with the given quantity, or increments the
// existing line's quantity when p is already present. A non-positive quantity
// is a no-op. Stock limits are deliberately not enforced here; that is the
// add-to-cart boundary's concern.
func (c *Cart) Add(p product.Product, quantity int) {
	if quantity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Quantity += quantity
			c.lines[i].Product = p // refresh the cached copy
			return
		}
	}
	c.lines = append(c.lines, Line{ProductID: p.ID, Product: p, Quantity: quantity})
}

// Remove deletes the line for productID. Removing an absent product is a
// no-op, not an error.
func (c *Cart) Remove(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(productID)
}

func (c *Cart) removeLocked(productID int64) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// UpdateQuantity replaces the quantity of the line for productID. A quantity
// of zero or less removes the line instead of storing a non-positive value.
// Updating an absent product is a no-op.
func (c *Cart) UpdateQuantity(productID int64, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		c.removeLocked(productID)
		return
	}
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// TotalItems folds the current lines into the total unit count. Recomputed on
// every call so it can never be stale.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice folds the current lines into the total price.
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Commit reconciles the cart after the given snapshot was successfully
// submitted as an order: every submitted quantity is subtracted from its line,
// and lines that reach zero disappear. When the cart has not been touched
// since the snapshot was taken this is equivalent to Clear; a line added or
// grown while the submission was in flight keeps its surplus.
func (c *Cart) Commit(snapshot []Line) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, submitted := range snapshot {
		for i := range c.lines {
			if c.lines[i].ProductID != submitted.ProductID {
				continue
			}
			c.lines[i].Quantity -= submitted.Quantity
			if c.lines[i].Quantity <= 0 {
				c.lines = append(c.lines[:i], c.lines[i+1:]...)
			}
			break
		}
	}
}
