package checkout

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/flashsale-storefront/internal/domain/cart"
	"github.com/xenking/flashsale-storefront/internal/domain/product"
	"github.com/xenking/flashsale-storefront/internal/domain/session"
)

// --- Mock implementations ---

type mockGate struct {
	id session.Identity
	ok bool
}

func (m *mockGate) Identity(_ context.Context) (session.Identity, bool) {
	return m.id, m.ok
}

type mockPlacer struct {
	calls int
	last  Submission
	err   error
}

func (m *mockPlacer) Place(_ context.Context, sub Submission) error {
	m.calls++
	m.last = sub
	return m.err
}

// --- Helpers ---

func authedGate(userID int64) *mockGate {
	return &mockGate{id: session.Identity{UserID: userID, Username: "alice"}, ok: true}
}

func newTestProduct(id int64, price string) product.Product {
	return product.Product{
		ID:    id,
		Name:  "Product",
		Price: decimal.RequireFromString(price),
	}
}

// --- Tests ---

func TestCheckout_EmptyCart(t *testing.T) {
	placer := &mockPlacer{}
	svc := NewService(authedGate(1), placer)

	_, err := svc.Checkout(context.Background(), cart.New())

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, placer.calls, "empty cart must short-circuit before any network call")
}

func TestCheckout_NotAuthenticated(t *testing.T) {
	placer := &mockPlacer{}
	svc := NewService(&mockGate{}, placer)

	c := cart.New()
	c.Add(newTestProduct(1, "10.00"), 1)

	_, err := svc.Checkout(context.Background(), c)

	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, placer.calls, "anonymous checkout must be refused before any network call")
	assert.Equal(t, 1, c.TotalItems(), "cart untouched on precondition failure")
}

func TestCheckout_Success(t *testing.T) {
	placer := &mockPlacer{}
	svc := NewService(authedGate(42), placer)

	c := cart.New()
	c.Add(newTestProduct(1, "10.00"), 2)
	c.Add(newTestProduct(2, "25.00"), 1)

	receipt, err := svc.Checkout(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 1, placer.calls, "exactly one submission per attempt")
	assert.Equal(t, int64(42), placer.last.UserID)
	assert.Equal(t, []Item{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, placer.last.Items)
	assert.True(t, decimal.RequireFromString("45.00").Equal(placer.last.TotalPrice),
		"got %s", placer.last.TotalPrice)

	assert.Equal(t, 0, c.TotalItems(), "cart is empty after confirmed submission")
	assert.True(t, decimal.RequireFromString("45.00").Equal(receipt.TotalPrice))
	assert.False(t, receipt.SubmittedAt.IsZero())
}

func TestCheckout_SubmissionFailureLeavesCartIntact(t *testing.T) {
	placer := &mockPlacer{err: errors.New("stock exhausted")}
	svc := NewService(authedGate(42), placer)

	c := cart.New()
	c.Add(newTestProduct(1, "10.00"), 2)
	c.Add(newTestProduct(2, "25.00"), 1)
	before := c.Lines()

	_, err := svc.Checkout(context.Background(), c)

	var se *SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "stock exhausted")

	assert.Equal(t, before, c.Lines(), "cart must contain exactly the pre-checkout lines")
}

func TestCheckout_WrappedSubmissionErrorPassedThrough(t *testing.T) {
	placer := &mockPlacer{err: &SubmissionError{Reason: "service unavailable"}}
	svc := NewService(authedGate(1), placer)

	c := cart.New()
	c.Add(newTestProduct(1, "10.00"), 1)

	_, err := svc.Checkout(context.Background(), c)

	var se *SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "service unavailable", se.Reason)
}

func TestCheckout_MidFlightAdditionSurvivesSuccess(t *testing.T) {
	c := cart.New()
	c.Add(newTestProduct(1, "10.00"), 2)

	// A placer that mutates the cart while the submission is outstanding,
	// standing in for a user edit racing the network call.
	placer := &mutatingPlacer{cart: c, add: newTestProduct(3, "5.00")}
	svc := NewService(authedGate(1), placer)

	_, err := svc.Checkout(context.Background(), c)
	require.NoError(t, err)

	lines := c.Lines()
	require.Len(t, lines, 1, "only the mid-flight addition remains")
	assert.Equal(t, int64(3), lines[0].ProductID)
	assert.False(t, placer.sawAddition, "mid-flight addition must not leak into the submitted payload")
}

type mutatingPlacer struct {
	cart        *cart.Cart
	add         product.Product
	sawAddition bool
}

func (m *mutatingPlacer) Place(_ context.Context, sub Submission) error {
	for _, it := range sub.Items {
		if it.ProductID == m.add.ID {
			m.sawAddition = true
		}
	}
	m.cart.Add(m.add, 1)
	return nil
}
