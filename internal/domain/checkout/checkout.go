// Package checkout turns a session's cart into a single order submission
// against the external order service and reconciles the result.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/flashsale-storefront/internal/domain/cart"
	"github.com/xenking/flashsale-storefront/internal/domain/session"
)

// Closed set of checkout outcomes. Precondition failures are detected locally
// and never reach the network; everything the order service or the transport
// can do wrong collapses into *SubmissionError.
var (
	// ErrEmptyCart is returned when checkout is attempted with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotAuthenticated is returned when no identity is present; anonymous
	// order submission is refused before any network call.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// SubmissionError reports that the order service rejected the submission or
// was unreachable. The cart is guaranteed untouched when it is returned.
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Reason != "" {
		return "order submission failed: " + e.Reason
	}
	return "order submission failed"
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Item is one (product, quantity) pair of a submission.
type Item struct {
	ProductID int64
	Quantity  int
}

// Submission is the atomic purchase request sent to the order service. It is
// built from a cart snapshot plus the acting user and is immutable once sent.
type Submission struct {
	UserID     int64
	Items      []Item
	TotalPrice decimal.Decimal
}

// Placer submits a purchase to the external order service. Implementations
// must make exactly one attempt per call; the flow performs no retries.
type Placer interface {
	Place(ctx context.Context, sub Submission) error
}

// Receipt summarizes a confirmed checkout for the caller.
type Receipt struct {
	UserID      int64
	Items       []Item
	TotalPrice  decimal.Decimal
	SubmittedAt time.Time
}

// Service orchestrates checkout. The identity gate and the order placer are
// injected so the flow is testable without an HTTP stack.
type Service struct {
	gate   session.Gate
	placer Placer
	now    func() time.Time
}

// NewService creates a checkout Service.
func NewService(gate session.Gate, placer Placer) *Service {
	return &Service{gate: gate, placer: placer, now: time.Now}
}

// Checkout submits the cart's current contents as one order.
//
// Preconditions are checked before any network call: the cart must be
// non-empty and an identity must be present. The submission is built from a
// snapshot taken at call time; mutations made while the call is outstanding
// are not part of the payload. On success the snapshot is committed back to
// the cart, so those mid-flight mutations survive. On any failure the cart is
// left exactly as it was and the error describes the outcome.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart) (*Receipt, error) {
	snapshot := c.Lines()
	if len(snapshot) == 0 {
		return nil, ErrEmptyCart
	}

	id, ok := s.gate.Identity(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	items := make([]Item, len(snapshot))
	total := decimal.Zero
	for i, l := range snapshot {
		items[i] = Item{ProductID: l.ProductID, Quantity: l.Quantity}
		total = total.Add(l.Subtotal())
	}
	total = total.Round(2)

	sub := Submission{
		UserID:     id.UserID,
		Items:      items,
		TotalPrice: total,
	}

	// The one network call of the flow. Stock sufficiency is the order
	// service's call at commit time; it is not re-validated locally.
	if err := s.placer.Place(ctx, sub); err != nil {
		var se *SubmissionError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &SubmissionError{Reason: err.Error(), Err: err}
	}

	c.Commit(snapshot)

	return &Receipt{
		UserID:      id.UserID,
		Items:       items,
		TotalPrice:  total,
		SubmittedAt: s.now(),
	}, nil
}
