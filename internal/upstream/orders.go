// Package upstream holds HTTP clients for the external services the
// storefront depends on.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/flashsale-storefront/internal/domain/checkout"
)

// ErrOrderNotFound is returned when the order service has no such order.
var ErrOrderNotFound = errors.New("order not found")

// Orders is the client for the external flash-sale order service. It is the
// single authority on stock sufficiency at commit time; the storefront never
// second-guesses its answers.
type Orders struct {
	base string
	http *http.Client
}

// NewOrders creates an Orders client for the service at baseURL. The
// transport is instrumented with otelhttp so upstream calls show up as spans.
func NewOrders(baseURL string, opts ...otelhttp.Option) *Orders {
	return &Orders{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport, opts...),
		},
	}
}

var _ checkout.Placer = (*Orders)(nil)

type buyRequest struct {
	UserID   int64     `json:"userId"`
	Products []buyItem `json:"products"`
}

type buyItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Place submits the purchase as one atomic request. Any non-2xx response or
// transport error becomes a *checkout.SubmissionError; a human-readable
// message is extracted from a JSON {message} body when present.
func (o *Orders) Place(ctx context.Context, sub checkout.Submission) error {
	payload := buyRequest{
		UserID:   sub.UserID,
		Products: make([]buyItem, len(sub.Items)),
	}
	for i, it := range sub.Items {
		payload.Products[i] = buyItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &checkout.SubmissionError{Reason: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/flashsale/buy", bytes.NewReader(body))
	if err != nil {
		return &checkout.SubmissionError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return &checkout.SubmissionError{Reason: "order service unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &checkout.SubmissionError{Reason: failureReason(resp)}
	}
	return nil
}

// failureReason pulls a message out of a JSON error body, falling back to the
// HTTP status line.
func failureReason(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err == nil && len(raw) > 0 {
		var body struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &body) == nil && body.Message != "" {
			return body.Message
		}
	}
	return resp.Status
}

// Order is one historical order as reported by the order service.
type Order struct {
	ID        int64       `json:"id"`
	OrderDate time.Time   `json:"orderDate"`
	User      OrderUser   `json:"user"`
	Items     []OrderItem `json:"items"`
}

// OrderUser identifies the order's owner.
type OrderUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// OrderItem is one line of a historical order.
type OrderItem struct {
	ID       int64        `json:"id"`
	Product  OrderProduct `json:"product"`
	Quantity int          `json:"quantity"`
}

// OrderProduct is the product summary embedded in a historical order line.
type OrderProduct struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ListByUser fetches the order history for the given user.
func (o *Orders) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	var out []Order
	if err := o.getJSON(ctx, fmt.Sprintf("%s/orders/user/%d", o.base, userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a single order by ID.
func (o *Orders) Get(ctx context.Context, id int64) (*Order, error) {
	var out Order
	if err := o.getJSON(ctx, fmt.Sprintf("%s/orders/%d", o.base, id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (o *Orders) getJSON(ctx context.Context, url string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "order service")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrOrderNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return errors.Errorf("order service: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
