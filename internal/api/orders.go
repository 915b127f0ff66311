package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/flashsale-storefront/internal/domain/session"
	"github.com/xenking/flashsale-storefront/internal/upstream"
)

// listOrders serves GET /api/orders: the signed-in user's order history,
// proxied from the order service.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := session.FromContext(r.Context())

	orders, err := h.orders.ListByUser(r.Context(), identity.UserID)
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list orders"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, &orders[i])
			}
		})
	})
}

// getOrder serves GET /api/orders/{id}. An order belonging to another user
// is reported as not found rather than forbidden, so IDs cannot be probed.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := session.FromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	switch {
	case errors.Is(err, upstream.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
		return
	case err != nil:
		writeInternalError(w, r, errors.Wrap(err, "get order"))
		return
	}
	if order.User.ID != identity.UserID {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, order)
	})
}

func encodeOrder(e *jx.Encoder, o *upstream.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("orderDate", func(e *jx.Encoder) { e.Str(o.OrderDate.UTC().Format(time.RFC3339)) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Int64(it.Product.ID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Product.Name) })
						e.Field("price", func(e *jx.Encoder) { e.Str(it.Product.Price.StringFixed(2)) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
	})
}
