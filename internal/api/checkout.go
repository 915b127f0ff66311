package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/flashsale-storefront/internal/domain/checkout"
)

// postCheckout serves POST /api/checkout: it submits the session's cart as
// one order and reports the outcome. Precondition failures map to 4xx and
// never touch the order service; upstream rejections surface as 502 with the
// service's reason.
func (h *Handler) postCheckout(w http.ResponseWriter, r *http.Request) {
	c, ok := h.requestCart(w, r)
	if !ok {
		return
	}

	receipt, err := h.checkout.Checkout(r.Context(), c)
	if err != nil {
		var se *checkout.SubmissionError
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			writeError(w, http.StatusBadRequest, "cart is empty")
		case errors.Is(err, checkout.ErrNotAuthenticated):
			writeError(w, http.StatusUnauthorized, "sign in to check out")
		case errors.As(err, &se):
			writeError(w, http.StatusBadGateway, se.Error())
		default:
			writeInternalError(w, r, errors.Wrap(err, "checkout"))
		}
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("userId", func(e *jx.Encoder) { e.Int64(receipt.UserID) })
			e.Field("totalPrice", func(e *jx.Encoder) { e.Str(receipt.TotalPrice.StringFixed(2)) })
			e.Field("submittedAt", func(e *jx.Encoder) { e.Str(receipt.SubmittedAt.UTC().Format(time.RFC3339)) })
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, it := range receipt.Items {
						e.Obj(func(e *jx.Encoder) {
							e.Field("productId", func(e *jx.Encoder) { e.Int64(it.ProductID) })
							e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						})
					}
				})
			})
		})
	})
}
