package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/flashsale-storefront/internal/domain/cart"
	"github.com/xenking/flashsale-storefront/internal/domain/product"
)

// requestCart resolves the session's cart, which the session middleware
// guarantees exists.
func (h *Handler) requestCart(w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	id, ok := h.cartFor(r)
	if !ok {
		// Unreachable behind withSession, but fail closed.
		writeError(w, http.StatusBadRequest, "missing session")
		return nil, false
	}
	return h.carts.Get(id), true
}

// getCart serves GET /api/cart.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.requestCart(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

// addCartItem serves POST /api/cart/items. The quantity defaults to one. The
// requested total for the product is checked against the catalog's advertised
// stock here, at the storefront boundary; the cart itself never enforces
// stock, and the order service remains the final authority at checkout.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.requestCart(w, r)
	if !ok {
		return
	}

	var body struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	if body.ProductID <= 0 || body.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "productId and quantity must be positive")
		return
	}

	p, err := h.catalog.GetByID(r.Context(), body.ProductID)
	switch {
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
		return
	case err != nil:
		writeInternalError(w, r, errors.Wrap(err, "add cart item"))
		return
	}

	requested := body.Quantity
	for _, l := range c.Lines() {
		if l.ProductID == p.ID {
			requested += l.Quantity
			break
		}
	}
	if requested > p.Stock {
		writeError(w, http.StatusConflict, "requested quantity exceeds available stock")
		return
	}

	c.Add(*p, body.Quantity)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

// updateCartItem serves PATCH /api/cart/items/{id}. A quantity of zero
// removes the line.
func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.requestCart(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Quantity *int `json:"quantity"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	if *body.Quantity > 0 {
		p, err := h.catalog.GetByID(r.Context(), id)
		switch {
		case errors.Is(err, product.ErrNotFound):
			// Line may predate a catalog change; fall through on cached data.
		case err != nil:
			writeInternalError(w, r, errors.Wrap(err, "update cart item"))
			return
		case *body.Quantity > p.Stock:
			writeError(w, http.StatusConflict, "requested quantity exceeds available stock")
			return
		}
	}

	c.UpdateQuantity(id, *body.Quantity)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

// removeCartItem serves DELETE /api/cart/items/{id}.
func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.requestCart(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c.Remove(id)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

// clearCart serves DELETE /api/cart.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.requestCart(w, r)
	if !ok {
		return
	}
	c.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// encodeCart writes the cart JSON shape shared by all cart endpoints.
func encodeCart(e *jx.Encoder, c *cart.Cart) {
	lines := c.Lines()
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range lines {
					encodeLine(e, l)
				}
			})
		})
		e.Field("totalItems", func(e *jx.Encoder) { e.Int(c.TotalItems()) })
		e.Field("totalPrice", func(e *jx.Encoder) { e.Str(c.TotalPrice().StringFixed(2)) })
	})
}

func encodeLine(e *jx.Encoder, l cart.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Int64(l.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Product.Name) })
		e.Field("price", func(e *jx.Encoder) { e.Str(l.Product.Price.StringFixed(2)) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("subtotal", func(e *jx.Encoder) { e.Str(l.Subtotal().StringFixed(2)) })
	})
}
