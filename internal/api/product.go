package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/flashsale-storefront/internal/domain/product"
)

// listProducts serves GET /api/products with ?page and ?limit pagination.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", h.cfg.DefaultPageSize)
	if limit < 1 {
		limit = h.cfg.DefaultPageSize
	}
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}

	products, err := h.catalog.ListPage(r.Context(), limit, (page-1)*limit)
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list products"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("page", func(e *jx.Encoder) { e.Int(page) })
			e.Field("limit", func(e *jx.Encoder) { e.Int(limit) })
			e.Field("products", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range products {
						h.encodeProduct(e, &products[i])
					}
				})
			})
		})
	})
}

// getProduct serves GET /api/products/{id}.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.catalog.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case err != nil:
		writeInternalError(w, r, errors.Wrap(err, "get product"))
	default:
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
			h.encodeProduct(e, p)
		})
	}
}

// updateProductStock serves PUT /api/products/{id}/stock. It applies stock
// figures pushed by the inventory sync job.
func (h *Handler) updateProductStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Stock *int `json:"stock"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Stock == nil || *body.Stock < 0 {
		writeError(w, http.StatusBadRequest, "stock must be a non-negative integer")
		return
	}

	p, err := h.catalog.UpdateStock(r.Context(), id, *body.Stock)
	switch {
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case err != nil:
		writeInternalError(w, r, errors.Wrap(err, "update stock"))
	default:
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
			h.encodeProduct(e, p)
		})
	}
}

// encodeProduct writes the product JSON shape shared by list and get.
func (h *Handler) encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("price", func(e *jx.Encoder) { e.Str(p.Price.StringFixed(2)) })
		e.Field("originalPrice", func(e *jx.Encoder) { e.Str(p.OriginalPrice().StringFixed(2)) })
		e.Field("percentageOff", func(e *jx.Encoder) { e.Str(p.PercentageOff.String()) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
		e.Field("totalStock", func(e *jx.Encoder) { e.Int(p.TotalStock) })
		e.Field("soldOut", func(e *jx.Encoder) { e.Bool(p.SoldOut()) })
		e.Field("imageLink", func(e *jx.Encoder) { e.Str(h.imageURL(p.ImageLink)) })
	})
}

// imageURL resolves relative image links against the configured CDN base.
func (h *Handler) imageURL(link string) string {
	if link == "" || h.cfg.ImageBaseURL == "" {
		return link
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return strings.TrimSuffix(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimPrefix(link, "/")
}

// pathID parses the {id} path segment, writing a 400 on garbage.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
