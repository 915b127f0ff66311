// Package api exposes the storefront's REST surface: catalog reads, the
// session cart, checkout, and the order-history proxy for the profile view.
package api

import (
	"context"
	"net/http"

	"github.com/xenking/flashsale-storefront/internal/domain/cart"
	"github.com/xenking/flashsale-storefront/internal/domain/checkout"
	"github.com/xenking/flashsale-storefront/internal/domain/product"
	"github.com/xenking/flashsale-storefront/internal/domain/session"
	"github.com/xenking/flashsale-storefront/internal/upstream"
)

// Catalog provides product reads and the external stock refresh.
type Catalog interface {
	ListPage(ctx context.Context, limit, offset int) ([]product.Product, error)
	GetByID(ctx context.Context, id int64) (*product.Product, error)
	UpdateStock(ctx context.Context, id int64, stock int) (*product.Product, error)
}

// OrderHistory proxies the external order service's read endpoints.
type OrderHistory interface {
	ListByUser(ctx context.Context, userID int64) ([]upstream.Order, error)
	Get(ctx context.Context, id int64) (*upstream.Order, error)
}

// VerifyFunc validates a raw bearer token into an identity.
type VerifyFunc func(token string) (session.Identity, error)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image links in product responses.
	// When empty, links are returned as stored.
	ImageBaseURL string
	// DefaultPageSize is the product page size when ?limit is absent.
	DefaultPageSize int
	// MaxPageSize caps ?limit.
	MaxPageSize int
	// SecureCookies marks the session cookie Secure (HTTPS deployments).
	SecureCookies bool
}

func (c *HandlerConfig) applyDefaults() {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
}

// Handler serves the storefront API, delegating business logic to the
// injected catalog, cart store, checkout service, and order-history client.
type Handler struct {
	cfg      HandlerConfig
	catalog  Catalog
	carts    *cart.Store
	checkout *checkout.Service
	orders   OrderHistory
	verify   VerifyFunc
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(
	cfg HandlerConfig,
	catalog Catalog,
	carts *cart.Store,
	checkoutSvc *checkout.Service,
	orders OrderHistory,
	verify VerifyFunc,
) *Handler {
	cfg.applyDefaults()
	return &Handler{
		cfg:      cfg,
		catalog:  catalog,
		carts:    carts,
		checkout: checkoutSvc,
		orders:   orders,
		verify:   verify,
	}
}

// Routes returns the complete API handler: the route mux wrapped with the
// session-cookie and bearer-auth middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("PUT /api/products/{id}/stock", h.updateProductStock)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeCartItem)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)

	mux.HandleFunc("POST /api/checkout", h.postCheckout)

	mux.HandleFunc("GET /api/orders", h.requireAuth(h.listOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.requireAuth(h.getOrder))
	mux.HandleFunc("GET /api/me", h.requireAuth(h.me))

	return h.withSession(h.withAuth(mux))
}
