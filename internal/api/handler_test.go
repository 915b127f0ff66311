package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/flashsale-storefront/internal/domain/cart"
	"github.com/xenking/flashsale-storefront/internal/domain/checkout"
	"github.com/xenking/flashsale-storefront/internal/domain/product"
	"github.com/xenking/flashsale-storefront/internal/domain/session"
	"github.com/xenking/flashsale-storefront/internal/upstream"
)

// --- Mock implementations ---

type mockCatalog struct {
	byID    map[int64]*product.Product
	listErr error
}

func (m *mockCatalog) ListPage(_ context.Context, limit, offset int) ([]product.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	all := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		all = append(all, *p)
	}
	if offset >= len(all) {
		return nil, nil
	}
	if end := offset + limit; end < len(all) {
		all = all[offset:end]
	} else {
		all = all[offset:]
	}
	return all, nil
}

func (m *mockCatalog) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalog) UpdateStock(_ context.Context, id int64, stock int) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p.Stock = stock
	return p, nil
}

type mockOrders struct {
	orders map[int64]*upstream.Order
}

func (m *mockOrders) ListByUser(_ context.Context, userID int64) ([]upstream.Order, error) {
	var out []upstream.Order
	for _, o := range m.orders {
		if o.User.ID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrders) Get(_ context.Context, id int64) (*upstream.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, upstream.ErrOrderNotFound
	}
	return o, nil
}

type mockPlacer struct {
	calls int
	err   error
	last  checkout.Submission
}

func (m *mockPlacer) Place(_ context.Context, sub checkout.Submission) error {
	m.calls++
	m.last = sub
	return m.err
}

const testToken = "valid-token"

func testVerify(token string) (session.Identity, error) {
	if token != testToken {
		return session.Identity{}, session.ErrInvalidToken
	}
	return session.Identity{UserID: 7, Username: "alice"}, nil
}

func testProduct(id int64, price string, stock int) *product.Product {
	return &product.Product{
		ID:            id,
		Name:          "Waffle",
		Description:   "with berries",
		Price:         decimal.RequireFromString(price),
		PercentageOff: decimal.NewFromInt(10),
		Stock:         stock,
		TotalStock:    stock,
		ImageLink:     "images/waffle.png",
	}
}

type testEnv struct {
	handler http.Handler
	catalog *mockCatalog
	placer  *mockPlacer
	orders  *mockOrders
	carts   *cart.Store
}

func newTestEnv() *testEnv {
	catalog := &mockCatalog{byID: map[int64]*product.Product{
		1: testProduct(1, "9.99", 5),
		2: testProduct(2, "2.50", 0),
	}}
	placer := &mockPlacer{}
	orders := &mockOrders{orders: map[int64]*upstream.Order{}}
	carts := cart.NewStore(time.Hour)
	svc := checkout.NewService(session.ContextGate{}, placer)

	h := NewHandler(HandlerConfig{ImageBaseURL: "https://cdn.example.com"}, catalog, carts, svc, orders, testVerify)
	return &testEnv{
		handler: h.Routes(),
		catalog: catalog,
		placer:  placer,
		orders:  orders,
		carts:   carts,
	}
}

// do performs a request carrying the given session cookie (if any) and
// returns the response along with the session cookie it should reuse.
func (env *testEnv) do(t *testing.T, method, target, body, sessionID, token string) (*httptest.ResponseRecorder, string) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionID})
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	next := sessionID
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			next = c.Value
		}
	}
	return rec, next
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func TestSessionCookieIssued(t *testing.T) {
	env := newTestEnv()

	rec, sid := env.do(t, http.MethodGet, "/api/cart", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, sid)

	// A second request with the cookie does not mint a new one.
	rec2, _ := env.do(t, http.MethodGet, "/api/cart", "", sid, "")
	require.Equal(t, http.StatusOK, rec2.Code)
	for _, c := range rec2.Result().Cookies() {
		assert.NotEqual(t, sessionCookie, c.Name)
	}
}

func TestListProducts(t *testing.T) {
	env := newTestEnv()

	rec, _ := env.do(t, http.MethodGet, "/api/products", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Page     int `json:"page"`
		Limit    int `json:"limit"`
		Products []struct {
			ID        int64  `json:"id"`
			Price     string `json:"price"`
			SoldOut   bool   `json:"soldOut"`
			ImageLink string `json:"imageLink"`
		} `json:"products"`
	}
	decode(t, rec, &body)

	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 20, body.Limit)
	require.Len(t, body.Products, 2)
	for _, p := range body.Products {
		assert.True(t, strings.HasPrefix(p.ImageLink, "https://cdn.example.com/"))
		if p.ID == 2 {
			assert.True(t, p.SoldOut)
		}
	}
}

func TestGetProductNotFound(t *testing.T) {
	env := newTestEnv()

	rec, _ := env.do(t, http.MethodGet, "/api/products/404", "", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddCartItem(t *testing.T) {
	env := newTestEnv()

	rec, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":1,"quantity":2}`, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []struct {
			ProductID int64  `json:"productId"`
			Quantity  int    `json:"quantity"`
			Subtotal  string `json:"subtotal"`
		} `json:"items"`
		TotalItems int    `json:"totalItems"`
		TotalPrice string `json:"totalPrice"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, int64(1), body.Items[0].ProductID)
	assert.Equal(t, 2, body.Items[0].Quantity)
	assert.Equal(t, "19.98", body.Items[0].Subtotal)
	assert.Equal(t, 2, body.TotalItems)
	assert.Equal(t, "19.98", body.TotalPrice)

	// Same product again merges into the existing line.
	rec2, _ := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":1,"quantity":3}`, sid, "")
	require.Equal(t, http.StatusOK, rec2.Code)
	decode(t, rec2, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, 5, body.Items[0].Quantity)
}

func TestAddCartItemUnknownProduct(t *testing.T) {
	env := newTestEnv()

	rec, _ := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":99}`, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddCartItemExceedsStock(t *testing.T) {
	env := newTestEnv()

	rec, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":1,"quantity":4}`, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// 4 in cart + 2 requested > 5 in stock.
	rec2, _ := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":1,"quantity":2}`, sid, "")
	assert.Equal(t, http.StatusConflict, rec2.Code)

	// Sold-out product is rejected immediately.
	rec3, _ := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":2}`, sid, "")
	assert.Equal(t, http.StatusConflict, rec3.Code)
}

func TestUpdateCartItemQuantity(t *testing.T) {
	env := newTestEnv()

	_, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":1,"quantity":2}`, "", "")

	rec, _ := env.do(t, http.MethodPatch, "/api/cart/items/1", `{"quantity":5}`, sid, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TotalItems int `json:"totalItems"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 5, body.TotalItems)

	// A quantity beyond the advertised stock is rejected.
	recOver, _ := env.do(t, http.MethodPatch, "/api/cart/items/1", `{"quantity":6}`, sid, "")
	assert.Equal(t, http.StatusConflict, recOver.Code)

	// Zero quantity removes the line.
	rec2, _ := env.do(t, http.MethodPatch, "/api/cart/items/1", `{"quantity":0}`, sid, "")
	require.Equal(t, http.StatusOK, rec2.Code)
	decode(t, rec2, &body)
	assert.Equal(t, 0, body.TotalItems)
}

func TestRemoveAndClearCart(t *testing.T) {
	env := newTestEnv()

	_, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":1,"quantity":2}`, "", "")

	rec, _ := env.do(t, http.MethodDelete, "/api/cart/items/1", "", sid, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Removing an absent line is still a 200, not an error.
	rec2, _ := env.do(t, http.MethodDelete, "/api/cart/items/1", "", sid, "")
	assert.Equal(t, http.StatusOK, rec2.Code)

	_, _ = env.do(t, http.MethodPost, "/api/cart/items", `{"productId":1}`, sid, "")
	rec3, _ := env.do(t, http.MethodDelete, "/api/cart", "", sid, "")
	assert.Equal(t, http.StatusNoContent, rec3.Code)

	rec4, _ := env.do(t, http.MethodGet, "/api/cart", "", sid, "")
	var body struct {
		TotalItems int `json:"totalItems"`
	}
	decode(t, rec4, &body)
	assert.Equal(t, 0, body.TotalItems)
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := newTestEnv()

	rec, _ := env.do(t, http.MethodPost, "/api/checkout", "", "", testToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.placer.calls)
}

func TestCheckoutUnauthenticated(t *testing.T) {
	env := newTestEnv()

	_, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":1,"quantity":2}`, "", "")

	rec, _ := env.do(t, http.MethodPost, "/api/checkout", "", sid, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, env.placer.calls)

	// Cart is untouched.
	rec2, _ := env.do(t, http.MethodGet, "/api/cart", "", sid, "")
	var body struct {
		TotalItems int `json:"totalItems"`
	}
	decode(t, rec2, &body)
	assert.Equal(t, 2, body.TotalItems)
}

func TestCheckoutSuccess(t *testing.T) {
	env := newTestEnv()

	_, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":1,"quantity":2}`, "", "")

	rec, _ := env.do(t, http.MethodPost, "/api/checkout", "", sid, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, env.placer.calls)
	assert.Equal(t, int64(7), env.placer.last.UserID)

	var body struct {
		UserID     int64  `json:"userId"`
		TotalPrice string `json:"totalPrice"`
	}
	decode(t, rec, &body)
	assert.Equal(t, int64(7), body.UserID)
	assert.Equal(t, "19.98", body.TotalPrice)

	// The cart is empty afterwards.
	rec2, _ := env.do(t, http.MethodGet, "/api/cart", "", sid, "")
	var c struct {
		TotalItems int `json:"totalItems"`
	}
	decode(t, rec2, &c)
	assert.Equal(t, 0, c.TotalItems)
}

func TestCheckoutUpstreamRejection(t *testing.T) {
	env := newTestEnv()
	env.placer.err = &checkout.SubmissionError{Reason: "product 1 is out of stock"}

	_, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":1,"quantity":2}`, "", "")

	rec, _ := env.do(t, http.MethodPost, "/api/checkout", "", sid, testToken)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "out of stock")

	// Cart survives the failure.
	rec2, _ := env.do(t, http.MethodGet, "/api/cart", "", sid, "")
	var body struct {
		TotalItems int `json:"totalItems"`
	}
	decode(t, rec2, &body)
	assert.Equal(t, 2, body.TotalItems)
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv()

	rec, _ := env.do(t, http.MethodGet, "/api/me", "", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec2, _ := env.do(t, http.MethodGet, "/api/me", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)

	rec3, _ := env.do(t, http.MethodGet, "/api/me", "", "", testToken)
	require.Equal(t, http.StatusOK, rec3.Code)

	var body struct {
		UserID   int64  `json:"userId"`
		Username string `json:"username"`
	}
	decode(t, rec3, &body)
	assert.Equal(t, int64(7), body.UserID)
	assert.Equal(t, "alice", body.Username)
}

func TestOrderOwnership(t *testing.T) {
	env := newTestEnv()
	env.orders.orders[10] = &upstream.Order{
		ID:        10,
		OrderDate: time.Now(),
		User:      upstream.OrderUser{ID: 7, Username: "alice"},
	}
	env.orders.orders[11] = &upstream.Order{
		ID:        11,
		OrderDate: time.Now(),
		User:      upstream.OrderUser{ID: 8, Username: "bob"},
	}

	rec, _ := env.do(t, http.MethodGet, "/api/orders/10", "", "", testToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Someone else's order reads as not found.
	rec2, _ := env.do(t, http.MethodGet, "/api/orders/11", "", "", testToken)
	assert.Equal(t, http.StatusNotFound, rec2.Code)

	rec3, _ := env.do(t, http.MethodGet, "/api/orders", "", "", testToken)
	require.Equal(t, http.StatusOK, rec3.Code)

	var list []struct {
		ID int64 `json:"id"`
	}
	decode(t, rec3, &list)
	require.Len(t, list, 1)
	assert.Equal(t, int64(10), list[0].ID)
}

func TestUpdateProductStock(t *testing.T) {
	env := newTestEnv()

	rec, _ := env.do(t, http.MethodPut, "/api/products/1/stock", `{"stock":0}`, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stock   int  `json:"stock"`
		SoldOut bool `json:"soldOut"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 0, body.Stock)
	assert.True(t, body.SoldOut)

	rec2, _ := env.do(t, http.MethodPut, "/api/products/1/stock", `{"stock":-1}`, "", "")
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}
