package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	store  *store.Store
}

func newTestServer(t *testing.T, limits Limits) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	products := service.NewProductService(s)
	pricing := service.NewPricingService(s)
	svc := Services{
		Products:  products,
		Blog:      service.NewBlogService(s),
		Pricing:   pricing,
		Users:     service.NewUserService(s, products),
		Carts:     service.NewCartService(s, products),
		Wishlists: service.NewWishlistService(s, products),
		Checkout:  service.NewCheckoutService(s, pricing, products, broker.NewEventPublisher(broker.NewLocalBus()), nil),
		Auth: service.NewAuthService(s, config.AuthConfig{
			JWTSecret:       "test-secret",
			SessionTTL:      time.Hour,
			AdminSessionTTL: time.Hour,
			PinChallengeTTL: time.Minute,
		}),
		Assistant: service.NewAssistantService(nil, products),
	}

	router := gin.New()
	NewHandler(svc, limits).SetupRoutes(router)
	return &testServer{router: router, store: s}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func (ts *testServer) register(t *testing.T, email string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Asha", "email": email, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result service.AuthResult
	decode(t, w, &result)
	return result.Token
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/admin/setup", "", gin.H{
		"email": "admin@earthpuran.test", "password": "adminpass1", "pin": "4321",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/v1/admin/login", "", gin.H{
		"email": "admin@earthpuran.test", "password": "adminpass1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var challenge service.AuthResult
	decode(t, w, &challenge)

	w = ts.do(t, http.MethodPost, "/api/v1/admin/verify-pin", "", gin.H{
		"challenge": challenge.Token, "pin": "4321",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session service.AuthResult
	decode(t, w, &session)
	return session.Token
}

func (ts *testServer) addProduct(t *testing.T, p models.Product) {
	t.Helper()
	_, err := ts.store.SaveProduct(context.Background(), p)
	require.NoError(t, err)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, Limits{})

	w := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductRoutes(t *testing.T) {
	ts := newTestServer(t, Limits{})
	ts.addProduct(t, models.Product{ID: "p1", Name: "Neem Face Wash", Category: "Skincare", Price: 299, Stock: 5})
	ts.addProduct(t, models.Product{ID: "p2", Name: "Kajal", Category: "Makeup", Price: 199, Stock: 5})

	w := ts.do(t, http.MethodGet, "/api/v1/products?category=skincare", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []models.Product
	decode(t, w, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)

	w = ts.do(t, http.MethodGet, "/api/v1/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAccountRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t, Limits{})

	w := ts.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := ts.register(t, "Asha@Example.com")
	w = ts.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var account models.UserData
	decode(t, w, &account)
	assert.Equal(t, "asha@example.com", account.Profile.Email)
	assert.Empty(t, account.Profile.PasswordHash)
}

func TestCheckoutFlow(t *testing.T) {
	ts := newTestServer(t, Limits{})
	ts.addProduct(t, models.Product{ID: "p1", Name: "Neem Face Wash", Category: "Skincare", Price: 100, Stock: 5})
	token := ts.register(t, "asha@example.com")

	w := ts.do(t, http.MethodPost, "/api/v1/me/cart/items", token, gin.H{"productId": "p1", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cart service.CartView
	decode(t, w, &cart)
	assert.Equal(t, 2, cart.ItemCount)

	w = ts.do(t, http.MethodPost, "/api/v1/me/orders", token, gin.H{
		"shippingDetails": gin.H{
			"name": "Asha", "email": "asha@example.com", "phone": "9999999999",
			"address": "1 MG Road", "city": "Pune", "zip": "411001",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	decode(t, w, &order)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	require.Len(t, order.Items, 1)

	w = ts.do(t, http.MethodGet, "/api/v1/me/cart", token, nil)
	decode(t, w, &cart)
	assert.Empty(t, cart.Items)

	w = ts.do(t, http.MethodGet, "/api/v1/me/orders", token, nil)
	var orders []models.Order
	decode(t, w, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestEmptyCartCheckoutRejected(t *testing.T) {
	ts := newTestServer(t, Limits{})
	token := ts.register(t, "asha@example.com")

	w := ts.do(t, http.MethodPost, "/api/v1/me/orders", token, gin.H{
		"shippingDetails": gin.H{
			"name": "Asha", "email": "asha@example.com", "phone": "9999999999",
			"address": "1 MG Road", "city": "Pune", "zip": "411001",
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t, Limits{})
	userToken := ts.register(t, "asha@example.com")

	w := ts.do(t, http.MethodGet, "/api/v1/admin/orders", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	token := ts.adminToken(t)

	w = ts.do(t, http.MethodPut, "/api/v1/admin/tax", token, gin.H{"rate": 12})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool           `json:"success"`
		Data    models.TaxRate `json:"data"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 12.0, resp.Data.Rate)

	w = ts.do(t, http.MethodPut, "/api/v1/admin/tax", token, gin.H{"rate": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/admin/setup", "", gin.H{
		"email": "other@earthpuran.test", "password": "adminpass2", "pin": "1234",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPinChallengeCannotReachAdminRoutes(t *testing.T) {
	ts := newTestServer(t, Limits{})
	ts.adminToken(t)

	w := ts.do(t, http.MethodPost, "/api/v1/admin/login", "", gin.H{
		"email": "admin@earthpuran.test", "password": "adminpass1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var challenge service.AuthResult
	decode(t, w, &challenge)

	w = ts.do(t, http.MethodGet, "/api/v1/admin/orders", challenge.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthRateLimit(t *testing.T) {
	ts := newTestServer(t, Limits{AuthPerMinute: 1})

	body := gin.H{"email": "nobody@example.com", "password": "whatever1"}
	w := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAssistantUnavailable(t *testing.T) {
	ts := newTestServer(t, Limits{})

	w := ts.do(t, http.MethodPost, "/api/v1/assistant/chat", "", gin.H{"question": "Which serum suits oily skin?"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSalesReportWithoutLedger(t *testing.T) {
	ts := newTestServer(t, Limits{})
	token := ts.adminToken(t)

	w := ts.do(t, http.MethodGet, "/api/v1/admin/sales", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
