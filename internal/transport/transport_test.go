package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"savane-boutik/internal/messaging"
	"savane-boutik/internal/middleware"
	"savane-boutik/internal/service"
	"savane-boutik/internal/storage"
	"savane-boutik/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const testJWTSecret = "test-secret-key"

// testEnv is a full storefront wired over miniredis: store, auth, and all
// routes behind the real middleware chain.
type testEnv struct {
	router *chi.Mux
	store  *store.Store
	auth   *service.AuthService
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	kv, err := storage.NewRedisKV(context.Background(), mr.Addr(), "", 0, "")
	if err != nil {
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	logger, _ := zap.NewDevelopment()
	st := store.New(kv, logger)
	if err := st.Hydrate(context.Background()); err != nil {
		t.Fatalf("Failed to hydrate store: %v", err)
	}

	authService := service.NewAuthService(kv, testJWTSecret)
	if _, err := authService.Register(context.Background(), "awa@savane.bf", "secret123", "Savane Boutik", "+22670123456"); err != nil {
		t.Fatalf("Failed to register merchant: %v", err)
	}
	token, _, _, err := authService.Login(context.Background(), "awa@savane.bf", "secret123")
	if err != nil {
		t.Fatalf("Failed to log in merchant: %v", err)
	}

	shop := messaging.Shop{Name: "Savane Boutik", WhatsAppNumber: "+22670123456", Currency: "F CFA"}
	authMiddleware := middleware.AuthMiddleware(testJWTSecret, logger)
	merchantOnly := middleware.RequireMerchant(logger)

	router := chi.NewRouter()
	NewAuthHandler(authService, logger).RegisterRoutes(router, authMiddleware)
	NewProductHandler(st, logger).RegisterRoutes(router, authMiddleware, merchantOnly)
	NewCartHandler(st, authService, shop, logger).RegisterRoutes(router)
	NewOrderHandler(st, logger).RegisterRoutes(router, authMiddleware, merchantOnly)
	NewAbandonedCartHandler(st, authService, shop, logger).RegisterRoutes(router, authMiddleware, merchantOnly)
	NewInsightsHandler(service.NewInsightsService(st), logger).RegisterRoutes(router, authMiddleware, merchantOnly)

	return &testEnv{router: router, store: st, auth: authService, token: token}
}

// do sends a JSON request through the router; authed requests carry the
// merchant's bearer token.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response body: %v (body: %s)", err, w.Body.String())
	}
}

func (e *testEnv) createProduct(t *testing.T, name string, price float64, stock int) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/products", CreateProductRequest{
		Name:  name,
		Price: price,
		Stock: stock,
	}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create product got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, w, &created)
	return created.ID
}
