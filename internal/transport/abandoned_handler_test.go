package transport

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"savane-boutik/internal/domain"

	"github.com/google/uuid"
)

func (e *testEnv) seedAbandonedCart(t *testing.T, total float64) domain.AbandonedCart {
	t.Helper()

	merchant, err := e.auth.Merchant(context.Background())
	if err != nil {
		t.Fatalf("Failed to load merchant: %v", err)
	}

	productID := uuid.New()
	record := domain.AbandonedCart{
		ID:        uuid.New(),
		Items:     []domain.CartItem{{ProductID: productID, Quantity: 2}},
		Timestamp: time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC),
		Total:     total,
		ProductDetails: []domain.ProductDetail{
			{ID: productID, Name: "Beurre de karité", Price: total / 2},
		},
	}
	if err := e.store.AppendAbandonedCart(context.Background(), merchant.ID, record); err != nil {
		t.Fatalf("Failed to append abandoned cart: %v", err)
	}
	return record
}

func TestAbandonedCartListRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/abandoned-carts", nil, false); w.Code != http.StatusUnauthorized {
		t.Errorf("Unauthenticated list got %d, want 401", w.Code)
	}
}

func TestAbandonedCartListAndClear(t *testing.T) {
	env := newTestEnv(t)
	record := env.seedAbandonedCart(t, 2598)

	w := env.do(t, http.MethodGet, "/api/abandoned-carts", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("List got %d: %s", w.Code, w.Body.String())
	}
	var carts []domain.AbandonedCart
	decodeBody(t, w, &carts)
	if len(carts) != 1 || carts[0].ID != record.ID {
		t.Fatalf("List = %+v, want the seeded record", carts)
	}

	if w := env.do(t, http.MethodDelete, "/api/abandoned-carts", nil, true); w.Code != http.StatusNoContent {
		t.Fatalf("Clear got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/abandoned-carts", nil, true)
	decodeBody(t, w, &carts)
	if len(carts) != 0 {
		t.Errorf("List after clear = %+v, want empty", carts)
	}
}

func TestMarkRecovered(t *testing.T) {
	env := newTestEnv(t)
	record := env.seedAbandonedCart(t, 2598)

	w := env.do(t, http.MethodPost, "/api/abandoned-carts/"+record.ID.String()+"/recovered", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("MarkRecovered got %d: %s", w.Code, w.Body.String())
	}

	var carts []domain.AbandonedCart
	list := env.do(t, http.MethodGet, "/api/abandoned-carts", nil, true)
	decodeBody(t, list, &carts)
	if len(carts) != 1 || !carts[0].IsRecovered {
		t.Errorf("Record not recovered: %+v", carts)
	}

	w = env.do(t, http.MethodPost, "/api/abandoned-carts/"+uuid.New().String()+"/recovered", nil, true)
	if w.Code != http.StatusNotFound {
		t.Errorf("MarkRecovered on unknown cart got %d, want 404", w.Code)
	}
}

func TestRecoveryMessageEndpoint(t *testing.T) {
	env := newTestEnv(t)
	record := env.seedAbandonedCart(t, 2598)

	path := "/api/abandoned-carts/" + record.ID.String() + "/recovery-message"
	w := env.do(t, http.MethodGet, path, nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("RecoveryMessage got %d: %s", w.Code, w.Body.String())
	}

	var response RecoveryMessageResponse
	decodeBody(t, w, &response)
	if !strings.Contains(response.Message, "Beurre de karité") || !strings.Contains(response.Message, "2 598 F CFA") {
		t.Errorf("Message missing snapshot content:\n%s", response.Message)
	}
	if !strings.HasPrefix(response.WhatsAppLink, "https://wa.me/") {
		t.Errorf("WhatsAppLink = %q", response.WhatsAppLink)
	}
	if strings.Contains(response.Message, "code") {
		t.Errorf("Promo present without query parameters:\n%s", response.Message)
	}

	// With a promo attached.
	w = env.do(t, http.MethodGet, path+"?promo_code=RETOUR10&discount_percent=10", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("RecoveryMessage with promo got %d", w.Code)
	}
	decodeBody(t, w, &response)
	if !strings.Contains(response.Message, "RETOUR10") || !strings.Contains(response.Message, "-10%") {
		t.Errorf("Promo missing:\n%s", response.Message)
	}

	w = env.do(t, http.MethodGet, "/api/abandoned-carts/"+uuid.New().String()+"/recovery-message", nil, true)
	if w.Code != http.StatusNotFound {
		t.Errorf("Unknown cart got %d, want 404", w.Code)
	}
}
