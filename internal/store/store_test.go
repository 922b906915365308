package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

func newTestKV(t *testing.T) storage.KV {
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

	return kv
}

func newTestStore(t *testing.T) (*Store, storage.KV) {
	t.Helper()

	kv := newTestKV(t)
	logger, _ := zap.NewDevelopment()

	s := New(kv, logger)
	if err := s.Hydrate(context.Background()); err != nil {
		t.Fatalf("Failed to hydrate store: %v", err)
	}
	return s, kv
}

func mustAddProduct(t *testing.T, s *Store, name string, price float64, stock int) *domain.Product {
	t.Helper()

	product, err := s.AddProduct(context.Background(), ProductInput{
		Name:  name,
		Price: price,
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("Failed to add product: %v", err)
	}
	return product
}

// Cart quantities stay clamped to [1, stock] under any sequence of adds
// and updates.
func TestProperty_CartQuantityAlwaysClamped(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("quantity never leaves [1, stock]", prop.ForAll(
		func(stock int, addQty int, updateQty int) bool {
			s, _ := newTestStore(t)
			ctx := context.Background()

			product := mustAddProduct(t, s, "Pagne tissé", 4500, stock)

			if err := s.AddToCart(ctx, product.ID, addQty); err != nil {
				return false
			}
			if err := s.UpdateCartItem(ctx, product.ID, updateQty); err != nil {
				return false
			}

			items := s.CartItems()
			if len(items) != 1 {
				return false
			}
			return items[0].Quantity >= 1 && items[0].Quantity <= stock
		},
		gen.IntRange(1, 50),
		gen.IntRange(-10, 100),
		gen.IntRange(-10, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSubtotalMatchesPriceTimesQuantity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	product := mustAddProduct(t, s, "Beurre de karité", 1299, 10)

	if err := s.AddToCart(ctx, product.ID, 2); err != nil {
		t.Fatalf("Failed to add to cart: %v", err)
	}

	if got := s.Subtotal(); got != 2598 {
		t.Errorf("Subtotal = %v, want 2598", got)
	}
}

func TestUpdateCartItemClampsZeroToOne(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	product := mustAddProduct(t, s, "Bissap séché", 800, 5)

	if err := s.AddToCart(ctx, product.ID, 1); err != nil {
		t.Fatalf("Failed to add to cart: %v", err)
	}
	if err := s.UpdateCartItem(ctx, product.ID, 0); err != nil {
		t.Fatalf("Failed to update cart item: %v", err)
	}

	items := s.CartItems()
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Errorf("Quantity = %v, want clamped to 1", items)
	}
}

func TestRemoveFromCartIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	keep := mustAddProduct(t, s, "Savon artisanal", 500, 20)
	gone := mustAddProduct(t, s, "Collier en bronze", 3000, 20)

	if err := s.AddToCart(ctx, keep.ID, 2); err != nil {
		t.Fatalf("Failed to add to cart: %v", err)
	}
	if err := s.AddToCart(ctx, gone.ID, 1); err != nil {
		t.Fatalf("Failed to add to cart: %v", err)
	}

	if err := s.RemoveFromCart(ctx, gone.ID); err != nil {
		t.Fatalf("First remove failed: %v", err)
	}
	after := s.CartItems()

	if err := s.RemoveFromCart(ctx, gone.ID); err != nil {
		t.Fatalf("Second remove failed: %v", err)
	}
	again := s.CartItems()

	if len(after) != 1 || len(again) != 1 || after[0] != again[0] {
		t.Errorf("Removing twice diverged: %v vs %v", after, again)
	}
}

func TestCartReadsFilterOrphanedLines(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	kept := mustAddProduct(t, s, "Masque décoratif", 12000, 3)
	deleted := mustAddProduct(t, s, "Tissu Faso Dan Fani", 9000, 8)

	if err := s.AddToCart(ctx, kept.ID, 1); err != nil {
		t.Fatalf("Failed to add to cart: %v", err)
	}
	if err := s.AddToCart(ctx, deleted.ID, 2); err != nil {
		t.Fatalf("Failed to add to cart: %v", err)
	}

	if err := s.DeleteProduct(ctx, deleted.ID); err != nil {
		t.Fatalf("Failed to delete product: %v", err)
	}

	items := s.CartItems()
	if len(items) != 1 || items[0].ProductID != kept.ID {
		t.Errorf("CartItems = %v, want only the surviving product", items)
	}

	// The orphan contributes nothing to the subtotal either.
	if got := s.Subtotal(); got != 12000 {
		t.Errorf("Subtotal = %v, want 12000", got)
	}
}

func TestHydrateRoundTripPreservesCollections(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })

	p1 := mustAddProduct(t, s, "Chapeau de paille", 2500, 15)
	p2 := mustAddProduct(t, s, "Djembé", 35000, 2)

	order, err := s.AddOrder(ctx, OrderInput{
		Products: []domain.OrderLine{
			{ProductID: p1.ID, Quantity: 2, Price: 2500},
		},
		CustomerEmail: "awa@example.com",
	})
	if err != nil {
		t.Fatalf("Failed to add order: %v", err)
	}

	fresh := New(kv, zap.NewNop())
	if err := fresh.Hydrate(ctx); err != nil {
		t.Fatalf("Failed to hydrate fresh store: %v", err)
	}

	products := fresh.Products()
	if len(products) != 2 {
		t.Fatalf("Hydrated %d products, want 2", len(products))
	}
	for i, want := range []*domain.Product{p1, p2} {
		got := products[i]
		if got.ID != want.ID || got.Name != want.Name || got.Price != want.Price || got.Stock != want.Stock {
			t.Errorf("Product %d = %+v, want %+v", i, got, want)
		}
		if !got.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("Product %d CreatedAt = %v, want %v", i, got.CreatedAt, want.CreatedAt)
		}
	}

	orders := fresh.Orders()
	if len(orders) != 1 {
		t.Fatalf("Hydrated %d orders, want 1", len(orders))
	}
	got := orders[0]
	if got.ID != order.ID || got.Total != 5000 || got.Status != domain.OrderStatusPending ||
		got.CustomerEmail != order.CustomerEmail || len(got.Products) != 1 {
		t.Errorf("Hydrated order = %+v, want %+v", got, order)
	}
	if !got.CreatedAt.Equal(order.CreatedAt) {
		t.Errorf("Order CreatedAt = %v, want %v", got.CreatedAt, order.CreatedAt)
	}
}

func TestUpdateOrderStatusUnknownOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	product := mustAddProduct(t, s, "Sandales en cuir", 6000, 10)
	if _, err := s.AddOrder(ctx, OrderInput{
		Products:      []domain.OrderLine{{ProductID: product.ID, Quantity: 1, Price: 6000}},
		CustomerPhone: "+22670000000",
	}); err != nil {
		t.Fatalf("Failed to add order: %v", err)
	}
	before := s.Orders()

	_, err := s.UpdateOrderStatus(ctx, uuid.New(), domain.OrderStatusShipped)
	if err != ErrOrderNotFound {
		t.Errorf("UpdateOrderStatus = %v, want ErrOrderNotFound", err)
	}

	after := s.Orders()
	if len(after) != len(before) || after[0].Status != before[0].Status {
		t.Errorf("Order collection changed on failed update")
	}
}

func TestUpdateOrderStatusRejectsBackwardMoves(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	product := mustAddProduct(t, s, "Panier tressé", 1500, 30)
	order, err := s.AddOrder(ctx, OrderInput{
		Products:      []domain.OrderLine{{ProductID: product.ID, Quantity: 3, Price: 1500}},
		CustomerPhone: "+22675000000",
	})
	if err != nil {
		t.Fatalf("Failed to add order: %v", err)
	}

	for _, status := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		if _, err := s.UpdateOrderStatus(ctx, order.ID, status); err != nil {
			t.Fatalf("Forward transition to %s failed: %v", status, err)
		}
	}

	if _, err := s.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending); err != ErrInvalidTransition {
		t.Errorf("Backward transition = %v, want ErrInvalidTransition", err)
	}
	if _, err := s.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled); err != ErrInvalidTransition {
		t.Errorf("Cancelling a delivered order = %v, want ErrInvalidTransition", err)
	}
}

func TestValidationFailsClosed(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var validationErr *ValidationError

	_, err := s.AddProduct(ctx, ProductInput{Name: "Bogolan", Price: -10, Stock: 5})
	if !errors.As(err, &validationErr) {
		t.Fatalf("Negative price accepted: %v", err)
	}
	_, err = s.AddProduct(ctx, ProductInput{Name: "", Price: 100, Stock: 5})
	if !errors.As(err, &validationErr) {
		t.Fatalf("Empty name accepted: %v", err)
	}
	_, err = s.AddProduct(ctx, ProductInput{Name: "Bogolan", Price: 100, Stock: -1})
	if !errors.As(err, &validationErr) {
		t.Fatalf("Negative stock accepted: %v", err)
	}

	if got := len(s.Products()); got != 0 {
		t.Errorf("Store mutated by rejected input: %d products", got)
	}
}

func TestInactiveProductIsNotPurchasable(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	product, err := s.AddProduct(ctx, ProductInput{
		Name:   "Statuette en retrait",
		Price:  7000,
		Stock:  4,
		Status: domain.ProductStatusInactive,
	})
	if err != nil {
		t.Fatalf("Failed to add product: %v", err)
	}

	if err := s.AddToCart(ctx, product.ID, 1); err != ErrProductNotPurchasable {
		t.Errorf("AddToCart on inactive product = %v, want ErrProductNotPurchasable", err)
	}
	if len(s.CartItems()) != 0 {
		t.Errorf("Inactive product reached the cart")
	}
}

// failingKV wraps a real backend and fails writes on demand
type failingKV struct {
	storage.KV
	failWrites bool
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.failWrites {
		return &storage.PersistenceError{Key: key, Err: errors.New("quota exceeded")}
	}
	return f.KV.Set(ctx, key, value)
}

func TestPersistenceFailureKeepsMemoryAndRetries(t *testing.T) {
	kv := newTestKV(t)
	flaky := &failingKV{KV: kv}
	logger, _ := zap.NewDevelopment()
	ctx := context.Background()

	s := New(flaky, logger)
	if err := s.Hydrate(ctx); err != nil {
		t.Fatalf("Failed to hydrate store: %v", err)
	}

	flaky.failWrites = true
	product, err := s.AddProduct(ctx, ProductInput{Name: "Huile de neem", Price: 1200, Stock: 6})
	var persistenceErr *storage.PersistenceError
	if !errors.As(err, &persistenceErr) {
		t.Fatalf("AddProduct = %v, want PersistenceError", err)
	}
	if product == nil || len(s.Products()) != 1 {
		t.Fatalf("In-memory state lost on persistence failure")
	}

	// Durable mirror is behind until the next successful write.
	if _, err := kv.Get(ctx, storage.KeyProducts); err != storage.ErrKeyNotFound {
		t.Fatalf("Mirror unexpectedly written: %v", err)
	}

	flaky.failWrites = false
	if _, err := s.AddProduct(ctx, ProductInput{Name: "Encens", Price: 300, Stock: 50}); err != nil {
		t.Fatalf("Recovered mutation failed: %v", err)
	}

	fresh := New(kv, zap.NewNop())
	if err := fresh.Hydrate(ctx); err != nil {
		t.Fatalf("Failed to hydrate fresh store: %v", err)
	}
	if got := len(fresh.Products()); got != 2 {
		t.Errorf("Mirror has %d products after retry, want 2", got)
	}
}

func TestAppendAbandonedCartDeduplicatesByTimestamp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	merchantID := uuid.New()

	episode := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	record := domain.AbandonedCart{
		ID:        uuid.New(),
		Items:     []domain.CartItem{{ProductID: uuid.New(), Quantity: 2}},
		Timestamp: episode,
		Total:     2598,
	}

	for i := 0; i < 3; i++ {
		duplicate := record
		duplicate.ID = uuid.New()
		if err := s.AppendAbandonedCart(ctx, merchantID, duplicate); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	carts, err := s.AbandonedCarts(ctx, merchantID)
	if err != nil {
		t.Fatalf("Failed to load abandoned carts: %v", err)
	}
	if len(carts) != 1 {
		t.Errorf("Got %d records for one episode, want 1", len(carts))
	}
}

func TestMarkRecoveredOnlyFlipsFlag(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	merchantID := uuid.New()

	record := domain.AbandonedCart{
		ID:        uuid.New(),
		Items:     []domain.CartItem{{ProductID: uuid.New(), Quantity: 1}},
		Timestamp: time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC),
		Total:     4500,
	}
	if err := s.AppendAbandonedCart(ctx, merchantID, record); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := s.MarkRecovered(ctx, merchantID, record.ID); err != nil {
		t.Fatalf("MarkRecovered failed: %v", err)
	}

	carts, err := s.AbandonedCarts(ctx, merchantID)
	if err != nil {
		t.Fatalf("Failed to load abandoned carts: %v", err)
	}
	if len(carts) != 1 || !carts[0].IsRecovered {
		t.Fatalf("Record not marked recovered: %+v", carts)
	}
	if carts[0].Total != record.Total || !carts[0].Timestamp.Equal(record.Timestamp) {
		t.Errorf("Snapshot fields changed: %+v", carts[0])
	}

	if err := s.MarkRecovered(ctx, merchantID, uuid.New()); err != ErrAbandonedCartNotFound {
		t.Errorf("MarkRecovered on unknown id = %v, want ErrAbandonedCartNotFound", err)
	}
}

func TestEmptyCartClearsActivityMarker(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	product := mustAddProduct(t, s, "Thé de moringa", 900, 12)

	if err := s.AddToCart(ctx, product.ID, 1); err != nil {
		t.Fatalf("Failed to add to cart: %v", err)
	}
	if s.LastActivity().IsZero() {
		t.Fatal("Activity marker not set on add")
	}

	if err := s.RemoveFromCart(ctx, product.ID); err != nil {
		t.Fatalf("Failed to remove from cart: %v", err)
	}
	if !s.LastActivity().IsZero() {
		t.Error("Activity marker survived an emptied cart")
	}
}
