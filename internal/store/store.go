package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/storage"

	"go.uber.org/zap"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrAbandonedCartNotFound = errors.New("abandoned cart not found")
	ErrInvalidTransition     = errors.New("invalid order status transition")
	ErrProductNotPurchasable = errors.New("product is not purchasable")
)

// ValidationError rejects malformed input before any in-memory mutation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ProductInput carries the caller-supplied fields for a new product
type ProductInput struct {
	Name        string
	Description string
	Images      []string
	Price       float64
	Stock       int
	Status      domain.ProductStatus
	Category    string
}

// OrderInput carries the caller-supplied fields for a new order. The total
// is computed from the lines, never trusted from the caller.
type OrderInput struct {
	Products      []domain.OrderLine
	CustomerEmail string
	CustomerPhone string
}

// Store is the authoritative in-memory holder of the commerce collections.
// Every mutation writes the affected collection through to durable storage;
// when a write fails the in-memory state stays correct, the key is marked
// dirty, and the write is retried on the next mutation touching storage.
type Store struct {
	kv     storage.KV
	logger *zap.Logger
	now    func() time.Time

	mu           sync.RWMutex
	products     []domain.Product
	orders       []domain.Order
	cart         domain.Cart
	lastActivity time.Time
	dirty        map[string]bool

	subMu sync.Mutex
	subs  []chan struct{}
}

// New creates a store over the given durable medium. Call Hydrate before
// serving reads.
func New(kv storage.KV, logger *zap.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
		now:    time.Now,
		dirty:  make(map[string]bool),
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Hydrate loads the persisted collections into memory. Missing keys
// hydrate to empty collections.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := loadJSON(ctx, s.kv, storage.KeyProducts, &s.products); err != nil {
		return fmt.Errorf("failed to hydrate products: %w", err)
	}
	if err := loadJSON(ctx, s.kv, storage.KeyOrders, &s.orders); err != nil {
		return fmt.Errorf("failed to hydrate orders: %w", err)
	}
	if err := loadJSON(ctx, s.kv, storage.KeyCart, &s.cart); err != nil {
		return fmt.Errorf("failed to hydrate cart: %w", err)
	}

	raw, err := s.kv.Get(ctx, storage.KeyLastActivity)
	switch {
	case err == storage.ErrKeyNotFound:
		s.lastActivity = time.Time{}
	case err != nil:
		return fmt.Errorf("failed to hydrate activity marker: %w", err)
	default:
		millis, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			s.logger.Warn("Discarding unparseable activity marker", zap.String("value", raw))
			s.lastActivity = time.Time{}
		} else {
			s.lastActivity = time.UnixMilli(millis)
		}
	}

	s.logger.Info("Store hydrated",
		zap.Int("products", len(s.products)),
		zap.Int("orders", len(s.orders)),
		zap.Int("cart_items", len(s.cart.Items)),
	)
	return nil
}

// Flush rewrites every key whose last durable write failed
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryDirtyLocked(ctx)
}

func loadJSON(ctx context.Context, kv storage.KV, key string, v interface{}) error {
	raw, err := kv.Get(ctx, key)
	if err == storage.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

// persistLocked serializes the current value for key and writes it through.
// The caller holds s.mu.
func (s *Store) persistLocked(ctx context.Context, key string) error {
	value, err := s.serializeLocked(key)
	if err != nil {
		return err
	}

	if err := s.kv.Set(ctx, key, value); err != nil {
		s.dirty[key] = true
		s.logger.Warn("Durable write failed, in-memory state remains authoritative",
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}

	delete(s.dirty, key)
	return nil
}

func (s *Store) serializeLocked(key string) (string, error) {
	var v interface{}
	switch key {
	case storage.KeyProducts:
		v = s.products
	case storage.KeyOrders:
		v = s.orders
	case storage.KeyCart:
		v = s.cart
	case storage.KeyLastActivity:
		return strconv.FormatInt(s.lastActivity.UnixMilli(), 10), nil
	default:
		return "", fmt.Errorf("unknown storage key %q", key)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize %q: %w", key, err)
	}
	return string(data), nil
}

func (s *Store) retryDirtyLocked(ctx context.Context) error {
	var firstErr error
	for key := range s.dirty {
		if err := s.persistLocked(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Subscribe returns a channel that receives a signal after every cart
// mutation. The signal is coalescing: a slow consumer sees at least one
// notification for any burst of mutations.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Store) notifyCartChanged() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
