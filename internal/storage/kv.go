package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrKeyNotFound = errors.New("key not found")
)

// Storage keys used by the commerce store and tracker. Abandoned cart
// lists are scoped per merchant via AbandonedCartsKey.
const (
	KeyUser          = "user"
	KeyProducts      = "products"
	KeyOrders        = "orders"
	KeyCart          = "cart"
	KeyLastActivity  = "lastCartActivity"
	KeyRefreshTokens = "refreshTokens"
)

// AbandonedCartsKey returns the storage key holding a merchant's
// abandoned cart list.
func AbandonedCartsKey(merchantID string) string {
	return "abandonedCarts_" + merchantID
}

// KV is the durable key to JSON-string medium the commerce store writes
// through to. Implementations must be safe for use from a single writer
// with concurrent readers.
type KV interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
	// Close releases the backend connection.
	Close() error
}

// PersistenceError reports a failed durable write. In-memory state stays
// authoritative; the failed key is retried on a later mutation.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed for key %q: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
