package store

import (
	"context"
	"encoding/json"
	"fmt"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/storage"

	"github.com/google/uuid"
)

// AbandonedCarts returns the persisted abandoned cart list for a merchant
func (s *Store) AbandonedCarts(ctx context.Context, merchantID uuid.UUID) ([]domain.AbandonedCart, error) {
	key := storage.AbandonedCartsKey(merchantID.String())

	var carts []domain.AbandonedCart
	if err := loadJSON(ctx, s.kv, key, &carts); err != nil {
		return nil, fmt.Errorf("failed to load abandoned carts: %w", err)
	}
	return carts, nil
}

// AppendAbandonedCart appends a snapshot to the merchant's list unless a
// record with the same inactivity-start timestamp already exists. At most
// one record per episode, no matter how often the deadline fires.
func (s *Store) AppendAbandonedCart(ctx context.Context, merchantID uuid.UUID, record domain.AbandonedCart) error {
	key := storage.AbandonedCartsKey(merchantID.String())

	carts, err := s.AbandonedCarts(ctx, merchantID)
	if err != nil {
		return err
	}

	for _, existing := range carts {
		if existing.Timestamp.Equal(record.Timestamp) {
			return nil
		}
	}

	carts = append(carts, record)
	return s.saveAbandonedCarts(ctx, key, carts)
}

// MarkRecovered flips a record's IsRecovered flag to true. The snapshot
// itself never changes.
func (s *Store) MarkRecovered(ctx context.Context, merchantID, cartID uuid.UUID) error {
	key := storage.AbandonedCartsKey(merchantID.String())

	carts, err := s.AbandonedCarts(ctx, merchantID)
	if err != nil {
		return err
	}

	for i := range carts {
		if carts[i].ID == cartID {
			if carts[i].IsRecovered {
				return nil
			}
			carts[i].IsRecovered = true
			return s.saveAbandonedCarts(ctx, key, carts)
		}
	}

	return ErrAbandonedCartNotFound
}

// ClearAbandonedCarts removes the merchant's entire list
func (s *Store) ClearAbandonedCarts(ctx context.Context, merchantID uuid.UUID) error {
	return s.kv.Delete(ctx, storage.AbandonedCartsKey(merchantID.String()))
}

func (s *Store) saveAbandonedCarts(ctx context.Context, key string, carts []domain.AbandonedCart) error {
	data, err := json.Marshal(carts)
	if err != nil {
		return fmt.Errorf("failed to serialize abandoned carts: %w", err)
	}
	return s.kv.Set(ctx, key, string(data))
}
