package store

import (
	"context"
	"time"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// clampQuantity forces a cart quantity into [1, stock]
func clampQuantity(quantity, stock int) int {
	if quantity < 1 {
		return 1
	}
	if quantity > stock {
		return stock
	}
	return quantity
}

// AddToCart adds quantity units of a product to the cart, merging with an
// existing line for the same product. The resulting quantity is clamped to
// [1, stock]. Inactive or out-of-stock products are rejected.
func (s *Store) AddToCart(ctx context.Context, productID uuid.UUID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findProductLocked(productID)
	if idx < 0 {
		return ErrProductNotFound
	}
	product := s.products[idx]
	if !product.Purchasable() {
		return ErrProductNotPurchasable
	}

	if pos := s.cart.Find(productID); pos >= 0 {
		s.cart.Items[pos].Quantity = clampQuantity(s.cart.Items[pos].Quantity+quantity, product.Stock)
	} else {
		s.cart.Items = append(s.cart.Items, domain.CartItem{
			ProductID: productID,
			Quantity:  clampQuantity(quantity, product.Stock),
		})
	}

	return s.afterCartMutationLocked(ctx)
}

// UpdateCartItem sets the quantity of an existing line, clamped to
// [1, stock]. Updating an absent line is a no-op.
func (s *Store) UpdateCartItem(ctx context.Context, productID uuid.UUID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.cart.Find(productID)
	if pos < 0 {
		return nil
	}

	if idx := s.findProductLocked(productID); idx >= 0 {
		s.cart.Items[pos].Quantity = clampQuantity(quantity, s.products[idx].Stock)
	} else if quantity >= 1 {
		// Orphaned line: no stock to clamp against, keep the lower bound.
		s.cart.Items[pos].Quantity = quantity
	} else {
		s.cart.Items[pos].Quantity = 1
	}

	return s.afterCartMutationLocked(ctx)
}

// RemoveFromCart removes the line for productID. Removing an absent line
// is a no-op, not an error.
func (s *Store) RemoveFromCart(ctx context.Context, productID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.cart.Find(productID)
	if pos < 0 {
		return nil
	}

	s.cart.Items = append(s.cart.Items[:pos], s.cart.Items[pos+1:]...)
	return s.afterCartMutationLocked(ctx)
}

// ClearCart empties the cart on checkout handoff
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Items = nil
	return s.afterCartMutationLocked(ctx)
}

// afterCartMutationLocked refreshes or clears the activity marker, writes
// the cart through, and notifies subscribers. An empty cart has no marker:
// the tracker must never see an episode for it.
func (s *Store) afterCartMutationLocked(ctx context.Context) error {
	if s.cart.IsEmpty() {
		s.lastActivity = time.Time{}
		if err := s.kv.Delete(ctx, storage.KeyLastActivity); err != nil {
			s.logger.Warn("Failed to clear activity marker", zap.Error(err))
		}
	} else {
		s.lastActivity = s.now()
		s.persistLocked(ctx, storage.KeyLastActivity)
	}

	s.retryDirtyLocked(ctx)
	err := s.persistLocked(ctx, storage.KeyCart)
	s.notifyCartChanged()
	return err
}

// CartItems returns the cart lines whose product still resolves, in cart
// order. Orphaned lines are filtered, not removed.
func (s *Store) CartItems() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.CartItem, 0, len(s.cart.Items))
	for _, item := range s.cart.Items {
		if s.findProductLocked(item.ProductID) >= 0 {
			items = append(items, item)
		}
	}
	return items
}

// Subtotal computes the cart total over resolving lines
func (s *Store) Subtotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, item := range s.cart.Items {
		if idx := s.findProductLocked(item.ProductID); idx >= 0 {
			total += s.products[idx].Price * float64(item.Quantity)
		}
	}
	return total
}

// LastActivity returns the inactivity-start marker, zero when the cart is
// idle.
func (s *Store) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// ClearActivity drops the activity marker after an episode materialized so
// the same episode cannot fire twice.
func (s *Store) ClearActivity(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = time.Time{}
	if err := s.kv.Delete(ctx, storage.KeyLastActivity); err != nil {
		s.logger.Warn("Failed to clear activity marker", zap.Error(err))
	}
}
