package store

import (
	"context"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/storage"

	"github.com/google/uuid"
)

// AddOrder validates the lines, computes the total from them, assigns
// identity and creation time at call time, and appends the order with
// status pending.
func (s *Store) AddOrder(ctx context.Context, input OrderInput) (*domain.Order, error) {
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}

	var total float64
	for _, line := range input.Products {
		total += line.Subtotal()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order := domain.Order{
		ID:            uuid.New(),
		Products:      append([]domain.OrderLine(nil), input.Products...),
		Total:         total,
		Status:        domain.OrderStatusPending,
		CreatedAt:     s.now(),
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
	}
	s.orders = append(s.orders, order)

	s.retryDirtyLocked(ctx)
	err := s.persistLocked(ctx, storage.KeyOrders)
	return &order, err
}

// UpdateOrderStatus moves an order to the next status. The state machine
// is strictly forward; invalid moves leave the order untouched.
func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "unknown order status"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findOrderLocked(id)
	if idx < 0 {
		return nil, ErrOrderNotFound
	}

	if !s.orders[idx].Status.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}

	s.orders[idx].Status = status
	updated := s.orders[idx]

	s.retryDirtyLocked(ctx)
	err := s.persistLocked(ctx, storage.KeyOrders)
	return &updated, err
}

// Orders returns a copy of the order collection in insertion order
func (s *Store) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Order(nil), s.orders...)
}

// Order returns the order with the given id
func (s *Store) Order(id uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.findOrderLocked(id)
	if idx < 0 {
		return nil, ErrOrderNotFound
	}
	order := s.orders[idx]
	return &order, nil
}

func (s *Store) findOrderLocked(id uuid.UUID) int {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func validateOrderInput(input OrderInput) error {
	if len(input.Products) == 0 {
		return &ValidationError{Field: "products", Message: "order must have at least one line"}
	}
	for _, line := range input.Products {
		if line.Quantity < 1 {
			return &ValidationError{Field: "products", Message: "line quantity must be positive"}
		}
		if line.Price < 0 {
			return &ValidationError{Field: "products", Message: "line price must not be negative"}
		}
	}
	if input.CustomerEmail == "" && input.CustomerPhone == "" {
		return &ValidationError{Field: "customer", Message: "customer email or phone is required"}
	}
	return nil
}
