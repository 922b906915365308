package store

import (
	"context"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/storage"

	"github.com/google/uuid"
)

// AddProduct validates the input, assigns identity and timestamps, appends
// the product, and persists the collection. Validation failures leave the
// store untouched.
func (s *Store) AddProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.ProductStatusActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	product := domain.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Images:      append([]string(nil), input.Images...),
		Price:       input.Price,
		Stock:       input.Stock,
		Status:      status,
		Category:    input.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.products = append(s.products, product)

	s.retryDirtyLocked(ctx)
	err := s.persistLocked(ctx, storage.KeyProducts)
	return &product, err
}

// UpdateProduct merges the set fields of the patch into an existing product
func (s *Store) UpdateProduct(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	if err := validateProductPatch(patch); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findProductLocked(id)
	if idx < 0 {
		return nil, ErrProductNotFound
	}

	patch.Apply(&s.products[idx], s.now())
	updated := s.products[idx]

	s.retryDirtyLocked(ctx)
	err := s.persistLocked(ctx, storage.KeyProducts)
	return &updated, err
}

// DeleteProduct removes a product from the catalog. Cart lines referencing
// it are not cascaded; they become orphans and are filtered out at read
// time by CartItems and the tracker snapshot.
func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findProductLocked(id)
	if idx < 0 {
		return ErrProductNotFound
	}

	s.products = append(s.products[:idx], s.products[idx+1:]...)

	s.retryDirtyLocked(ctx)
	return s.persistLocked(ctx, storage.KeyProducts)
}

// Products returns a copy of the catalog in insertion order
func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.products...)
}

// Product returns the product with the given id
func (s *Store) Product(id uuid.UUID) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.findProductLocked(id)
	if idx < 0 {
		return nil, ErrProductNotFound
	}
	product := s.products[idx]
	return &product, nil
}

func (s *Store) findProductLocked(id uuid.UUID) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

func validateProductInput(input ProductInput) error {
	if input.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if input.Price < 0 {
		return &ValidationError{Field: "price", Message: "price must not be negative"}
	}
	if input.Stock < 0 {
		return &ValidationError{Field: "stock", Message: "stock must not be negative"}
	}
	if input.Status != "" && !input.Status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown product status"}
	}
	return nil
}

func validateProductPatch(patch domain.ProductPatch) error {
	if patch.Name != nil && *patch.Name == "" {
		return &ValidationError{Field: "name", Message: "name must not be empty"}
	}
	if patch.Price != nil && *patch.Price < 0 {
		return &ValidationError{Field: "price", Message: "price must not be negative"}
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return &ValidationError{Field: "stock", Message: "stock must not be negative"}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown product status"}
	}
	return nil
}
