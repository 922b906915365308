package transport

import (
	"net/http"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/middleware"
	"savane-boutik/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Price       float64  `json:"price" validate:"gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Status      string   `json:"status" validate:"omitempty,oneof=active inactive"`
	Category    string   `json:"category"`
}

// UpdateProductRequest is a partial update; absent fields are left untouched
type UpdateProductRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Images      *[]string `json:"images"`
	Price       *float64  `json:"price"`
	Stock       *int      `json:"stock"`
	Status      *string   `json:"status"`
	Category    *string   `json:"category"`
}

// ProductHandler handles catalog HTTP requests
type ProductHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(st *store.Store, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{store: st, logger: logger}
}

// RegisterRoutes registers catalog routes. Reads are public for the
// storefront; writes require an authenticated merchant.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, merchantOnly func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{productID}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(merchantOnly)
			r.Post("/", h.Create)
			r.Patch("/{productID}", h.Update)
			r.Delete("/{productID}", h.Delete)
		})
	})
}

// List returns the catalog in insertion order
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.store.Products())
}

// Get returns a single product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.store.Product(id)
	if err != nil {
		middleware.RespondWithStoreError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create adds a product to the catalog
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.store.AddProduct(r.Context(), store.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Images:      req.Images,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      domain.ProductStatus(req.Status),
		Category:    req.Category,
	})
	if err != nil && product == nil {
		middleware.RespondWithStoreError(w, err)
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update merges a partial update into an existing product
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Images:      req.Images,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	}
	if req.Status != nil {
		status := domain.ProductStatus(*req.Status)
		patch.Status = &status
	}

	product, err := h.store.UpdateProduct(r.Context(), id, patch)
	if err != nil && product == nil {
		middleware.RespondWithStoreError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product. Cart lines referencing it are filtered out at
// read time rather than cascaded.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		if err == store.ErrProductNotFound {
			middleware.RespondWithStoreError(w, err)
			return
		}
		// Durable write lagged; the in-memory delete already took effect.
		h.logger.Warn("Product delete not yet durable", zap.Error(err))
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
