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

// CreateOrderRequest represents a direct order placement, used when the
// merchant records an order agreed over WhatsApp.
type CreateOrderRequest struct {
	Products      []OrderLineRequest `json:"products" validate:"required,min=1,dive"`
	CustomerEmail string             `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string             `json:"customer_phone"`
}

// OrderLineRequest is one purchased line
type OrderLineRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	Price     float64 `json:"price" validate:"gte=0"`
}

// UpdateOrderStatusRequest moves an order through its lifecycle
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed shipped delivered cancelled"`
}

// OrderHandler handles order HTTP requests
type OrderHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(st *store.Store, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{store: st, logger: logger}
}

// RegisterRoutes registers order routes; all require merchant auth. Orders
// from the storefront arrive through the cart checkout instead.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, merchantOnly func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(merchantOnly)
		r.Get("/", h.List)
		r.Get("/{orderID}", h.Get)
		r.Post("/", h.Create)
		r.Patch("/{orderID}/status", h.UpdateStatus)
	})
}

// List returns all orders in insertion order
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.store.Orders())
}

// Get returns a single order
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.store.Order(id)
	if err != nil {
		middleware.RespondWithStoreError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Create records an order directly with the given captured prices
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]domain.OrderLine, 0, len(req.Products))
	for _, line := range req.Products {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
			return
		}
		lines = append(lines, domain.OrderLine{
			ProductID: productID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	order, err := h.store.AddOrder(r.Context(), store.OrderInput{
		Products:      lines,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil && order == nil {
		middleware.RespondWithStoreError(w, err)
		return
	}

	h.logger.Info("Order recorded",
		zap.String("order_id", order.ID.String()),
		zap.Float64("total", order.Total),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// UpdateStatus moves the order through the forward-only machine
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.store.UpdateOrderStatus(r.Context(), id, domain.OrderStatus(req.Status))
	if err != nil && order == nil {
		middleware.RespondWithStoreError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
