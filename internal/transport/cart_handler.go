package transport

import (
	"errors"
	"net/http"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/messaging"
	"savane-boutik/internal/middleware"
	"savane-boutik/internal/service"
	"savane-boutik/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddToCartRequest represents the add-to-cart payload
type AddToCartRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// UpdateCartItemRequest represents the quantity-change payload. The store
// clamps the quantity into [1, stock].
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// CheckoutRequest represents the checkout handoff payload
type CheckoutRequest struct {
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string `json:"customer_phone"`
}

// CartLineView is a cart line resolved against the live catalog
type CartLineView struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image"`
	Subtotal  float64 `json:"subtotal"`
}

// CartView is the full cart response
type CartView struct {
	Items    []CartLineView `json:"items"`
	Subtotal float64        `json:"subtotal"`
}

// CheckoutResponse carries the created order and the WhatsApp handoff link
type CheckoutResponse struct {
	Order        *domain.Order `json:"order"`
	WhatsAppLink string        `json:"whatsapp_link"`
}

// CartHandler handles the session cart and the checkout handoff
type CartHandler struct {
	store       *store.Store
	authService *service.AuthService
	shop        messaging.Shop
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler. The shop argument is the
// configured fallback used until a merchant account exists.
func NewCartHandler(st *store.Store, authService *service.AuthService, shop messaging.Shop, logger *zap.Logger) *CartHandler {
	return &CartHandler{store: st, authService: authService, shop: shop, logger: logger}
}

// RegisterRoutes registers the cart routes. The cart is the anonymous
// storefront session's, so no auth is required.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/items", h.Add)
		r.Put("/items/{productID}", h.Update)
		r.Delete("/items/{productID}", h.Remove)
		r.Post("/checkout", h.Checkout)
	})
}

// Get returns the cart with lines resolved against the live catalog.
// Orphaned lines never appear in the response.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.cartView())
}

// Add puts quantity units of a product into the cart
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.store.AddToCart(r.Context(), productID, req.Quantity); err != nil {
		h.respondCartMutation(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.cartView())
}

// Update sets a line's quantity, clamped to [1, stock]
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.UpdateCartItem(r.Context(), productID, req.Quantity); err != nil {
		h.respondCartMutation(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.cartView())
}

// Remove deletes a line. Removing an absent line succeeds.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.store.RemoveFromCart(r.Context(), productID); err != nil {
		h.respondCartMutation(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.cartView())
}

// Checkout converts the cart into a pending order with captured prices,
// builds the WhatsApp handoff link, and clears the cart. There is no
// payment step; the conversation continues in WhatsApp.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view := h.cartView()
	if len(view.Items) == 0 {
		middleware.RespondWithError(w, http.StatusConflict, "cart is empty")
		return
	}

	lines := make([]domain.OrderLine, 0, len(view.Items))
	msgLines := make([]messaging.Line, 0, len(view.Items))
	for _, item := range view.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			continue
		}
		lines = append(lines, domain.OrderLine{
			ProductID: productID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
		msgLines = append(msgLines, messaging.Line{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
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

	shop := h.resolveShop(r)
	message := messaging.CheckoutMessage(shop, msgLines, order.Total)
	link := messaging.DeepLink(shop.WhatsAppNumber, message)

	if err := h.store.ClearCart(r.Context()); err != nil {
		h.logger.Warn("Cart clear not yet durable", zap.Error(err))
	}

	h.logger.Info("Checkout handed off to WhatsApp",
		zap.String("order_id", order.ID.String()),
		zap.Float64("total", order.Total),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, CheckoutResponse{
		Order:        order,
		WhatsAppLink: link,
	})
}

func (h *CartHandler) cartView() CartView {
	items := h.store.CartItems()

	view := CartView{Items: make([]CartLineView, 0, len(items))}
	for _, item := range items {
		product, err := h.store.Product(item.ProductID)
		if err != nil {
			continue
		}
		subtotal := product.Price * float64(item.Quantity)
		view.Items = append(view.Items, CartLineView{
			ProductID: product.ID.String(),
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Image:     product.PrimaryImage(),
			Subtotal:  subtotal,
		})
		view.Subtotal += subtotal
	}
	return view
}

// resolveShop prefers the registered merchant's shop identity and falls
// back to configuration.
func (h *CartHandler) resolveShop(r *http.Request) messaging.Shop {
	merchant, err := h.authService.Merchant(r.Context())
	if err != nil {
		return h.shop
	}
	return messaging.Shop{
		Name:           merchant.ShopName,
		WhatsAppNumber: merchant.WhatsAppNumber,
		Currency:       h.shop.Currency,
	}
}

func (h *CartHandler) respondCartMutation(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrProductNotFound) || errors.Is(err, store.ErrProductNotPurchasable) {
		middleware.RespondWithStoreError(w, err)
		return
	}
	// Persistence lag only; mutation took effect in memory.
	h.logger.Warn("Cart write not yet durable", zap.Error(err))
	middleware.RespondWithJSON(w, http.StatusOK, h.cartView())
}
