package transport

import (
	"net/http"
	"strconv"

	"savane-boutik/internal/messaging"
	"savane-boutik/internal/middleware"
	"savane-boutik/internal/service"
	"savane-boutik/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecoveryMessageResponse carries the prepared WhatsApp recovery outreach
type RecoveryMessageResponse struct {
	Message      string `json:"message"`
	WhatsAppLink string `json:"whatsapp_link"`
}

// AbandonedCartHandler exposes the merchant's abandoned cart list and the
// recovery messaging workflow.
type AbandonedCartHandler struct {
	store       *store.Store
	authService *service.AuthService
	shop        messaging.Shop
	logger      *zap.Logger
}

// NewAbandonedCartHandler creates a new AbandonedCartHandler
func NewAbandonedCartHandler(st *store.Store, authService *service.AuthService, shop messaging.Shop, logger *zap.Logger) *AbandonedCartHandler {
	return &AbandonedCartHandler{store: st, authService: authService, shop: shop, logger: logger}
}

// RegisterRoutes registers abandoned cart routes; all require merchant auth
func (h *AbandonedCartHandler) RegisterRoutes(r chi.Router, authMiddleware, merchantOnly func(http.Handler) http.Handler) {
	r.Route("/api/abandoned-carts", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(merchantOnly)
		r.Get("/", h.List)
		r.Delete("/", h.Clear)
		r.Post("/{cartID}/recovered", h.MarkRecovered)
		r.Get("/{cartID}/recovery-message", h.RecoveryMessage)
	})
}

// List returns the merchant's abandoned cart snapshots
func (h *AbandonedCartHandler) List(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := h.merchantID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	carts, err := h.store.AbandonedCarts(r.Context(), merchantID)
	if err != nil {
		h.logger.Error("Failed to load abandoned carts", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load abandoned carts")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, carts)
}

// Clear deletes the merchant's abandoned cart history
func (h *AbandonedCartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := h.merchantID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.store.ClearAbandonedCarts(r.Context(), merchantID); err != nil {
		h.logger.Error("Failed to clear abandoned carts", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to clear abandoned carts")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkRecovered flips a snapshot's recovered flag after the merchant has
// reached out.
func (h *AbandonedCartHandler) MarkRecovered(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := h.merchantID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cartID, err := uuid.Parse(chi.URLParam(r, "cartID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart id")
		return
	}

	if err := h.store.MarkRecovered(r.Context(), merchantID, cartID); err != nil {
		middleware.RespondWithStoreError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "cart marked as recovered"})
}

// RecoveryMessage builds the pre-filled WhatsApp outreach for a snapshot.
// Optional promo_code and discount_percent query parameters attach an
// incentive.
func (h *AbandonedCartHandler) RecoveryMessage(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := h.merchantID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cartID, err := uuid.Parse(chi.URLParam(r, "cartID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart id")
		return
	}

	carts, err := h.store.AbandonedCarts(r.Context(), merchantID)
	if err != nil {
		h.logger.Error("Failed to load abandoned carts", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load abandoned carts")
		return
	}

	for _, cart := range carts {
		if cart.ID != cartID {
			continue
		}

		var promo *messaging.Promo
		if code := r.URL.Query().Get("promo_code"); code != "" {
			discount, _ := strconv.Atoi(r.URL.Query().Get("discount_percent"))
			promo = &messaging.Promo{Code: code, DiscountPercent: discount}
		}

		shop := h.resolveShop(r)
		message := messaging.RecoveryMessage(cart, shop, promo)
		middleware.RespondWithJSON(w, http.StatusOK, RecoveryMessageResponse{
			Message:      message,
			WhatsAppLink: messaging.DeepLink(shop.WhatsAppNumber, message),
		})
		return
	}

	middleware.RespondWithStoreError(w, store.ErrAbandonedCartNotFound)
}

func (h *AbandonedCartHandler) merchantID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := middleware.GetMerchantID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *AbandonedCartHandler) resolveShop(r *http.Request) messaging.Shop {
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
