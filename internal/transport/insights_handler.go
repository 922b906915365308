package transport

import (
	"net/http"

	"savane-boutik/internal/middleware"
	"savane-boutik/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InsightsHandler serves the merchant dashboard aggregates
type InsightsHandler struct {
	insights *service.InsightsService
	logger   *zap.Logger
}

// NewInsightsHandler creates a new InsightsHandler
func NewInsightsHandler(insights *service.InsightsService, logger *zap.Logger) *InsightsHandler {
	return &InsightsHandler{insights: insights, logger: logger}
}

// RegisterRoutes registers the insights routes behind merchant auth
func (h *InsightsHandler) RegisterRoutes(r chi.Router, authMiddleware, merchantOnly func(http.Handler) http.Handler) {
	r.Route("/api/insights", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(merchantOnly)
		r.Get("/", h.Stats)
	})
}

// Stats returns the dashboard summary
func (h *InsightsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	raw, ok := middleware.GetMerchantID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	merchantID, err := uuid.Parse(raw)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid merchant id")
		return
	}

	stats, err := h.insights.Stats(r.Context(), merchantID)
	if err != nil {
		h.logger.Error("Failed to compute dashboard stats", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, stats)
}
