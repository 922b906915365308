package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"savane-boutik/internal/config"
	"savane-boutik/internal/messaging"
	custommiddleware "savane-boutik/internal/middleware"
	"savane-boutik/internal/service"
	"savane-boutik/internal/storage"
	"savane-boutik/internal/store"
	"savane-boutik/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	store  *store.Store
	kv     storage.KV
}

// NewServer wires the HTTP surface over the commerce store. redisClient is
// optional; without it the rate limiter is disabled (Postgres-only
// deployments).
func NewServer(cfg *config.Config, logger *zap.Logger, st *store.Store, kv storage.KV, redisClient *redis.Client) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))

	if redisClient != nil {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: 120,
			Window:            time.Minute,
			KeyPrefix:         "rate_limit",
		}, logger))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	shop := messaging.Shop{
		Name:           cfg.Shop.Name,
		WhatsAppNumber: cfg.Shop.WhatsAppNumber,
		Currency:       cfg.Shop.Currency,
	}

	authService := service.NewAuthService(kv, cfg.JWT.Secret)
	insightsService := service.NewInsightsService(st)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	merchantOnly := custommiddleware.RequireMerchant(logger)

	transport.NewAuthHandler(authService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewProductHandler(st, logger).RegisterRoutes(router, authMiddleware, merchantOnly)
	transport.NewCartHandler(st, authService, shop, logger).RegisterRoutes(router)
	transport.NewOrderHandler(st, logger).RegisterRoutes(router, authMiddleware, merchantOnly)
	transport.NewAbandonedCartHandler(st, authService, shop, logger).RegisterRoutes(router, authMiddleware, merchantOnly)
	transport.NewInsightsHandler(insightsService, logger).RegisterRoutes(router, authMiddleware, merchantOnly)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		store:  st,
		kv:     kv,
	}
}

// Close flushes pending store writes and releases the storage backend
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Flush(ctx); err != nil {
		s.logger.Error("Failed to flush store", zap.Error(err))
	}

	if err := s.kv.Close(); err != nil {
		s.logger.Error("Failed to close storage backend", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
