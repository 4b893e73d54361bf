package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gardem-catalog/internal/config"
	"gardem-catalog/internal/database"
	"gardem-catalog/internal/events"
	custommiddleware "gardem-catalog/internal/middleware"
	"gardem-catalog/internal/repository"
	"gardem-catalog/internal/service"
	"gardem-catalog/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthChecker reports the state of a backing store
type HealthChecker interface {
	Health() map[string]string
}

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        *database.Service
	redis     *redis.Client
	publisher events.Publisher
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *database.Service) *Server {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:    cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		publisher: publisher,
	}
	server.Handler = NewRouter(cfg, logger, db, redisClient, publisher)

	return server
}

// NewRouter wires repositories, services and handlers onto a chi router
func NewRouter(cfg *config.Config, logger *zap.Logger, db *database.Service, redisClient redis.Cmdable, publisher events.Publisher) http.Handler {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.MetricsMiddleware)
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, !cfg.IsProduction()))

	router.Get("/health", healthHandler(db, redisClient))
	router.Handle("/metrics", promhttp.Handler())

	// Initialize repositories
	sqlDB := db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	sizeRepo := repository.NewSizeRepository(sqlDB)
	colorRepo := repository.NewColorRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	variantRepo := repository.NewVariantRepository(sqlDB)
	imageRepo := repository.NewImageRepository(sqlDB)
	cartRepo := repository.NewCartRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)
	orderRecordRepo := repository.NewOrderRecordRepository(sqlDB)
	txManager := repository.NewTxManager(sqlDB)

	// Initialize services
	userService := service.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpiresIn, logger)
	catalogService := service.NewCatalogService(categoryRepo, sizeRepo, colorRepo, logger)
	productService := service.NewProductService(productRepo, variantRepo, imageRepo, cfg.Orders.LowStockThreshold, logger)
	cartService := service.NewCartService(txManager, cartRepo, logger)
	orderService := service.NewOrderService(txManager, orderRepo, publisher, service.OrderSettings{
		TaxRate:      cfg.Orders.TaxRate,
		DeliveryDays: cfg.Orders.DeliveryDays,
	}, logger)
	orderRecordService := service.NewOrderRecordService(orderRepo, orderRecordRepo, logger)

	authMiddleware := custommiddleware.AuthMiddleware(userService, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)

	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.MaxRequests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "rate_limit",
		}, logger))

		transport.NewUserHandler(userService, logger).RegisterRoutes(r, authMiddleware, adminMiddleware)
		transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(r, authMiddleware, adminMiddleware)
		transport.NewProductHandler(productService, logger).RegisterRoutes(r, authMiddleware, adminMiddleware)
		transport.NewCartHandler(cartService, logger).RegisterRoutes(r, authMiddleware, adminMiddleware)
		transport.NewOrderHandler(orderService, logger).RegisterRoutes(r, authMiddleware, adminMiddleware)
		transport.NewOrderRecordHandler(orderRecordService, logger).RegisterRoutes(r, authMiddleware, adminMiddleware)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "ruta no encontrada")
	})

	return router
}

func healthHandler(db HealthChecker, redisClient redis.Cmdable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbHealth := db.Health()

		redisStatus := "up"
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}

		status := http.StatusOK
		if dbHealth["status"] != "up" {
			status = http.StatusServiceUnavailable
		}

		custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
			"status":    dbHealth["status"],
			"database":  dbHealth,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC(),
		})
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.publisher.Close(); err != nil {
		s.logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
