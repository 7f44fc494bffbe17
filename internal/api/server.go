package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/cache"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/config"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/gateway"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/handlers"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/jobs"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/logger"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/messaging"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/middleware"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/providers"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/repository"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/service"
)

// Server wires the reservation engine's HTTP surface.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	dedup    *cache.DedupClient
	services *service.Services
	repos    *repository.Repositories
	sweeper  *jobs.ExpirationJob
}

func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	dedup, err := cache.NewDedupClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	gateways := gateway.NewRouter(
		gateway.NewCardGateway(cfg.Card),
		gateway.NewOfflineGateway(),
	)

	registry := providers.NewRegistry(
		providers.NewEntrioClient(cfg.Entrio),
		providers.NewUlazniceClient(cfg.Ulaznice),
	)

	repos := repository.NewRepositories(db)

	services := service.NewServicesFromRepositories(repos, service.Deps{
		Gateways:  gateways,
		Providers: registry,
		NATS:      natsClient,
		Dedup:     dedup,
		HoldTTL:   cfg.BookingHoldTTL,
	})

	sweeper := jobs.NewExpirationJob(repos, services.Bookings, cfg.SweepInterval, cfg.SweepBatchSize)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		dedup:    dedup,
		services: services,
		repos:    repos,
		sweeper:  sweeper,
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	{
		booking := api.Group("/booking")
		{
			booking.POST("/create", h.CreateBooking)
			booking.POST("/ticket/validate", h.ValidateTicket)
			booking.GET("/:reference", h.GetBooking)
			booking.POST("/:reference/cancel", h.CancelBooking)
		}

		api.POST("/gateway/webhook", h.GatewayWebhook)
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "booking-engine",
		"version": "1.0.0",
	})
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Sweeper exposes the expiry job so main controls its lifecycle.
func (s *Server) Sweeper() *jobs.ExpirationJob {
	return s.sweeper
}

// Cleanup closes the outbound connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.dedup != nil {
		if err := s.dedup.Close(); err != nil {
			logger.Get().Error("Error closing redis connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
