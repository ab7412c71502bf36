package di

import (
	"errors"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/events"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/handler"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/identity"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/repository"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/service"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/session"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/worker"
	"github.com/prohmpiriya/donation-rush/pkg/database"
	"github.com/prohmpiriya/donation-rush/pkg/redis"
)

// Container holds all dependencies for the donation service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Gateways
	PaymentGateway gateway.PaymentGateway

	// Persistence
	SessionStore session.Store
	DonationRepo repository.DonationRepository
	Publisher    events.Publisher

	// Services
	DonationService service.DonationService
	AdminService    service.AdminService

	// Workers
	StatusPoller *worker.StatusPoller

	// Handlers
	HealthHandler   *handler.HealthHandler
	DonationHandler *handler.DonationHandler
	AdminHandler    *handler.AdminHandler
}

// ContainerConfig contains configuration for building the container.
// A nil SessionStore or DonationRepo falls back to the in-memory implementation.
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	PaymentGateway gateway.PaymentGateway
	SessionStore   session.Store
	DonationRepo   repository.DonationRepository
	Publisher      events.Publisher
	Identity       *identity.Generator
	ServiceConfig  *service.DonationServiceConfig
	PollerConfig   *worker.StatusPollerConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) (*Container, error) {
	if cfg == nil || cfg.PaymentGateway == nil {
		return nil, errors.New("payment gateway is required")
	}
	if cfg.ServiceConfig == nil {
		return nil, errors.New("donation service config is required")
	}

	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		PaymentGateway: cfg.PaymentGateway,
		SessionStore:   cfg.SessionStore,
		DonationRepo:   cfg.DonationRepo,
		Publisher:      cfg.Publisher,
	}

	if c.SessionStore == nil {
		c.SessionStore = session.NewMemoryStore()
	}
	if c.DonationRepo == nil {
		c.DonationRepo = repository.NewMemoryDonationRepository()
	}
	if c.Publisher == nil {
		c.Publisher = events.NoopPublisher{}
	}

	// Initialize services
	c.DonationService = service.NewDonationService(
		c.SessionStore,
		c.PaymentGateway,
		c.DonationRepo,
		c.Publisher,
		cfg.Identity,
		cfg.ServiceConfig,
	)
	c.AdminService = service.NewAdminService(c.PaymentGateway, c.DonationRepo, c.Publisher, cfg.ServiceConfig.Campaign)

	// Initialize workers
	c.StatusPoller = worker.NewStatusPoller(c.DonationRepo, c.PaymentGateway, c.Publisher, cfg.PollerConfig)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis, c.PaymentGateway)
	c.DonationHandler = handler.NewDonationHandler(c.DonationService)
	c.AdminHandler = handler.NewAdminHandler(c.AdminService)

	return c, nil
}
