package cmd

import (
	"context"
	"fmt"
	"log/slog"

	httpin "dispatch/internal/adapters/in/http"
	redisin "dispatch/internal/adapters/in/redisbus"
	"dispatch/internal/adapters/out/notify"
	"dispatch/internal/adapters/out/postgres"
	redisout "dispatch/internal/adapters/out/redisbus"
	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/application/queries"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/jobs"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CompositionRoot assembles the dispatch engine: job store, coordinator,
// application services, persistence, messaging, background jobs, and the
// HTTP facade.
type CompositionRoot struct {
	store       *dispatch.JobStore
	coordinator *dispatch.Coordinator
	intake      *dispatch.OrderIntake
	presence    *dispatch.RiderPresence
	loader      *dispatch.RecoveryLoader
	consumer    *redisin.ResponseConsumer
	jobManager  *jobs.JobManager
	server      *httpin.Server
}

// NewCompositionRoot wires the full object graph. The database and Redis
// connections are owned by the caller.
func NewCompositionRoot(
	config Config,
	gormDB *gorm.DB,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
) (*CompositionRoot, error) {
	uowFactory := postgres.NewGormUnitOfWorkFactory(gormDB)
	store := dispatch.NewJobStore()
	matcher := services.NewRiderMatcher()

	gateway, err := redisout.NewGateway(redisClient)
	if err != nil {
		return nil, fmt.Errorf("create broadcast gateway: %w", err)
	}
	sink, err := notify.NewQueuedSink(gateway, logger, config.NotificationQueueSize)
	if err != nil {
		return nil, fmt.Errorf("create notification sink: %w", err)
	}

	policy := dispatch.Policy{
		OfferTTL:         config.OfferTTL,
		RetryCooldown:    config.RetryCooldown,
		MaxCycles:        config.MaxCycles,
		OrderDeadline:    config.OrderDeadline,
		CommitMaxRetries: config.CommitMaxRetries,
	}
	coordinator, err := dispatch.NewCoordinator(store, matcher, uowFactory, sink, policy, logger)
	if err != nil {
		return nil, fmt.Errorf("create coordinator: %w", err)
	}

	intake, err := dispatch.NewOrderIntake(uowFactory, coordinator, logger)
	if err != nil {
		return nil, fmt.Errorf("create order intake: %w", err)
	}
	presence, err := dispatch.NewRiderPresence(uowFactory, coordinator, logger)
	if err != nil {
		return nil, fmt.Errorf("create rider presence: %w", err)
	}
	loader, err := dispatch.NewRecoveryLoader(uowFactory, coordinator, logger)
	if err != nil {
		return nil, fmt.Errorf("create recovery loader: %w", err)
	}
	consumer, err := redisin.NewResponseConsumer(redisClient, coordinator, logger)
	if err != nil {
		return nil, fmt.Errorf("create response consumer: %w", err)
	}

	return &CompositionRoot{
		store:       store,
		coordinator: coordinator,
		intake:      intake,
		presence:    presence,
		loader:      loader,
		consumer:    consumer,
		jobManager:  jobs.NewJobManager(loader, store, uowFactory, coordinator, logger),
		server: httpin.NewServer(
			intake, presence, coordinator, store,
			queries.NewGetAllRidersQueryHandler(gormDB),
			queries.NewGetActiveOrdersQueryHandler(gormDB),
		),
	}, nil
}

// RecoveryLoader returns the startup recovery loader. Recovery must run
// before the inbound surfaces start serving.
func (c *CompositionRoot) RecoveryLoader() *dispatch.RecoveryLoader {
	return c.loader
}

// ResponseConsumer returns the Redis rider response consumer.
func (c *CompositionRoot) ResponseConsumer() *redisin.ResponseConsumer {
	return c.consumer
}

// JobManager returns the scheduled background jobs.
func (c *CompositionRoot) JobManager() *jobs.JobManager {
	return c.jobManager
}

// HTTPServer returns the REST facade.
func (c *CompositionRoot) HTTPServer() *httpin.Server {
	return c.server
}

// Shutdown stops the coordinator's timers and drains the notification
// sink. Call after the inbound surfaces have stopped.
func (c *CompositionRoot) Shutdown(ctx context.Context) error {
	return c.coordinator.Shutdown(ctx)
}
