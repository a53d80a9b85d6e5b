package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/platform/rabbitmq"
	platformredis "github.com/phrazzld/taskflow-api/internal/platform/redis"
	"github.com/phrazzld/taskflow-api/internal/ratelimit"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// rateLimitKeyPrefix namespaces the Redis rate limit counters.
const rateLimitKeyPrefix = "taskflow:ratelimit:"

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	userStore store.UserStore
	taskStore store.TaskStore
	taskCache cache.TaskCache
	limiter   ratelimit.Limiter

	jwtService auth.JWTService

	userService      service.UserService
	accessService    service.TaskAccessService
	queryService     service.TaskQueryService
	lifecycleService service.TaskLifecycleService

	dispatcher *events.Dispatcher
	publisher  *rabbitmq.Publisher
}

// newApplication wires every component on top of an open database. Redis
// and RabbitMQ connections are only opened when the configuration selects
// them.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := app.setupRedis(ctx); err != nil {
		return nil, err
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	if err := app.setupCache(); err != nil {
		app.cleanup(ctx)
		return nil, err
	}
	app.setupLimiter()

	if err := app.setupEvents(); err != nil {
		app.cleanup(ctx)
		return nil, err
	}

	if err := app.setupServices(); err != nil {
		app.cleanup(ctx)
		return nil, err
	}

	logger.Info("application initialized successfully")
	return app, nil
}

func (app *application) needsRedis() bool {
	return app.config.Cache.Backend == "redis" ||
		(app.config.RateLimit.Enabled && app.config.RateLimit.Backend == "redis")
}

func (app *application) setupRedis(ctx context.Context) error {
	if !app.needsRedis() {
		return nil
	}
	client, err := platformredis.NewClient(ctx, app.config.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redis = client
	app.logger.Info("redis client connected", slog.String("addr", app.config.Redis.Addr))
	return nil
}

func (app *application) setupCache() error {
	var backend cache.Backend
	switch app.config.Cache.Backend {
	case "redis":
		backend = cache.NewRedisBackend(app.redis, app.config.Cache.KeyPrefix, app.config.Cache.TTL())
	default:
		backend = cache.NewMemoryBackend(app.config.Cache.TTL())
	}

	c, err := cache.NewTaskCache(backend, app.taskStore.FindByID, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create task cache: %w", err)
	}
	app.taskCache = c
	return nil
}

func (app *application) setupLimiter() {
	rl := app.config.RateLimit
	if !rl.Enabled {
		return
	}
	switch rl.Backend {
	case "redis":
		app.limiter = ratelimit.NewRedisLimiter(app.redis, rateLimitKeyPrefix, rl.RequestsPerWindow, rl.Window())
	default:
		app.limiter = ratelimit.NewMemoryLimiter(rl.RequestsPerWindow, rl.Window())
	}
	app.logger.Info("rate limiting enabled",
		slog.String("backend", rl.Backend),
		slog.Int("requests_per_window", rl.RequestsPerWindow),
		slog.Int("window_seconds", rl.WindowSeconds))
}

// setupEvents builds the asynchronous event pipeline: the dispatcher fans
// out to the audit log handler and, when configured, the AMQP publisher.
func (app *application) setupEvents() error {
	ev := app.config.Events
	if !ev.Enabled {
		return nil
	}

	fanout := events.NewInMemoryEventEmitter(app.logger)
	fanout.RegisterHandler(events.NewLogHandler(app.logger))

	if ev.AMQPURL != "" {
		publisher, err := rabbitmq.Dial(ev.AMQPURL, ev.Queue, app.logger)
		if err != nil {
			return fmt.Errorf("failed to set up event publisher: %w", err)
		}
		app.publisher = publisher
		fanout.RegisterHandler(publisher)
		app.logger.Info("task events published to rabbitmq", slog.String("queue", ev.Queue))
	}

	app.dispatcher = events.NewDispatcher(fanout, events.DispatcherConfig{
		WorkerCount:    ev.WorkerCount,
		QueueSize:      ev.QueueSize,
		HandlerTimeout: events.DefaultDispatcherConfig().HandlerTimeout,
	}, app.logger)
	app.dispatcher.Start()
	return nil
}

func (app *application) emitter() events.EventEmitter {
	if app.dispatcher == nil {
		return events.NopEmitter{}
	}
	return app.dispatcher
}

func (app *application) setupServices() error {
	var err error

	app.userService, err = service.NewUserService(
		app.db,
		app.userStore,
		app.jwtService,
		auth.NewBcryptHasher(app.config.Auth.BcryptCost),
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create user service: %w", err)
	}

	app.accessService, err = service.NewTaskAccessService(app.taskStore, app.taskCache, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create task access service: %w", err)
	}

	app.queryService, err = service.NewTaskQueryService(
		app.taskStore,
		app.accessService,
		app.config.Pagination,
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create task query service: %w", err)
	}

	app.lifecycleService, err = service.NewTaskLifecycleService(
		app.db,
		app.taskStore,
		app.userStore,
		app.taskCache,
		app.accessService,
		app.emitter(),
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create task lifecycle service: %w", err)
	}

	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases resources in reverse order of construction. Pending
// events are drained before the publisher closes.
func (app *application) cleanup(ctx context.Context) {
	var errs []error

	if app.dispatcher != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.shutdownTimeout())
		if err := app.dispatcher.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("event dispatcher: %w", err))
		}
		cancel()
	}
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("rabbitmq publisher: %w", err))
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		app.logger.Error("errors during shutdown", slog.String("error", err.Error()))
	}
	app.logger.Info("application shutdown completed")
}

func (app *application) shutdownTimeout() time.Duration {
	if d := app.config.Server.ShutdownTimeout(); d > 0 {
		return d
	}
	return 10 * time.Second
}
