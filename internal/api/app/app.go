package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abdullah0035/itip-sub000/internal/api/auth"
	"github.com/abdullah0035/itip-sub000/internal/api/config"
	"github.com/abdullah0035/itip-sub000/internal/api/event"
	handler "github.com/abdullah0035/itip-sub000/internal/api/handler/http"
	"github.com/abdullah0035/itip-sub000/internal/api/geoip"
	"github.com/abdullah0035/itip-sub000/internal/api/migrations"
	"github.com/abdullah0035/itip-sub000/internal/api/repository"
	"github.com/abdullah0035/itip-sub000/internal/api/repository/postgres"
	"github.com/abdullah0035/itip-sub000/internal/api/service"
	"github.com/abdullah0035/itip-sub000/pkg/database"
	"github.com/abdullah0035/itip-sub000/pkg/health"
	pkgkafka "github.com/abdullah0035/itip-sub000/pkg/kafka"
	"github.com/abdullah0035/itip-sub000/pkg/middleware"
	"github.com/abdullah0035/itip-sub000/pkg/tracing"
)

// revokedTokenPruneInterval is how often expired revocation rows are deleted.
const revokedTokenPruneInterval = time.Hour

// App wires together all dependencies and runs the api service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	revokedRepo    repository.RevokedTokenRepository
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "itip-api",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	jwtExpiry, err := time.ParseDuration(cfg.JWTExpiry)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse JWT expiry %q: %w", cfg.JWTExpiry, err)
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, jwtExpiry)
	accountRepo := postgres.NewAccountRepository(pool)
	revokedRepo := postgres.NewRevokedTokenRepository(pool)
	bankRepo := postgres.NewBankDetailRepository(pool)
	qrRepo := postgres.NewQRCodeRepository(pool)
	tipRepo := postgres.NewTipRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	var geoResolver geoip.Resolver = geoip.Noop{}
	if cfg.GeoIPEnabled {
		geoResolver = geoip.NewClient(cfg.GeoIPBaseURL, logger)
	}

	accountService := service.NewAccountService(
		accountRepo, revokedRepo, bankRepo,
		jwtManager, auth.NewTokenVerifier(), geoResolver, eventProducer, logger,
	)
	qrCodeService := service.NewQRCodeService(qrRepo, accountRepo, cfg.PublicBaseURL, logger)
	tipService := service.NewTipService(tipRepo, qrRepo, accountRepo, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	actionHandler := handler.NewActionHandler(
		accountService, qrCodeService, tipService,
		cfg.LoginRateLimit, cfg.LoginRateBurst, logger,
	)
	router := handler.NewRouter(actionHandler, healthHandler, logger, middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Environment:    cfg.Environment,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		producer:       producer,
		revokedRepo:    revokedRepo,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go a.pruneRevokedTokens(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// pruneRevokedTokens periodically deletes revocation rows whose tokens have
// expired on their own.
func (a *App) pruneRevokedTokens(ctx context.Context) {
	ticker := time.NewTicker(revokedTokenPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := a.revokedRepo.Prune(ctx, time.Now().UTC())
			if err != nil {
				a.logger.Error("prune revoked tokens", slog.String("error", err.Error()))
				continue
			}
			if pruned > 0 {
				a.logger.Info("pruned revoked tokens", slog.Int64("count", pruned))
			}
		}
	}
}

// Shutdown gracefully stops all components in order: drain HTTP, flush
// tracer spans, close the Kafka producer, then the connection pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	a.logger.Info("application shutdown complete")
	return nil
}
