package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abdullah0035/itip-sub000/internal/web/apiclient"
	"github.com/abdullah0035/itip-sub000/internal/web/config"
	"github.com/abdullah0035/itip-sub000/internal/web/guard"
	"github.com/abdullah0035/itip-sub000/internal/web/handler"
	"github.com/abdullah0035/itip-sub000/internal/web/session"
	"github.com/abdullah0035/itip-sub000/pkg/database"
	"github.com/abdullah0035/itip-sub000/pkg/health"
	"github.com/abdullah0035/itip-sub000/pkg/httpclient"
	"github.com/abdullah0035/itip-sub000/pkg/tracing"
)

// App wires together all dependencies and runs the web service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	redisClient    *redis.Client
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "itip-web",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	var store session.Store
	var redisClient *redis.Client
	switch cfg.SessionStore {
	case "redis":
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to redis", slog.String("addr", cfg.Redis().Addr()))
		store = session.NewRedisStore(redisClient, cfg.SessionTTL, logger)
	case "memory":
		logger.Warn("using in-memory session store; sessions will not survive restarts")
		store = session.NewMemoryStore(cfg.SessionTTL)
	}

	sessions := session.NewManager(store, cfg.SessionTTL, cfg.CookieSecure, logger)
	clients := apiclient.NewPool(cfg.APIBaseURL, logger)

	// Health checks. The backend is non-critical: the web tier still serves
	// entry pages when the api is down.
	healthHandler := health.NewHandler()
	if redisClient != nil {
		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	apiProbe := httpclient.New(httpclient.NoRetryConfig(3 * time.Second))
	healthHandler.RegisterNonCritical("api", func(ctx context.Context) error {
		resp, err := apiProbe.Get(ctx, cfg.APIBaseURL+"/health/live")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("api liveness returned %d", resp.StatusCode)
		}
		return nil
	})

	h := handler.New(sessions, clients, logger)
	router := handler.NewRouter(h, guard.New(sessions), healthHandler, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		redisClient:    redisClient,
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

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: drain HTTP, flush tracer spans,
// close redis.
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

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	a.logger.Info("application shutdown complete")
	return nil
}
