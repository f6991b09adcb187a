// Package app wires the order summary service together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/form-order-summary/internal/domain/form"
	"github.com/xenking/form-order-summary/internal/domain/summary"
	"github.com/xenking/form-order-summary/internal/handler"
	"github.com/xenking/form-order-summary/internal/repository"
	"github.com/xenking/form-order-summary/internal/settings"
	"github.com/xenking/form-order-summary/pkg/health"
	"github.com/xenking/form-order-summary/pkg/httpmiddleware"
)

const serviceName = "form-order-summary"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.Add(health.Readiness, "postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Settings and the submission limiter live in Redis when configured.
	defaults := settings.Static{form.SettingCurrency: cfg.DefaultCurrency}
	var (
		store  settings.Store = defaults
		submit httpmiddleware.Middleware
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				lg.Warn("Close redis", zap.Error(err))
			}
		}()

		redisStore := settings.NewRedis(rdb, cfg.SettingsNamespace)
		store = settings.WithDefaults(redisStore, defaults)
		healthSvc.Add(health.Readiness, "redis", 2*time.Second, health.PingCheck(redisStore))

		limiter := httpmiddleware.NewRedisLimiter(rdb, "orders:ratelimit", cfg.RateLimit.Max, cfg.RateLimit.Window)
		submit = httpmiddleware.RateLimit(limiter, httpmiddleware.ClientIP)
		lg.Info("Redis enabled",
			zap.String("addr", cfg.RedisAddr),
			zap.Int64("rate_limit", cfg.RateLimit.Max),
			zap.Duration("window", cfg.RateLimit.Window),
		)
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	factory := form.NewFactory(store)
	summaries, err := summary.NewService(
		factory,
		repository.NewSnapshotRepository(pool),
		m.MeterProvider().Meter(serviceName),
	)
	if err != nil {
		return errors.Wrap(err, "create summary service")
	}

	h := handler.NewHandler(
		repository.NewFormRepository(pool),
		repository.NewEntryRepository(pool),
		summaries,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, submit)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins: cfg.CORS.Origins,
				Headers: []string{"Content-Type", httpmiddleware.HeaderRequestID},
				MaxAge:  cfg.CORS.MaxAge,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
