package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"devcycle/internal/app/sideeffects"
	"devcycle/internal/domain/activity"
	"devcycle/internal/domain/auth"
	"devcycle/internal/domain/devplan"
	"devcycle/internal/domain/leveling"
	"devcycle/internal/domain/notifications"
	"devcycle/internal/platform/config"
	"devcycle/internal/platform/db"
	"devcycle/internal/platform/email"
	"devcycle/internal/platform/jobs"
	"devcycle/internal/platform/metrics"
	activityhandler "devcycle/internal/transport/http/handlers/activity"
	authhandler "devcycle/internal/transport/http/handlers/auth"
	devplanhandler "devcycle/internal/transport/http/handlers/devplan"
	levelinghandler "devcycle/internal/transport/http/handlers/leveling"
	notificationshandler "devcycle/internal/transport/http/handlers/notifications"
	"devcycle/internal/transport/http/middleware"
)

const sideEffectWorkers = 2

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Services is everything the router dispatches to.
type Services struct {
	Leveling      levelinghandler.Service
	DevPlan       devplanhandler.Service
	Notifications notificationshandler.Service
	Activity      activityhandler.Service
	Perms         *auth.StaticPermissions
	DB            Pinger
	Metrics       *metrics.Collector
}

// New connects to the database, applies migrations and seed data as
// configured, starts the side-effect workers and builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	var collector *metrics.Collector
	var dropper jobs.Dropper
	if cfg.MetricsEnabled {
		collector = metrics.New()
		dropper = collector
	}

	jobsSvc := jobs.New(jobs.Options{
		QueueSize: cfg.SideEffectQueueSize,
		Workers:   sideEffectWorkers,
		Timeout:   cfg.SideEffectTimeout,
		Dropper:   dropper,
	})
	jobsSvc.Start(context.WithoutCancel(ctx))

	var mailer notifications.Mailer
	if cfg.EmailEnabled {
		mailer = email.New(cfg)
	}
	notifier := notifications.New(notifications.NewStore(pool), mailer, cfg.EmailFrom)
	actions := activity.New(pool)
	dispatcher := sideeffects.New(jobsSvc, notifier, actions)

	router := NewRouter(cfg, Services{
		Leveling: leveling.NewService(pool, dispatcher, collector, leveling.Options{
			StrictItemMatch:        cfg.StrictItemMatch,
			RequireBalancedWeights: cfg.RequireBalancedWeights,
		}),
		DevPlan: devplan.NewService(pool, dispatcher, collector, devplan.Options{
			StrictItemMatch: cfg.StrictItemMatch,
		}),
		Notifications: notifier,
		Activity:      actions,
		Perms:         auth.NewStaticPermissions(auth.RolePermissions),
		DB:            pool,
		Metrics:       collector,
	})

	return &App{Config: cfg, DB: pool, Router: router, Jobs: jobsSvc, Metrics: collector}, nil
}

func NewRouter(cfg config.Config, svc Services) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Metrics(svc.Metrics))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if svc.DB == nil || svc.DB.Ping(ctx) != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if svc.Metrics != nil {
		router.Handle("/metrics", svc.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authhandler.NewHandler(svc.Perms).RegisterRoutes(r)
		levelinghandler.NewHandler(svc.Leveling, svc.Perms).RegisterRoutes(r)
		devplanhandler.NewHandler(svc.DevPlan, svc.Perms).RegisterRoutes(r)
		notificationshandler.NewHandler(svc.Notifications).RegisterRoutes(r)
		activityhandler.NewHandler(svc.Activity, svc.Perms).RegisterRoutes(r)
	})

	return router
}

// Close stops the side-effect workers, then the pool. Queued side effects
// that have not started are dropped.
func (a *App) Close() {
	if a.Jobs != nil {
		a.Jobs.Stop()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config) error {
	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
