// Package app assembles the ledger service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ledger-service/internal/handler"
	"ledger-service/internal/middleware"
	"ledger-service/internal/report"
	"ledger-service/internal/scheduler"
	"ledger-service/internal/shop"
	"ledger-service/pkg/config"
	"ledger-service/pkg/database"
	"ledger-service/pkg/jwtutil"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const evictionGrace = 30 * time.Second

// App owns the long-lived parts of the service
type App struct {
	cfg       *config.Config
	log       *zap.Logger
	registry  *database.Registry
	scheduler *scheduler.Scheduler
	echo      *echo.Echo
}

// New builds the service. Nothing is started and no database is contacted.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	registry := database.NewRegistry(database.NewOpener(&cfg.DB), database.RegistryConfig{
		AdminName:  cfg.DB.AdminDBName,
		Size:       cfg.Tenant.CacheSize,
		TTL:        cfg.Tenant.CacheTTL,
		CloseGrace: evictionGrace,
	}, log)
	if err := prometheus.RegisterTenantRegistrySize(registry.Len); err != nil {
		log.Warn("Tenant registry gauge not registered", zap.Error(err))
	}

	jwt := jwtutil.NewJWTUtil(jwtutil.Config{
		SigningKey:        cfg.JWT.SigningKey,
		ExpirationMinutes: cfg.JWT.ExpirationMinutes,
	})
	reports := report.NewGenerator(cfg.Report.Dir, log)

	a := &App{cfg: cfg, log: log, registry: registry}

	if cfg.Scheduler.Enabled {
		s, err := newScheduler(cfg, log, registry, reports)
		if err != nil {
			return nil, err
		}
		a.scheduler = s
	}

	scope := shop.Scope{
		Prefix:  cfg.Tenant.Prefix,
		Default: cfg.DB.DefaultTenant,
		Admin:   cfg.DB.AdminDBName,
	}
	h := handler.New(handler.Deps{
		Shops:   shop.NewProvisioner(registry, cfg.Tenant.Prefix, log),
		Tenants: registry,
		Scope:   scope,
		JWT:     jwt,
		Reports: reports,
	})
	a.echo = newServer(cfg, log, h, registry, scope, jwt)
	return a, nil
}

func newScheduler(cfg *config.Config, log *zap.Logger, tenants scheduler.Tenants, reports *report.Generator) (*scheduler.Scheduler, error) {
	s, err := scheduler.New(scheduler.Config{Timezone: cfg.Scheduler.Timezone}, log)
	if err != nil {
		return nil, err
	}
	if err := s.Add(scheduler.JobDailyReport, cfg.Scheduler.ReportCron,
		scheduler.DailyReportJob(tenants, cfg.DB.DefaultTenant, reports)); err != nil {
		return nil, err
	}
	if err := s.Add(scheduler.JobNotification, cfg.Scheduler.NotifyCron, scheduler.NotificationJob()); err != nil {
		return nil, err
	}
	if err := s.Add(scheduler.JobBackup, cfg.Scheduler.BackupCron, scheduler.BackupJob()); err != nil {
		return nil, err
	}
	return s, nil
}

func newServer(cfg *config.Config, log *zap.Logger, h *handler.Handler, tenants middleware.Tenants, scope shop.Scope, jwt *jwtutil.JWTUtil) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Debug = !cfg.IsProduction()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	handler.RegisterRoutes(e, h, handler.Middlewares{
		Auth: middleware.AuthMiddleware(jwt),
		Tenant: middleware.TenantMiddleware(middleware.TenantConfig{
			Tenants:     tenants,
			Scope:       scope,
			RequireAuth: cfg.Server.DataRequiresAuth,
			JWT:         jwt,
		}),
		LoginLimiter: loginLimiter(cfg),
	})
	return e
}

// loginLimiter throttles login attempts per client IP
func loginLimiter(cfg *config.Config) echo.MiddlewareFunc {
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.Server.LoginRateLimit),
		Burst:     cfg.Server.LoginRateBurst,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			prometheus.RecordAuthError("rate_limited")
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many login attempts"})
		},
	})
}

// Server returns the HTTP server
func (a *App) Server() *echo.Echo {
	return a.echo
}

// Scheduler returns the job scheduler, nil when disabled
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Start starts the scheduler and serves HTTP until Shutdown is called
func (a *App) Start() error {
	if a.scheduler != nil {
		a.scheduler.Start()
	}

	addr := ":" + a.cfg.Server.Port
	a.log.Info("Starting server", zap.String("port", a.cfg.Server.Port))
	if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", addr, err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for running jobs and closes every database handle
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.echo.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop server: %w", err))
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if err := a.registry.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close databases: %w", err))
	}
	return errors.Join(errs...)
}
