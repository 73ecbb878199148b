// Package app wires repositories, services, background jobs and the HTTP
// router into a runnable application.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"

	"github.com/ArmorCode-Public-Test/metabase/internal/api"
	"github.com/ArmorCode-Public-Test/metabase/internal/config"
	"github.com/ArmorCode-Public-Test/metabase/internal/db/repository"
	"github.com/ArmorCode-Public-Test/metabase/internal/middleware"
	"github.com/ArmorCode-Public-Test/metabase/internal/service"
)

// Deps holds what main() must provide: database handles, config and the
// logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// App is the fully wired application.
type App struct {
	Gate    *service.QueryGateService
	Admin   *service.AdminService
	Cache   *service.IndexCache
	Catalog *repository.CatalogRepo
	Perms   *repository.PermissionRepo

	cron *cron.Cron
}

// New wires repositories, the snapshot cache, the evaluator and the gate,
// and schedules the periodic cache sweep.
func New(deps Deps) (*App, error) {
	permRepo := repository.NewPermissionRepo(deps.WriteDB, deps.ReadDB)
	catalogRepo := repository.NewCatalogRepo(deps.WriteDB, deps.ReadDB)
	auditRepo := repository.NewAuditRepo(deps.WriteDB, deps.ReadDB)

	cache := service.NewIndexCache(permRepo, catalogRepo, deps.Logger)
	evaluator := service.NewPolicyEvaluator(cache, deps.Logger)
	gate := service.NewQueryGateService(evaluator, auditRepo, deps.Logger)
	admin := service.NewAdminService(permRepo, catalogRepo, catalogRepo, cache, deps.Logger)

	c := cron.New()
	sweepLogger := deps.Logger.With("component", "cache-sweep")
	maxAge := deps.Cfg.CacheMaxAge
	_, err := c.AddFunc(deps.Cfg.CacheSweepSchedule, func() {
		if n := cache.SweepOlderThan(maxAge); n > 0 {
			sweepLogger.Info("evicted stale permission snapshots", "count", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule cache sweep %q: %w", deps.Cfg.CacheSweepSchedule, err)
	}

	return &App{
		Gate:    gate,
		Admin:   admin,
		Cache:   cache,
		Catalog: catalogRepo,
		Perms:   permRepo,
		cron:    c,
	}, nil
}

// Start launches background jobs.
func (a *App) Start() { a.cron.Start() }

// Stop halts background jobs; running jobs finish first.
func (a *App) Stop() {
	ctx := a.cron.Stop()
	<-ctx.Done()
}

// Router builds the HTTP router: public health endpoint, then the
// authenticated API under /v1.
func (a *App) Router(cfg *config.Config, logger *slog.Logger) http.Handler {
	handler := api.NewHandler(a.Gate, a.Admin, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth([]byte(cfg.JWTSecret)))
		r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
		handler.Routes(r)
	})

	return r
}
