package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/prest/internal/api/handlers"
	mw "github.com/Harshitk-cp/prest/internal/api/middleware"
	"github.com/Harshitk-cp/prest/internal/buildconfig"
	"github.com/Harshitk-cp/prest/internal/config"
	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/service"
	"github.com/Harshitk-cp/prest/internal/store"
	"github.com/Harshitk-cp/prest/internal/theory"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const rateLimitCleanupInterval = 5 * time.Minute

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router      *chi.Mux
	RateLimiter *mw.RateLimiter
	Metrics     *mw.Metrics
	Preorders   *theory.Precomputed
	// Retention is nil when datasets are kept forever.
	Retention   *service.RetentionService

	logger    *zap.Logger
	startTime time.Time
}

// NewApp wires the Postgres stores into the HTTP API. The preorder cache is
// shared by every estimation the process runs.
func NewApp(db *pgxpool.Pool, preorders *theory.Precomputed, logger *zap.Logger) *App {
	return newApp(store.NewWorkspaceStore(db), store.NewDatasetStore(db), db, preorders, logger)
}

func newApp(
	workspaces domain.WorkspaceStore,
	datasets domain.DatasetStore,
	db Pinger,
	preorders *theory.Precomputed,
	logger *zap.Logger,
) *App {
	// Services
	workspaceSvc := service.NewWorkspaceService(workspaces)
	datasetSvc := service.NewDatasetService(datasets, logger)
	estimationSvc := service.NewEstimationService(
		datasets,
		preorders,
		theory.NewSpace(preorders),
		config.EstimationWorkers(),
		logger,
	)

	// Handlers
	maxBytes := config.MaxUploadBytes()
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceSvc)
	datasetHandler := handlers.NewDatasetHandler(datasetSvc, maxBytes, logger)
	estimationHandler := handlers.NewEstimationHandler(estimationSvc, maxBytes, logger)

	r := chi.NewRouter()
	app := &App{
		Router:      r,
		RateLimiter: mw.NewRateLimiter(config.RateLimitRPS(), config.RateLimitBurst()),
		Metrics:     &mw.Metrics{},
		Preorders:   preorders,
		logger:      logger,
		startTime:   time.Now(),
	}
	if retention := config.DatasetRetention(); retention > 0 {
		app.Retention = service.NewRetentionService(datasets, retention, logger)
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.Metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiter.Middleware)

	// Health, metrics and version (no auth)
	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())
	r.Get("/version", versionHandler)

	// Workspace creation (no auth, bootstrap endpoint)
	r.Post("/v1/workspaces", workspaceHandler.Create)
	r.Get("/v1/theories", handlers.Theories)

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(workspaces))

		r.Route("/datasets", func(r chi.Router) {
			r.Post("/", datasetHandler.Create)
			r.Get("/", datasetHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", datasetHandler.GetByID)
				r.Delete("/", datasetHandler.Delete)
				r.Get("/stats", datasetHandler.Stats)
				r.Get("/subjects/{name}", datasetHandler.GetSubject)
			})
		})

		r.Route("/estimations", func(r chi.Router) {
			r.Post("/", estimationHandler.Estimate)
			r.Post("/wire", estimationHandler.EstimateWire)
		})
	})

	return app
}

// Start runs background maintenance until ctx is done and warms the
// preorder cache when configured.
func (app *App) Start(ctx context.Context) {
	go app.RateLimiter.Run(ctx, rateLimitCleanupInterval)

	if app.Retention != nil {
		app.Retention.Start()
	}

	if n := config.PrecomputeAlternatives(); n > app.Preorders.Size() {
		go func() {
			start := time.Now()
			if err := app.Preorders.Ensure(n); err != nil {
				app.logger.Error("preorder warm-up failed", zap.Int("alternatives", n), zap.Error(err))
				return
			}
			app.logger.Info("preorder cache warmed", zap.Int("alternatives", n), zap.Duration("duration", time.Since(start)))
		}()
	}
}

// Stop stops the background services started by Start.
func (app *App) Stop() {
	if app.Retention != nil {
		app.Retention.Stop()
	}
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildconfig.VersionInfo())
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds":       uptime.Seconds(),
			"uptime_human":         uptime.Round(time.Second).String(),
			"http":                 app.Metrics.Snapshot(),
			"preorder_cache_size":  app.Preorders.Size(),
			"goroutines":           runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Ensure stores satisfy interfaces at compile time.
var (
	_ domain.WorkspaceStore = (*store.WorkspaceStore)(nil)
	_ domain.DatasetStore   = (*store.DatasetStore)(nil)
	_ Pinger                = (*pgxpool.Pool)(nil)
)
