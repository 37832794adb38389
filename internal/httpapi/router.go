package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/trustify/trustify/internal/httpapi/middleware"
	"github.com/trustify/trustify/pkg/analysis"
	"github.com/trustify/trustify/pkg/config"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/importer"
	"github.com/trustify/trustify/pkg/ingest"
	"github.com/trustify/trustify/pkg/logger"
	"github.com/trustify/trustify/pkg/queryservice"
	"github.com/trustify/trustify/pkg/telemetry"
)

// Config holds every dependency the router wires into handlers.
type Config struct {
	DB        *database.DB
	Config    *config.Config
	Logger    *logger.Logger
	Ingest    *ingest.Service
	Analysis  *analysis.Service
	Scheduler *importer.Scheduler
	Tracer    *telemetry.Provider
}

// New builds the chi router spec.md §6 describes: the query, ingest,
// analysis, and importer endpoints, with no authentication or
// multi-tenancy layer (out of scope per spec.md §6) — just the
// teacher's request-logging/recovery/rate-limit middleware stack and
// CORS.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(cfg.Tracer.HTTPMiddleware)
	r.Use(chimiddleware.Compress(5))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.Config.Env == "development" {
		rateLimitCfg.Enabled = false
	}
	r.Use(middleware.RateLimit(rateLimitCfg, cfg.Logger))

	r.Use(cors.Handler(cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-Match", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	advisorySvc := queryservice.NewAdvisoryService(cfg.DB)
	purlSvc := queryservice.NewPurlService(cfg.DB)
	sbomSvc := queryservice.NewSbomService(cfg.DB)

	advisoryHandler := NewAdvisoryHandler(advisorySvc, cfg.Ingest, cfg.Logger)
	purlHandler := NewPurlHandler(purlSvc, cfg.Logger)
	sbomHandler := NewSbomHandler(sbomSvc, cfg.Logger)
	analysisHandler := NewAnalysisHandler(cfg.Analysis, cfg.Logger)
	importerHandler := NewImporterHandler(cfg.DB, cfg.Scheduler, cfg.Logger)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(cfg.DB))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/advisory", advisoryHandler.Ingest)

		r.Route("/importer", func(r chi.Router) {
			r.Get("/", importerHandler.List)
			r.Put("/{name}", importerHandler.Put)
			r.Delete("/{name}", importerHandler.Delete)
			r.Post("/{name}/force", importerHandler.Force)
		})
	})

	r.Route("/api/v2", func(r chi.Router) {
		r.Route("/advisory", func(r chi.Router) {
			r.Get("/", advisoryHandler.List)
			r.Get("/{id}", advisoryHandler.Get)
		})

		r.Route("/purl", func(r chi.Router) {
			r.Get("/", purlHandler.List)
			r.Post("/", purlHandler.Batch)
			r.Get("/{id}", purlHandler.Get)
		})

		r.Route("/sbom", func(r chi.Router) {
			r.Get("/", sbomHandler.List)
			r.Get("/{id}", sbomHandler.Get)
			r.Get("/{id}/packages", sbomHandler.Packages)
			r.Get("/{id}/related", sbomHandler.Related)
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Get("/component", analysisHandler.Component)
			r.Get("/component/{key}", analysisHandler.ComponentByKey)
			r.Get("/status", analysisHandler.Status)
		})
	})

	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readyz(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
