package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/perse/carbon-dashboard/internal/pkg/logger"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/agents", h.GetAgents)
		r.Get("/teams", h.GetTeams)
		r.Get("/sites", h.GetSites)

		r.Route("/organisation", func(r chi.Router) {
			r.Get("/overview", h.GetOverview)
			r.Get("/{window}", h.GetOrganisationSummary)
			r.Get("/{window}/daily", h.GetOrganisationDaily)
			r.Get("/{window}/weekly", h.GetOrganisationWeekly)
			r.Get("/{window}/types", h.GetOrganisationTypes)
		})

		r.Get("/breakdown/daily", h.GetDailyBreakdown)
		r.Get("/trend/weekly", h.GetWeeklyTrend)

		if h.reports != nil {
			r.Route("/reports", func(r chi.Router) {
				r.Post("/", h.CreateReport)
				r.Get("/", h.ListReports)
				r.Get("/{id}", h.GetReport)
			})
		}
	})

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	log := logger.With("component", "http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
