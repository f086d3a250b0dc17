package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/abdullah0035/itip-sub000/pkg/errors"
	"github.com/abdullah0035/itip-sub000/pkg/health"
	"github.com/abdullah0035/itip-sub000/pkg/httputil"
	"github.com/abdullah0035/itip-sub000/pkg/middleware"
)

// NewRouter creates a chi router with all api service routes registered.
func NewRouter(
	actionHandler *ActionHandler,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("api"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Every operation multiplexes over one endpoint with an action
	// discriminator in the body.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/action", actionHandler.Handle)
	})

	return r
}

// ContentTypeJSON rejects requests whose body is not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, "application/json") {
			httputil.WriteError(w, r, apperrors.InvalidInput("content type must be application/json"), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
