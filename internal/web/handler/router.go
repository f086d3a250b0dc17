package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdullah0035/itip-sub000/internal/web/guard"
	"github.com/abdullah0035/itip-sub000/pkg/health"
	"github.com/abdullah0035/itip-sub000/pkg/middleware"
)

// NewRouter creates the chi router for the web tier. Route gating follows
// the audience-times-direction table; everything else is plain handlers.
func NewRouter(
	h *Handler,
	g *guard.Guard,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("web"))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Get("/", h.Root)

	// Provider public entry: redirects to the dashboard once logged in.
	r.Group(func(r chi.Router) {
		r.Use(g.ProviderPublic)

		r.Get("/login", h.Page("login"))
		r.Post("/login", h.ProviderLogin)
		r.Get("/signup", h.Page("signup"))
		r.Post("/signup", h.ProviderSignup)
	})

	// Customer public entry.
	r.Group(func(r chi.Router) {
		r.Use(g.CustomerPublic)

		r.Get("/customer-login", h.Page("customer-login"))
		r.Post("/customer-login", h.CustomerLogin)
		r.Get("/customer-signup", h.Page("customer-signup"))
		r.Post("/customer-signup", h.CustomerSignup)
	})

	// Social callbacks decide their audience from the payload.
	r.Post("/social-login", h.SocialLogin)
	r.Post("/logout", h.Logout)

	// Provider private surface.
	r.Group(func(r chi.Router) {
		r.Use(g.ProviderPrivate)

		r.Get("/dashboard", h.ProviderDashboard)
		r.Get("/qr-codes", h.QRCodes)
		r.Post("/qr-codes", h.CreateQRCode)
		r.Post("/qr-codes/{id}/active", h.SetQRCodeActive)
		r.Get("/transactions", h.ProviderTransactions)
		r.Get("/profile", h.Profile)
		r.Post("/profile", h.UpdateProfile)
		r.Post("/profile/password", h.ChangePassword)
		r.Get("/bank-details", h.BankDetails)
		r.Post("/bank-details", h.SaveBankDetails)
	})

	// Customer private surface.
	r.Group(func(r chi.Router) {
		r.Use(g.CustomerPrivate)

		r.Get("/customer-dashboard", h.CustomerDashboard)
		r.Get("/customer-transactions", h.CustomerTransactions)
		r.Get("/customer-profile", h.CustomerProfile)
	})

	// Public tipping pages reached by scanning a QR code.
	r.Get("/t/{slug}", h.TipPage)
	r.Post("/t/{slug}", h.PayTip)

	return r
}
