package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phishdrill/phishdrill/internal/authz"
	"github.com/phishdrill/phishdrill/internal/metrics"
	"github.com/phishdrill/phishdrill/internal/middleware"
	"github.com/phishdrill/phishdrill/internal/model"
)

// RateLimit configures one IP rate-limited route group.
type RateLimit struct {
	Enabled bool
	RPS     int
	Burst   int
}

// AccountServices is the account surface the router exposes.
type AccountServices interface {
	AccountService
	AccountAdmin
}

// RouterConfig wires the router's dependencies.
type RouterConfig struct {
	Logger   *slog.Logger
	Recorder metrics.Recorder

	Accounts  AccountServices
	Campaigns CampaignService
	Library   LibraryService
	Tracker   Tracker
	Health    *HealthHandler

	Verifier middleware.TokenVerifier
	Limiter  middleware.IPRateLimiter

	AuthRateLimit     RateLimit
	TrackingRateLimit RateLimit

	Security    middleware.SecurityConfig
	CORS        middleware.CORSConfig
	MaxBodySize int64

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the chi router with every route and its requirement.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := New()
	accounts := NewAccountHandler(cfg.Accounts, logger)
	admin := NewAdminHandler(cfg.Accounts, logger)
	campaigns := NewCampaignHandler(cfg.Campaigns, logger)
	library := NewLibraryHandler(cfg.Library, logger)
	tracking := NewTrackingHandler(cfg.Tracker, logger)
	health := cfg.Health
	if health == nil {
		health = NewHealthHandler(nil, nil)
	}

	guard := middleware.NewAuthorizer(logger, cfg.Recorder)
	authenticate := middleware.Authenticate(middleware.AuthConfig{Logger: logger, Verifier: cfg.Verifier})
	authLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger: logger, Limiter: cfg.Limiter, Scope: "auth",
		Enabled: cfg.AuthRateLimit.Enabled, RPS: cfg.AuthRateLimit.RPS, Burst: cfg.AuthRateLimit.Burst,
	})
	trackingLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger: logger, Limiter: cfg.Limiter, Scope: "tracking",
		Enabled: cfg.TrackingRateLimit.Enabled, RPS: cfg.TrackingRateLimit.RPS, Burst: cfg.TrackingRateLimit.Burst,
	})

	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.MaxBodySize(maxBody))

	r.Get("/", h.Hello)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.With(authLimit).Post("/register-user", accounts.Register)
	r.With(authLimit).Post("/login", accounts.Login)

	r.With(authenticate, guard.Require(authz.AnyPermission(model.PermUserDelete, model.PermUserUpdate))).
		Get("/me", accounts.Me)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/campaigns", func(r chi.Router) {
			r.With(guard.RequirePermission(model.PermCampaignRead)).Get("/", campaigns.List)
			r.With(guard.RequirePermission(model.PermCampaignCreate)).Post("/", campaigns.Create)
			r.With(guard.RequirePermission(model.PermCampaignRead)).Get("/{id}", campaigns.Get)
			r.With(guard.RequirePermission(model.PermCampaignCreate)).Post("/{id}/targets", campaigns.AddTarget)
			r.With(guard.RequirePermission(model.PermCampaignCreate)).Post("/{id}/status", campaigns.ChangeStatus)
			r.With(guard.RequirePermission(model.PermCampaignRead)).Get("/{id}/results", campaigns.Results)
			r.With(guard.RequirePermission(model.PermResultExport)).Get("/{id}/results.csv", campaigns.ExportResults)
		})

		r.With(guard.RequirePermission(model.PermTemplateRead)).Get("/templates", library.ListTemplates)
		r.With(guard.RequirePermission(model.PermTemplateCreate)).Post("/templates", library.CreateTemplate)
		r.With(guard.RequirePermission(model.PermContentRead)).Get("/content", library.ListContent)

		r.Route("/admin/accounts", func(r chi.Router) {
			r.With(guard.RequireRole(model.RoleAdmin)).Get("/", admin.ListAccounts)
			r.With(guard.RequirePermission(model.PermUserUpdate)).Put("/{id}/tier", admin.SetTier)
			r.With(guard.RequirePermission(model.PermUserUpdate)).Post("/{id}/roles", admin.GrantRole)
		})
	})

	r.Route("/t/{token}", func(r chi.Router) {
		r.Use(trackingLimit)
		r.Get("/", tracking.Click)
		r.Get("/open", tracking.Open)
		r.Post("/submit", tracking.Submit)
		r.Post("/report", tracking.Report)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
