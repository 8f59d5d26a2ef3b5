package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"upiguard/internal/api/handlers"
	apimiddleware "upiguard/internal/api/middleware"
	"upiguard/internal/config"
	"upiguard/internal/metrics"
	"upiguard/pkg/logger"
)

const requestTimeout = 30 * time.Second

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	limiter  apimiddleware.RateLimitChecker
	logger   *logger.Logger
}

// NewRouter creates a new Router. limiter may be nil, which disables rate
// limiting.
func NewRouter(cfg config.Config, h *handlers.Handlers, limiter apimiddleware.RateLimitChecker, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		limiter:  limiter,
		logger:   log.WithComponent("router"),
	}
}

// Setup builds the chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)
	router.Use(metrics.Middleware)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	router.Get("/health", r.handlers.Health.Check)
	router.Get("/ready", r.handlers.Health.Ready)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Route("/api/v1", func(api chi.Router) {
		// websocket upgrades must not run under the request timeout
		api.With(apimiddleware.AdminAuth(r.config.Auth.AdminToken)).
			Get("/alerts/ws", r.handlers.Alerts.Stream)

		api.Group(func(admin chi.Router) {
			admin.Use(middleware.Timeout(requestTimeout))
			admin.Use(apimiddleware.AdminAuth(r.config.Auth.AdminToken))
			admin.Get("/admin/blacklist", r.handlers.Blacklist.List)
		})

		api.Group(func(authed chi.Router) {
			authed.Use(middleware.Timeout(requestTimeout))
			authed.Use(apimiddleware.APIKeyAuth(r.config.Auth.APIKeys))
			if r.config.RateLimit.Enabled && r.limiter != nil {
				authed.Use(apimiddleware.RateLimiter(r.limiter, r.config.RateLimit, r.logger))
			}

			authed.Post("/url/analyze", r.handlers.URL.Analyze)

			authed.Get("/blacklist/{identifier}", r.handlers.Blacklist.Lookup)
			authed.Post("/blacklist/report", r.handlers.Blacklist.Report)

			authed.Group(func(user chi.Router) {
				user.Use(apimiddleware.RequireUser)

				user.Post("/transactions/analyze", r.handlers.Transactions.Analyze)
				user.Post("/transactions", r.handlers.Transactions.Record)
				user.Get("/transactions", r.handlers.Transactions.List)
				user.Get("/profile", r.handlers.Transactions.Profile)

				user.Get("/contacts", r.handlers.Contacts.List)
				user.Post("/contacts", r.handlers.Contacts.Add)
				user.Patch("/contacts/{id}", r.handlers.Contacts.UpdateStatus)
			})
		})
	})

	return router
}
