// Package api provides the HTTP API for the mobility service.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/api/handler"
	"github.com/sfmobility/sfmobility/internal/api/middleware"
	"github.com/sfmobility/sfmobility/internal/auth"
	"github.com/sfmobility/sfmobility/internal/prediction"
	"github.com/sfmobility/sfmobility/internal/provider/resilience"
	"github.com/sfmobility/sfmobility/internal/recommend"
	"github.com/sfmobility/sfmobility/internal/session"
	"github.com/sfmobility/sfmobility/internal/watch"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version           string
	BuildTime         string
	Logger            zerolog.Logger
	ServiceName       string
	Metrics           *middleware.Metrics
	AuthService       *auth.Service
	RecommendService  *recommend.Service
	PredictionService *prediction.Service
	WatchService      *watch.Service
	SessionStore      session.Store
	ReadinessChecks   map[string]handler.CheckFunc
	Providers         []string
	Registry          *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "sfmobility-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type
	r.Use(middleware.RequireJSON)          // Reject non-JSON request bodies

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Checks:    cfg.ReadinessChecks,
		Providers: cfg.Providers,
		Registry:  cfg.Registry,
	})
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	recommendationHandler := handler.NewRecommendationHandler(cfg.RecommendService, cfg.SessionStore, cfg.Logger)
	delayHandler := handler.NewDelayHandler(cfg.PredictionService)
	watchHandler := handler.NewWatchHandler(cfg.WatchService)
	sessionHandler := handler.NewSessionHandler(cfg.SessionStore)
	metadataHandler := handler.NewMetadataHandler()

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// Create rate limit middleware for different endpoint categories
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)           // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit) // 10 requests per minute per IP
			r.Post("/register", authHandler.Register)
			r.Post("/token", authHandler.Token)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
			// logout-all requires authentication
			r.With(authMiddleware).Post("/logout-all", authHandler.LogoutAll)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Metadata endpoints (public) - standard rate limiting
		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/enums", metadataHandler.GetEnums)
		})

		// Comparison endpoint - expensive compute, strict rate limiting
		r.With(authMiddleware, expensiveRateLimit).
			Post("/recommendations/compare", recommendationHandler.Compare)

		// Route delay forecast - standard rate limiting
		r.With(authMiddleware, standardRateLimit).
			Get("/routes/{routeId}/delay", delayHandler.GetRouteDelay)

		// Me endpoints (authenticated) - user-based rate limiting
		r.Route("/me", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit)) // 100 req/min per user

			// Saved comparison context
			r.Route("/session", func(r chi.Router) {
				r.Get("/", sessionHandler.GetSession)
				r.Delete("/", sessionHandler.ClearSession)
			})

			// Delay watches
			r.Route("/watches", func(r chi.Router) {
				r.Get("/", watchHandler.ListWatches)
				r.Post("/", watchHandler.CreateWatch)
				r.Route("/{watchId}", func(r chi.Router) {
					r.Get("/", watchHandler.GetWatch)
					r.Patch("/", watchHandler.UpdateWatch)
					r.Delete("/", watchHandler.DeleteWatch)
				})
			})
		})
	})

	return r
}
