// Package api provides the HTTP API server and handlers for the save engine.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/saveable/internal/auth"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/ratelimit"
	"github.com/listenupapp/saveable/internal/store"
	"github.com/listenupapp/saveable/internal/validation"
)

// Options holds server settings that come from configuration.
type Options struct {
	Name        string
	Version     string
	CORSOrigins []string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     store.Store
	registry  *morph.Registry
	services  *Services
	tokens    *auth.TokenService
	limiter   *ratelimit.KeyedRateLimiter
	validator *validation.Validator
	router    chi.Router
	api       huma.API
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// A nil limiter disables rate limiting.
func NewServer(
	st store.Store,
	registry *morph.Registry,
	services *Services,
	tokens *auth.TokenService,
	limiter *ratelimit.KeyedRateLimiter,
	opts Options,
	logger *slog.Logger,
) *Server {
	if opts.Name == "" {
		opts.Name = "Saveable API"
	}
	if opts.Version == "" {
		opts.Version = APIVersion
	}

	router := chi.NewRouter()
	s := &Server{
		store:     st,
		registry:  registry,
		services:  services,
		tokens:    tokens,
		limiter:   limiter,
		validator: validation.New(),
		router:    router,
		logger:    logger,
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig(opts.Name, opts.Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerEntityRoutes()
	s.registerSaveRoutes()
	s.registerSavedRoutes()
	s.registerSaverRoutes()
	s.registerCollectionRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(authMiddleware(s.tokens))
	if s.limiter != nil {
		s.router.Use(s.limiter.Middleware(rateLimitKey))
	}
}
