// Package api provides the HTTP API server and handlers for Amar Pathagar.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/ratelimit"
	"github.com/amarpathagar/pathagar-server/internal/sse"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	sseManager      *sse.Manager
	authRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, sseManager *sse.Manager, cfg *config.Config, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:      st,
		services:   services,
		router:     router,
		logger:     logger,
		sseManager: sseManager,
		// Ten attempts a minute per IP for login and registration.
		authRateLimiter: ratelimit.PerMinute(10, 5),
	}

	s.setupMiddleware(cfg.Server.AllowedOrigins)

	humaConfig := huma.DefaultConfig("Amar Pathagar API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	// The event stream is plain net/http; huma cannot hold a response open.
	if sseManager != nil {
		router.Get("/api/v1/events", sse.NewHandler(sseManager, services.Auth, logger).ServeHTTP)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Stop releases background resources held by the server.
func (s *Server) Stop() {
	s.authRateLimiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(allowedOrigins []string) {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(requestID)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(authMiddleware(s.services.Auth))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerRequestRoutes()
	s.registerHandoverRoutes()
	s.registerProfileRoutes()
	s.registerSocialRoutes()
	s.registerNotificationRoutes()
	s.registerAdminRoutes()
}
