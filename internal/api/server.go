package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/eventreg/eventreg-server/internal/auth"
	"github.com/eventreg/eventreg-server/internal/config"
	"github.com/eventreg/eventreg-server/internal/router"
	"github.com/eventreg/eventreg-server/internal/storage"
	"github.com/eventreg/eventreg-server/internal/tenant"
	"github.com/eventreg/eventreg-server/internal/validation"
)

// RESTServer represents the platform HTTP server: the JSON API under
// /api/v1 plus the tenant-routed site routes.
type RESTServer struct {
	config    *config.Config
	store     storage.Store
	auth      *auth.JWTManager
	validator *validation.Validator
	directory *tenant.Directory
	pipeline  *router.Pipeline
	nc        *nats.Conn
	router    chi.Router
	server    *http.Server
}

// NewRESTServer creates a new platform server. nc may be nil when NATS is
// not configured; domain verification requests then fail with 503.
func NewRESTServer(cfg *config.Config, store storage.Store, nc *nats.Conn) *RESTServer {
	jwtManager := auth.NewJWTManager(&cfg.JWT)
	directory := tenant.NewDirectory(store, cfg.Platform.Domains)

	s := &RESTServer{
		config:    cfg,
		store:     store,
		auth:      jwtManager,
		validator: validation.NewValidator(),
		directory: directory,
		pipeline:  router.NewPipeline(directory, jwtManager, cfg),
		nc:        nc,
		router:    chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})

	// The domain-check API keeps its historical path; the pipeline calls
	// it for diagnostics.
	s.router.Post("/api/domains/check", s.HandleCheckDomain)

	// Site routes run through the tenant pipeline
	s.router.Group(func(r chi.Router) {
		r.Use(s.pipeline.Middleware)
		s.setupSiteRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting platform server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authMiddleware is the authentication middleware for API routes
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const claimsContextKey contextKey = "claims"

// claimsFrom returns the authenticated claims for an API request
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}
