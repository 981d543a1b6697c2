package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/admin"
	"github.com/equisy/equisy-api/internal/api/ws"
	"github.com/equisy/equisy-api/internal/auth"
	"github.com/equisy/equisy-api/internal/config"
	"github.com/equisy/equisy-api/internal/media"
	"github.com/equisy/equisy-api/internal/metrics"
	"github.com/equisy/equisy-api/internal/server/middleware"
	"github.com/equisy/equisy-api/internal/store/postgres"
	redisstore "github.com/equisy/equisy-api/internal/store/redis"
	"github.com/equisy/equisy-api/internal/tenancy"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Store    *postgres.Store
	PubSub   *redisstore.PubSub
	Auth     *auth.Service
	Tenants  *tenancy.Service
	Resolver middleware.HostResolver
	Site     *admin.Site
	Admin    *admin.Store
	Media    media.Storage
	Metrics  *metrics.Metrics
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Deps
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds the background
// sweepers of the rate limiters.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack. Tenant resolution runs per group below so
	// the operational endpoints answer on any host.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	router.Use(deps.Metrics.Middleware)

	s := &Server{
		router: router,
		deps:   deps,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	router.Get("/healthz", s.healthz)
	router.Handle("/metrics", deps.Metrics.Handler())

	router.Group(func(router chi.Router) {
		router.Use(middleware.AllowedHosts(cfg.Server.AllowedHosts))
		router.Use(middleware.ResolveTenant(deps.Resolver))

		// Mount API routes on /api/v1 with two sub-groups:
		// 1. Unauthenticated group for auth endpoints.
		// 2. Authenticated group for all other endpoints.
		router.Route("/api/v1", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(ctx, 5, 20))

				authAPI := humachi.New(r, apiConfig("Equisy Auth API"))
				registerAuthRoutes(authAPI, deps)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT.Secret))
				r.Use(middleware.RateLimit(ctx, 100, 200))

				api := humachi.New(r, apiConfig("Equisy API"))
				registerAPIRoutes(api, deps, cfg.Media.MaxUploadBytes)
			})
		})

		// WebSocket routes.
		router.Route("/ws", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.RequireTenant())
			r.Use(middleware.RequireStaff())
			registerWSRoutes(r, ws.NewHub(deps.PubSub, wsOrigins(cfg.Server.CORSOrigins)))
		})

		// Uploaded files on the disk backend are served by this process,
		// each host only seeing its own schema's prefix.
		if cfg.Media.Backend == "disk" && strings.HasPrefix(cfg.Media.BaseURL, "/") {
			prefix := strings.TrimSuffix(cfg.Media.BaseURL, "/") + "/"
			router.Handle(prefix+"*", http.StripPrefix(prefix, tenantMedia(media.FileServer(cfg.Media.Root))))
		}
	})

	return s
}

// tenantMedia admits paths below the resolved tenant's schema prefix only.
func tenantMedia(files http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		schema, _ := middleware.SchemaFromContext(r.Context())
		first, rest, _ := strings.Cut(strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/"), "/")
		if middleware.IsPublicFromContext(r.Context()) || schema == "" || first != schema || rest == "" {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func apiConfig(title string) huma.Config {
	c := huma.DefaultConfig(title, "1.0.0")
	c.Servers = []*huma.Server{
		{URL: "/api/v1"},
	}
	return c
}

// wsOrigins turns CORS origins into the host patterns the websocket
// handshake accepts.
func wsOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.deps.Store != nil {
		if err := s.deps.Store.Pool().Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("healthz: database unreachable")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
