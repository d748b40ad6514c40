// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	URLUseCase  urlUseCase
	UserUseCase userUseCase
	Limiter     rateLimiter
	// Metrics serves /metrics when set.
	Metrics        http.Handler
	BaseURL        string
	AllowedOrigins []string
	SecureCookies  bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener.
func NewRouter(logger *httplog.Logger, deps Deps) *chi.Mux {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	validate := newValidator()
	urls := newURLHandler(deps.URLUseCase, validate, deps.BaseURL)
	users := newUserHandler(deps.UserUseCase, validate, deps.SecureCookies)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(rateLimit(deps.Limiter, now))
		}
		r.Use(authenticate(deps.UserUseCase))

		r.Route("/v1", func(r chi.Router) {
			r.Get("/ping", handlePing)
			r.Post("/register", users.register)
			r.Post("/login", users.login)
			r.Post("/shorten", urls.shortenURL)
			r.Get("/stats/{shortCode}", urls.getURLStats)

			r.With(requireUser).Get("/user/urls", urls.listUserURLs)
		})
	})

	r.Get("/{shortCode}", urls.redirect)

	return r
}
