package router

import (
	"log/slog"
	"net/http"

	"marketplace_api/internal/auth"
	"marketplace_api/internal/http_server/handlers/health"
	"marketplace_api/internal/http_server/handlers/items"
	"marketplace_api/internal/http_server/handlers/login"
	"marketplace_api/internal/http_server/handlers/profile"
	"marketplace_api/internal/http_server/handlers/refresh"
	"marketplace_api/internal/lib/validate"
	"marketplace_api/internal/middleware/bearer"
	rateLimit "marketplace_api/internal/middleware/ratelimit"
	"marketplace_api/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
)

// New wires every route of the API.
func New(
	log *slog.Logger,
	authService *auth.Auth,
	catalog items.Lister,
	corsOrigins []string,
) *chi.Mux {
	v := validate.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", health.New())
	r.Get("/items", items.New(log, catalog))

	r.Route("/auth", func(r chi.Router) {
		r.With(rateLimit.Login()).Post("/login", login.New(log, v, authService))
		r.With(rateLimit.Refresh()).Post("/refresh", refresh.New(log, v, authService))
	})

	r.With(
		bearer.New(log, authService),
		bearer.RequireRole(log, models.RoleUser),
	).Put("/profile", profile.New(log, v, authService))

	return r
}
