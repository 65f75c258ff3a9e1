package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/backoffice-console/internal/http/handlers"
	"github.com/pribylovaa/backoffice-console/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования: id попадает в request-scoped логгер
		middleware.Logging(opts.Logger),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации эндпойнтов консоли.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// session
	r.Post("/session/login", h.Login)
	r.Post("/session/refresh", h.Refresh)
	r.Post("/session/logout", h.Logout)
	r.Get("/session", h.GetSession)

	// navigation
	r.Get("/navigate/{route}", h.Navigate)

	// back-office API
	r.Handle("/api/*", http.HandlerFunc(h.Proxy))
}
