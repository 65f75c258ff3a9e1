package middleware

import (
	"net/http"
	"time"

	"github.com/pribylovaa/backoffice-console/internal/clients/interceptors"
)

// Timeout навешивает deadline на запрос без собственного дедлайна.
// d <= 0 — no-op. Дедлайн доходит до исходящих вызовов auth API и back-office.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := interceptors.WithDefaultTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
