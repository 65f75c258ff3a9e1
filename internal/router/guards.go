package router

import (
	"context"
	"log/slog"

	"github.com/pribylovaa/backoffice-console/internal/pkg/log"
)

// Session — то, что guards знают о сессии (см. session.Manager).
type Session interface {
	LoadAuth(ctx context.Context) error
	IsAuthenticated() bool
}

// LoginGuard: уже вошедший пользователь уходит с экрана входа на dashboard.
// Ошибка загрузки сессии не мешает показать экран входа.
func LoginGuard(s Session, base *slog.Logger) Guard {
	return func(ctx context.Context, to Route) (string, error) {
		if err := s.LoadAuth(ctx); err != nil {
			log.FromOr(ctx, base).Warn("guard_load_auth_failed",
				slog.String("route", to.Name),
				slog.String("err", err.Error()),
			)
			return "", nil
		}
		if s.IsAuthenticated() {
			return RouteDashboard, nil
		}

		return "", nil
	}
}

// AuthGuard: без активной сессии — на login. Ставится на корень dashboard,
// поэтому покрывает все дочерние маршруты.
func AuthGuard(s Session, base *slog.Logger) Guard {
	return func(ctx context.Context, to Route) (string, error) {
		if err := s.LoadAuth(ctx); err != nil {
			log.FromOr(ctx, base).Warn("guard_load_auth_failed",
				slog.String("route", to.Name),
				slog.String("err", err.Error()),
			)
			return RouteLogin, nil
		}
		if !s.IsAuthenticated() {
			return RouteLogin, nil
		}

		return "", nil
	}
}

// Install вешает LoginGuard на login и AuthGuard на dashboard.
func Install(r *Router, s Session, base *slog.Logger) error {
	if err := r.BeforeEnter(RouteLogin, LoginGuard(s, base)); err != nil {
		return err
	}

	return r.BeforeEnter(RouteDashboard, AuthGuard(s, base))
}
