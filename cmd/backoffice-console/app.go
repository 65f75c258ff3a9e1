package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/backoffice-console/internal/clients"
	"github.com/pribylovaa/backoffice-console/internal/config"
	"github.com/pribylovaa/backoffice-console/internal/metrics"
	"github.com/pribylovaa/backoffice-console/internal/router"
	"github.com/pribylovaa/backoffice-console/internal/session"
	"github.com/pribylovaa/backoffice-console/internal/storage"
	"github.com/pribylovaa/backoffice-console/internal/storage/file"
	"github.com/pribylovaa/backoffice-console/internal/storage/memory"
	"github.com/pribylovaa/backoffice-console/internal/storage/redis"
)

// app — собранные зависимости процесса.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	session *session.Manager
	router  *router.Router
	clients *clients.Clients

	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) (*app, error) {
	const op = "main.newApp"

	a := &app{cfg: cfg, log: log}

	kv, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if c, ok := kv.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	clientMetrics := metrics.NewClient(reg)

	api, err := clients.NewAuth(*cfg, log, clientMetrics)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.session = session.New(api, storage.NewTokenStore(kv, cfg.Session.StorageKey), nil, cfg.Session, log)
	a.session.SetMetrics(metrics.NewSession(reg))

	a.router = router.New(log)
	a.session.SetNavigator(a.router)
	if err := router.Install(a.router, a.session, log); err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Хук авторизации ставится здесь один раз на весь процесс.
	a.clients, err = clients.New(ctx, *cfg, log, a.session, clientMetrics)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.closers = append(a.closers, a.clients)

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close_failed", slog.String("err", err.Error()))
		}
	}
	a.closers = nil
}

func newStore(ctx context.Context, cfg config.StorageConfig) (storage.KV, error) {
	switch cfg.Driver {
	case config.StorageRedis:
		return redis.New(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case config.StorageMemory:
		return memory.New(), nil
	default:
		return file.New(cfg.Path)
	}
}
