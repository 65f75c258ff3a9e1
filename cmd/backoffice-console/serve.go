package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	consolehttp "github.com/pribylovaa/backoffice-console/internal/http"
	"github.com/pribylovaa/backoffice-console/internal/http/handlers"
)

func serveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local console HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			log.Info("starting backoffice-console", slog.String("env", cfg.Env), slog.String("version", Version))

			a, err := newApp(cmd.Context(), cfg, log, prometheus.DefaultRegisterer)
			if err != nil {
				log.Error("app_init_failed", slog.String("err", err.Error()))
				return err
			}
			defer a.Close()

			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	log := a.log

	apiBase, err := url.Parse(a.cfg.API.BaseURL)
	if err != nil {
		return err
	}

	// Восстанавливаем сессию из хранилища до приёма запросов.
	if err := a.session.LoadAuth(ctx); err != nil {
		log.Warn("session_restore_failed", slog.String("err", err.Error()))
	}
	log.Info("session_restored",
		slog.String("state", a.session.State().String()),
		slog.String("route", a.router.Current()),
	)

	h := handlers.New(a.session, a.router, apiBase, a.clients.HTTP.Transport)
	consoleHandler := consolehttp.NewRouter(h, consolehttp.Options{
		Logger:  log,
		Timeout: a.cfg.Timeouts.Service,
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// /healthz — готовность консоли и (если сконфигурирован) back-office gRPC.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		if _, err := a.clients.CheckBackoffice(r.Context()); err != nil {
			log.Warn("backoffice_unhealthy", slog.String("err", err.Error()))
			http.Error(w, "backoffice unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", consoleHandler)

	addr := a.cfg.HTTP.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", addr), slog.String("err", err.Error()))
		return err
	}

	log.Info("http_listen_start", slog.String("addr", addr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("console_ready")

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		if serveErr != nil {
			log.Error("http_serve_failed", slog.String("err", serveErr.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("console_stopped")

	return serveErr
}
