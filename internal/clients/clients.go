// clients собирает исходящие клиенты консоли: auth API (без авторизации),
// общий HTTP-клиент back-office API и опциональный gRPC-коннект к back-office.
// Хук авторизации устанавливается здесь один раз и читает токен через
// interceptors.TokenSource в момент отправки запроса.
package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pribylovaa/backoffice-console/internal/authapi"
	"github.com/pribylovaa/backoffice-console/internal/clients/interceptors"
	"github.com/pribylovaa/backoffice-console/internal/clients/transport"
	"github.com/pribylovaa/backoffice-console/internal/config"
	"github.com/pribylovaa/backoffice-console/internal/metrics"
)

// Clients агрегирует клиенты back-office API.
type Clients struct {
	// HTTP — общий клиент: каждый запрос получает Authorization из TokenSource.
	HTTP *http.Client
	// Backoffice — gRPC-коннект; nil, если адрес не сконфигурирован.
	Backoffice *grpc.ClientConn

	healthService string
}

// NewAuth создаёт клиент auth API. Authorization ему не нужен: login и refresh
// авторизуются телом запроса.
func NewAuth(cfg config.Config, log *slog.Logger, m *metrics.Client) (*authapi.Client, error) {
	const op = "clients.NewAuth"

	hc := &http.Client{
		Transport: transport.Chain(base(m),
			transport.Metadata(cfg.API.UserAgent),
			transport.Logging(log),
			transport.Timeout(cfg.Timeouts.Service),
		),
	}

	c, err := authapi.New(cfg.API.AuthURL(), hc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// New создаёт общий HTTP-клиент и (если задан адрес) gRPC-коннект.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, tokens interceptors.TokenSource, m *metrics.Client) (*Clients, error) {
	const op = "clients.New"

	timeout := cfg.Timeouts.Service
	userAgent := cfg.API.UserAgent

	// metadata -> logging -> timeout -> authorization -> метрики -> сеть.
	hc := &http.Client{
		Transport: transport.Chain(base(m),
			transport.Metadata(userAgent),
			transport.Logging(log),
			transport.Timeout(timeout),
			transport.Authorization(tokens),
		),
	}

	out := &Clients{HTTP: hc, healthService: cfg.GRPC.HealthService}

	if addr := cfg.GRPC.BackofficeAddr; addr != "" {
		conn, err := grpc.NewClient(
			addr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithUserAgent(userAgent),
			grpc.WithChainUnaryInterceptor(
				interceptors.ClientWithMetadata(userAgent),
				interceptors.ClientWithTimeout(timeout),
				interceptors.ClientWithAuthorization(tokens),
				interceptors.ClientWithLogging(log),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("%s: backoffice dial: %w", op, err)
		}
		out.Backoffice = conn
	}

	return out, nil
}

// Close закрывает gRPC-коннект и простаивающие HTTP-соединения.
func (c *Clients) Close() error {
	if c.HTTP != nil {
		c.HTTP.CloseIdleConnections()
	}
	if c.Backoffice != nil {
		return c.Backoffice.Close()
	}

	return nil
}

func base(m *metrics.Client) http.RoundTripper {
	rt := http.DefaultTransport.(*http.Transport).Clone()
	if m == nil {
		return rt
	}

	return promhttp.InstrumentRoundTripperCounter(m.Requests,
		promhttp.InstrumentRoundTripperDuration(m.Duration, rt),
	)
}
