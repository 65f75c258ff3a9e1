package clients

import (
	"context"
	"errors"
	"fmt"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Состояния back-office gRPC сервиса для status и /healthz.
const (
	BackofficeDisabled = "disabled"
	BackofficeServing  = "serving"
)

// ErrBackofficeUnavailable — сервис ответил, но не в состоянии SERVING.
var ErrBackofficeUnavailable = errors.New("backoffice unavailable")

// CheckBackoffice опрашивает grpc.health.v1 back-office сервиса через общий
// коннект (metadata, authorization, timeout, logging).
//
// Возвращает BackofficeDisabled без вызова, если коннект не сконфигурирован.
func (c *Clients) CheckBackoffice(ctx context.Context) (string, error) {
	const op = "clients.CheckBackoffice"

	if c.Backoffice == nil {
		return BackofficeDisabled, nil
	}

	resp, err := healthpb.NewHealthClient(c.Backoffice).Check(ctx, &healthpb.HealthCheckRequest{
		Service: c.healthService,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if st := resp.GetStatus(); st != healthpb.HealthCheckResponse_SERVING {
		return "", fmt.Errorf("%s: %w: %s", op, ErrBackofficeUnavailable, st)
	}

	return BackofficeServing, nil
}
