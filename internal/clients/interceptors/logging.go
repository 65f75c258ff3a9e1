// interceptors предоставляет набор gRPC-интерсепторов для клиентской стороны
// back-office вызовов.
package interceptors

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/backoffice-console/internal/pkg/log"
)

// ClientWithLogging пишет одну запись "backoffice_rpc" на исходящий unary-вызов.
//
// Поля: request_id (из metadata или новый), service, rpc, target, authorized
// (ушёл ли вызов с authorization), code, dur. Уровень зависит от кода:
// OK — Info, ошибки вызывающего — Warn, сбои сервиса — Error.
// Логгер с request_id прокладывается в контекст вызова.
//
// Значение authorization и payload не логируются. Интерсептор ставится
// последним в цепочке, чтобы видеть итоговый metadata.
func ClientWithLogging(base *slog.Logger) grpc.UnaryClientInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()

		md, _ := metadata.FromOutgoingContext(ctx)

		rid := first(md, "x-request-id")
		if rid == "" {
			rid = uuid.NewString()
			ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", rid)
		}

		target := "-"
		if cc != nil && cc.Target() != "" {
			target = cc.Target()
		}

		service, rpc := splitMethod(method)

		l := base.With(
			slog.String("request_id", rid),
			slog.String("service", service),
			slog.String("rpc", rpc),
			slog.String("target", target),
		)
		ctx = log.Into(ctx, l)

		err := invoker(ctx, method, req, reply, cc, opts...)
		code := status.Code(err)

		l.Log(ctx, levelFor(code), "backoffice_rpc",
			slog.Bool("authorized", first(md, "authorization") != ""),
			slog.String("code", code.String()),
			slog.Duration("dur", time.Since(start)),
		)

		return err
	}
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}

	return ""
}

// splitMethod разбирает "/pkg.Service/Method" на сервис и метод.
func splitMethod(full string) (string, string) {
	full = strings.TrimPrefix(full, "/")
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[:i], full[i+1:]
	}

	return "-", full
}

func levelFor(code codes.Code) slog.Level {
	switch code {
	case codes.OK:
		return slog.LevelInfo
	case codes.Canceled, codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.PermissionDenied, codes.Unauthenticated, codes.FailedPrecondition, codes.OutOfRange:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
