package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type CtxKey string

const (
	CtxRequestID CtxKey = "request_id"
)

// TokenSource отдаёт текущий access-токен в момент отправки запроса.
// Пустая строка без ошибки — токена нет, заголовок не добавляется.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// RequestIDFrom достаёт request id, положенный HTTP-мидлваром консоли.
func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(CtxRequestID); v != nil {
		if rid, _ := v.(string); rid != "" {
			return rid
		}
	}

	return ""
}

// ClientWithMetadata — добавляет в исходящий gRPC вызов заголовки:
//   - x-request-id (если есть в контексте),
//   - user-agent (если передан параметром).
func ClientWithMetadata(userAgent string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		var pairs []string

		if rid := RequestIDFrom(ctx); rid != "" {
			pairs = append(pairs, "x-request-id", rid)
		}
		if userAgent != "" {
			pairs = append(pairs, "user-agent", userAgent)
		}
		if len(pairs) > 0 {
			ctx = metadata.AppendToOutgoingContext(ctx, pairs...)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
