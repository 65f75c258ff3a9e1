package interceptors

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ClientWithAuthorization — ставит authorization: Bearer <token> из src.
//
// Контракт:
//  1. токен читается на каждый вызов, поэтому обновлённая пара подхватывается
//     без переустановки интерсептора;
//  2. уже существующий authorization в исходящем metadata заменяется, а не
//     дублируется;
//  3. ошибка src — вызов не выполняется, возвращается codes.Unauthenticated.
func ClientWithAuthorization(src TokenSource) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if src == nil {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		tok, err := src.AccessToken(ctx)
		if err != nil {
			return status.Error(codes.Unauthenticated, fmt.Sprintf("authorization: %v", err))
		}

		if tok != "" {
			md, _ := metadata.FromOutgoingContext(ctx)
			md = md.Copy()
			md.Set("authorization", "Bearer "+tok)
			ctx = metadata.NewOutgoingContext(ctx, md)
		}

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
