// transport собирает http.RoundTripper для запросов консоли к back-office API:
// авторизация, служебные заголовки, таймаут и логирование.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/backoffice-console/internal/clients/interceptors"
)

// ErrNoToken — источник токена вернул ошибку, запрос не отправлялся.
var ErrNoToken = errors.New("authorization token unavailable")

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Middleware оборачивает RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain применяет mws так, что первый в списке оказывается внешним.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			base = mws[i](base)
		}
	}

	return base
}

// Authorization ставит Authorization: Bearer <token> из src на каждый запрос.
//
// Контракт:
//  1. исходный запрос не модифицируется (RoundTripper не должен менять r);
//  2. заголовок устанавливается через Set, повторная отправка того же запроса
//     не приводит к дублированию;
//  3. пустой токен — заголовок удаляется, запрос уходит без авторизации;
//  4. ошибка src — запрос не отправляется, ошибка оборачивает ErrNoToken.
func Authorization(src interceptors.TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			const op = "transport.Authorization"

			if src == nil {
				return next.RoundTrip(r)
			}

			tok, err := src.AccessToken(r.Context())
			if err != nil {
				closeBody(r)
				return nil, fmt.Errorf("%s: %w: %w", op, ErrNoToken, err)
			}

			r2 := r.Clone(r.Context())
			if tok == "" {
				r2.Header.Del("Authorization")
			} else {
				r2.Header.Set("Authorization", "Bearer "+tok)
			}

			return next.RoundTrip(r2)
		})
	}
}

// Metadata добавляет X-Request-Id из контекста и User-Agent.
func Metadata(userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			rid := interceptors.RequestIDFrom(r.Context())
			if rid == "" && userAgent == "" {
				return next.RoundTrip(r)
			}

			r2 := r.Clone(r.Context())
			if rid != "" && r2.Header.Get("X-Request-Id") == "" {
				r2.Header.Set("X-Request-Id", rid)
			}
			if userAgent != "" {
				r2.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(r2)
		})
	}
}

// Timeout ограничивает запрос без собственного дедлайна сроком d.
// Контекст отменяется при закрытии тела ответа, а не при возврате RoundTrip.
func Timeout(d time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if d <= 0 {
				return next.RoundTrip(r)
			}
			if _, ok := r.Context().Deadline(); ok {
				return next.RoundTrip(r)
			}

			ctx, cancel := interceptors.WithDefaultTimeout(r.Context(), d)
			resp, err := next.RoundTrip(r.WithContext(ctx))
			if err != nil {
				cancel()
				return nil, err
			}
			if resp.Body == nil {
				cancel()
				return resp, nil
			}
			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}

			return resp, nil
		})
	}
}

// Logging пишет одну запись "http_client" на запрос: method, host, path,
// status, dur. Заголовки и тело не логируются.
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := r.Header.Get("X-Request-Id")
			if rid == "" {
				rid = interceptors.RequestIDFrom(r.Context())
			}
			if rid == "" {
				rid = uuid.NewString()
				r = r.Clone(r.Context())
				r.Header.Set("X-Request-Id", rid)
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", r.Method),
				slog.String("host", r.URL.Host),
				slog.String("path", r.URL.Path),
			)

			resp, err := next.RoundTrip(r)
			if err != nil {
				l.Warn("http_client",
					slog.String("error", err.Error()),
					slog.Duration("dur", time.Since(start)),
				)
				return nil, err
			}

			l.Info("http_client",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func closeBody(r *http.Request) {
	if r.Body != nil {
		_ = r.Body.Close()
	}
}
