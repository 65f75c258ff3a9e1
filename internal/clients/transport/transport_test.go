package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/backoffice-console/internal/clients/interceptors"
)

type capHandler struct {
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	base    []slog.Attr
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+4)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}
func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}
func (h *capHandler) WithGroup(string) slog.Handler { return h }

type tokenFunc func(ctx context.Context) (string, error)

func (f tokenFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }

// recorder запоминает последний запрос, дошедший до «сети».
func recorder(last **http.Request) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		*last = r
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("ok")),
			Request:    r,
		}, nil
	})
}

func TestAuthorization_SetsSingleHeader(t *testing.T) {
	t.Parallel()

	var last *http.Request
	rt := Chain(recorder(&last), Authorization(tokenFunc(func(context.Context) (string, error) {
		return "tok", nil
	})))

	req := httptest.NewRequest(http.MethodGet, "http://api.local/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer stale")

	for i := 0; i < 3; i++ {
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	require.Equal(t, []string{"Bearer tok"}, last.Header.Values("Authorization"))
	require.Equal(t, "Bearer stale", req.Header.Get("Authorization"), "original request must stay untouched")
}

func TestAuthorization_EmptyToken_RemovesHeader(t *testing.T) {
	t.Parallel()

	var last *http.Request
	rt := Chain(recorder(&last), Authorization(tokenFunc(func(context.Context) (string, error) {
		return "", nil
	})))

	req := httptest.NewRequest(http.MethodGet, "http://api.local/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer stale")

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Empty(t, last.Header.Get("Authorization"))
}

func TestAuthorization_SourceError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("must not be called")
	})
	srcErr := errors.New("no session")
	rt := Chain(base, Authorization(tokenFunc(func(context.Context) (string, error) {
		return "", srcErr
	})))

	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://api.local/x", nil))
	require.ErrorIs(t, err, ErrNoToken)
	require.ErrorIs(t, err, srcErr)
	require.Zero(t, calls.Load())
}

func TestMetadata_RequestIDAndUserAgent(t *testing.T) {
	t.Parallel()

	var last *http.Request
	rt := Chain(recorder(&last), Metadata("backoffice-console"))

	ctx := context.WithValue(context.Background(), interceptors.CtxRequestID, "rid-1")
	req := httptest.NewRequest(http.MethodGet, "http://api.local/x", nil).WithContext(ctx)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, "rid-1", last.Header.Get("X-Request-Id"))
	require.Equal(t, "backoffice-console", last.Header.Get("User-Agent"))
}

func TestTimeout_AppliesDeadline(t *testing.T) {
	t.Parallel()

	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})
	rt := Chain(base, Timeout(30*time.Millisecond))

	start := time.Now()
	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://api.local/slow", nil))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestTimeout_BodyReadableUntilClose(t *testing.T) {
	t.Parallel()

	var reqCtx context.Context
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		reqCtx = r.Context()
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("payload"))}, nil
	})
	rt := Chain(base, Timeout(time.Second))

	resp, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://api.local/x", nil))
	require.NoError(t, err)
	require.NoError(t, reqCtx.Err())

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "payload", string(b))

	require.NoError(t, resp.Body.Close())
	require.ErrorIs(t, reqCtx.Err(), context.Canceled)
}

func TestLogging_WritesSingleRecord(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	var last *http.Request
	rt := Chain(recorder(&last), Logging(slog.New(h)))

	req := httptest.NewRequest(http.MethodPost, "http://api.local/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer secret")

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, "http_client", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, http.MethodPost, h.attrs["method"])
	require.Equal(t, "/v1/orders", h.attrs["path"])
	require.EqualValues(t, http.StatusOK, h.attrs["status"])
	require.NotEmpty(t, last.Header.Get("X-Request-Id"))
	for _, v := range h.attrs {
		if s, ok := v.(string); ok {
			require.NotContains(t, s, "secret")
		}
	}
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	var last *http.Request
	rt := Chain(recorder(&last), mw("a"), nil, mw("b"))
	resp, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://api.local/", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, []string{"a", "b"}, order)
}
