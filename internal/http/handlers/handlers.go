// handlers — обработчики локального HTTP API консоли: управление сессией,
// навигация и проксирование запросов к back-office API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/pribylovaa/backoffice-console/internal/models"
	"github.com/pribylovaa/backoffice-console/internal/session"

	apierrors "github.com/pribylovaa/backoffice-console/internal/http/errors"
)

// Session — операции менеджера сессии, нужные хендлерам.
type Session interface {
	Login(ctx context.Context, in models.LoginRequest) error
	LoadAuth(ctx context.Context) error
	RefreshToken(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Logout(ctx context.Context)
	IsAuthenticated() bool
	Token() (models.TokenPair, bool)
	Payload() (models.TokenPayload, bool)
	State() session.State
}

// Navigator — роутер консоли.
type Navigator interface {
	Push(ctx context.Context, name string) (string, error)
	Current() string
}

// Handlers агрегирует зависимости.
type Handlers struct {
	Session Session
	Nav     Navigator
	proxy   *httputil.ReverseProxy
}

// New создаёт Handlers. Запросы /api/* проксируются на apiBase через rt
// (общий авторизованный транспорт).
func New(s Session, nav Navigator, apiBase *url.URL, rt http.RoundTripper) *Handlers {
	h := &Handlers{Session: s, Nav: nav}
	if apiBase != nil {
		h.proxy = newProxy(apiBase, rt)
	}

	return h
}

func newProxy(target *url.URL, rt http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, apiPrefix)
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
			pr.SetXForwarded()
			// Authorization ставит транспорт из текущей сессии, не клиент консоли.
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("Cookie")
		},
		Transport: rt,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			apierrors.WriteError(w, r, err)
		},
	}
}

// apiPrefix — префикс проксируемых путей.
const apiPrefix = "/api"

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
