package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/backoffice-console/internal/authapi"
	"github.com/pribylovaa/backoffice-console/internal/metrics"
	"github.com/pribylovaa/backoffice-console/internal/models"
	"github.com/pribylovaa/backoffice-console/internal/pkg/log"
	"github.com/pribylovaa/backoffice-console/internal/pkg/redact"
	"github.com/pribylovaa/backoffice-console/internal/storage"
	"github.com/pribylovaa/backoffice-console/internal/token"
)

const (
	flightLoad    = "load"
	flightRefresh = "refresh"
)

// LoadAuth восстанавливает сессию из хранилища.
//
// Контракт:
//  1. пары нет — выход (state очищен, навигация на login), nil;
//  2. пара нечитаема или payload не декодируется — выход, ошибка возвращается
//     (errors.Is(err, token.ErrMalformedToken) / storage.ErrCorrupted);
//  3. access-токен истёк — выход, nil, refresh не выполняется;
//  4. до истечения меньше порога — RefreshToken и ожидание результата;
//     неудача обновления — выход и ErrRefreshFailed;
//  5. иначе сессия Authenticated, сетевых вызовов нет.
//
// Прочие ошибки хранилища (сеть, таймаут) сессию не трогают: ошибка
// возвращается, сохранённая пара остаётся.
//
// Конкурентные вызовы объединяются: хранилище читается и refresh выполняется
// один раз, навигация выполняется каждым вызывающим в его контексте.
// Общий вызов не зависит от отмены ctx отдельного вызывающего; тот, чей ctx
// отменён, получает ctx.Err() без навигации.
func (m *Manager) LoadAuth(ctx context.Context) error {
	const op = "session.LoadAuth"

	ch := m.sf.DoChan(flightLoad, func() (any, error) {
		fctx, cancel := m.detach(ctx)
		defer cancel()

		return m.load(fctx, true)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case res = <-ch:
	}

	if route, _ := res.Val.(string); route != "" {
		m.navigate(ctx, route)
	}
	if res.Err != nil {
		return fmt.Errorf("%s: %w", op, res.Err)
	}

	return nil
}

// detach отвязывает тело общего вызова от отмены вызывающего, сохраняя значения
// контекста (логгер, request id). Длительность ограничена cfg.Timeout.
func (m *Manager) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if m.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, m.cfg.Timeout)
}

// load выполняет разбор сохранённой пары. Возвращает маршрут, на который нужно
// перейти ("" — остаться). allowRefresh=false используется после переноса
// свежей пары, чтобы не обновлять её повторно.
func (m *Manager) load(ctx context.Context, allowRefresh bool) (string, error) {
	lg := log.FromOr(ctx, m.log)

	pair, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		m.clear(ctx, ReasonAbsent)
		m.metrics.ObserveLoad(metrics.LoadAbsent)
		return m.cfg.LoginRoute, nil
	case errors.Is(err, storage.ErrCorrupted):
		lg.Warn("session_load_failed", slog.String("err", err.Error()))
		m.clear(ctx, ReasonStorage)
		m.metrics.ObserveLoad(metrics.LoadFailed)
		return m.cfg.LoginRoute, err
	case err != nil:
		lg.Warn("session_store_unavailable", slog.String("err", err.Error()))
		m.metrics.ObserveLoad(metrics.LoadFailed)
		return "", err
	}

	payload, err := token.Decode(pair.AccessToken)
	if err != nil {
		lg.Warn("session_token_malformed", slog.String("err", err.Error()))
		m.clear(ctx, ReasonMalformed)
		m.metrics.ObserveLoad(metrics.LoadMalformed)
		return m.cfg.LoginRoute, err
	}

	m.set(pair, payload)

	left := payload.SecondsToExpiry(m.now())
	switch {
	case left < 0:
		lg.Info("session_expired",
			slog.String("user", redact.Username(payload.Username)),
			slog.Int64("expired_ago_s", -left),
		)
		m.clear(ctx, ReasonExpired)
		m.metrics.ObserveLoad(metrics.LoadExpired)
		return m.cfg.LoginRoute, nil

	case left < m.thresholdSeconds() && allowRefresh:
		lg.Debug("session_expiring", slog.Int64("expires_in_s", left))

		if _, err := m.RefreshToken(ctx, pair.RefreshToken); err != nil {
			if !errors.Is(err, ErrRefreshFailed) {
				// Ожидание прервано до ответа: пара остаётся.
				m.metrics.ObserveLoad(metrics.LoadFailed)
				return "", err
			}
			m.clear(ctx, ReasonRefreshFailed)
			m.metrics.ObserveLoad(metrics.LoadFailed)
			return m.cfg.LoginRoute, err
		}

		m.metrics.ObserveLoad(metrics.LoadRefreshed)
		return "", nil
	}

	m.metrics.ObserveLoad(metrics.LoadAuthenticated)
	return "", nil
}

// RefreshToken обменивает refreshToken на новую пару и переносит её в сессию
// (сохранение и перезагрузка состояния, без навигации).
//
// Конкурентные вызовы разделяют один сетевой запрос. Если сессия уже несёт
// другую пару, которой не требуется обновление, она возвращается без запроса.
// Любая неудача обмена оборачивает ErrRefreshFailed; сессия при этом не
// меняется, выход выполняет вызывающий. Отмена ctx вызывающего возвращает
// ctx.Err() без ErrRefreshFailed, общий запрос при этом продолжается.
func (m *Manager) RefreshToken(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "session.RefreshToken"

	ch := m.sf.DoChan(flightRefresh, func() (any, error) {
		fctx, cancel := m.detach(ctx)
		defer cancel()

		return m.refresh(fctx, refreshToken)
	})

	select {
	case <-ctx.Done():
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, res.Err)
		}

		return res.Val.(models.TokenPair), nil
	}
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	lg := log.FromOr(ctx, m.log)

	if cur, ok := m.currentFresh(refreshToken); ok {
		m.metrics.ObserveRefresh(metrics.RefreshShared)
		return cur, nil
	}

	fail := func(err error) (models.TokenPair, error) {
		lg.Warn("session_refresh_failed", slog.String("err", err.Error()))
		m.metrics.ObserveRefresh(metrics.RefreshFailed)
		return models.TokenPair{}, err
	}

	if refreshToken == "" {
		return fail(fmt.Errorf("%w: empty refresh token", ErrRefreshFailed))
	}

	resp, err := m.api.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrRefreshFailed, err))
	}
	if !resp.OK() {
		return fail(fmt.Errorf("%w: empty response (status %d)", ErrRefreshFailed, resp.Status))
	}

	// Новая пара проверяется до сохранения: непригодная не затирает текущую.
	pair := *resp.Body
	payload, err := token.Decode(pair.AccessToken)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrRefreshFailed, err))
	}
	if payload.SecondsToExpiry(m.now()) < 0 {
		return fail(fmt.Errorf("%w: refreshed token already expired", ErrRefreshFailed))
	}

	if err := m.store.Save(ctx, pair); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrRefreshFailed, err))
	}
	m.set(pair, payload)

	m.metrics.ObserveRefresh(metrics.RefreshOK)
	lg.Info("session_refreshed")

	return pair, nil
}

// currentFresh сообщает, что в памяти уже лежит пара, отличная от той, которую
// просят обновить, и ей не нужно обновление.
func (m *Manager) currentFresh(refreshToken string) (models.TokenPair, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil || m.payload == nil || m.token.RefreshToken == refreshToken {
		return models.TokenPair{}, false
	}
	if m.payload.SecondsToExpiry(m.now()) < m.thresholdSeconds() {
		return models.TokenPair{}, false
	}

	return *m.token, true
}

// Transfer переносит успешный ответ login/refresh в сессию: сохраняет пару,
// перезагружает состояние и переходит на посадочный маршрут.
//
// Ответ не 200 или без тела — no-op, nil. Ошибка сохранения возвращается,
// сессия при этом не меняется.
func (m *Manager) Transfer(ctx context.Context, resp *authapi.Response) error {
	const op = "session.Transfer"

	if !resp.OK() {
		log.FromOr(ctx, m.log).Debug("session_transfer_skipped")
		return nil
	}

	if err := m.store.Save(ctx, *resp.Body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	route, err := m.load(ctx, false)
	if route == "" {
		route = m.cfg.LandingRoute
	}
	m.navigate(ctx, route)

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Login выполняет вход через auth API и переносит ответ в сессию.
// Не-2xx ответ возвращается как *authapi.StatusError.
func (m *Manager) Login(ctx context.Context, in models.LoginRequest) error {
	const op = "session.Login"

	lg := log.FromOr(ctx, m.log)

	resp, err := m.api.Login(ctx, in)
	if err != nil {
		lg.Warn("session_login_failed",
			slog.String("user", redact.Username(in.Username)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%s: %w", op, authapi.ErrInvalidResponse)
	}

	if err := m.Transfer(ctx, resp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("session_login", slog.String("user", redact.Username(in.Username)))

	return nil
}

// Logout очищает сессию в памяти и в хранилище и переходит на login.
// Не возвращает ошибок, повторный вызов безопасен.
func (m *Manager) Logout(ctx context.Context) {
	m.clear(ctx, ReasonUser)
	m.navigate(ctx, m.cfg.LoginRoute)
}

func (m *Manager) clear(ctx context.Context, reason string) {
	m.Reset()

	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		log.FromOr(ctx, m.log).Warn("session_clear_failed",
			slog.String("reason", reason),
			slog.String("err", err.Error()),
		)
	}

	m.metrics.ObserveLogout(reason)
}

func (m *Manager) navigate(ctx context.Context, route string) {
	m.mu.RLock()
	nav := m.nav
	m.mu.RUnlock()

	if nav == nil || route == "" {
		return
	}

	if err := nav.Navigate(ctx, route); err != nil {
		log.FromOr(ctx, m.log).Warn("session_navigate_failed",
			slog.String("route", route),
			slog.String("err", err.Error()),
		)
	}
}
