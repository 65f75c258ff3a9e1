// session управляет жизненным циклом клиентской сессии back-office консоли:
// хранение пары токенов, проверка срока действия access-токена, тихое
// обновление через refresh-токен и выход.
//
// Основные аспекты:
//   - Manager создаётся один раз на процесс и передаётся роутеру (guards)
//     и клиентскому слою (TokenSource) по ссылке;
//   - состояние защищено sync.RWMutex, загрузка и обновление объединяются
//     через singleflight, поэтому конкурентные навигации не порождают
//     повторных refresh-вызовов;
//   - заголовок Authorization ставится не здесь: клиенты читают текущий
//     токен через AccessToken в момент отправки запроса.
package session

//go:generate mockgen -destination=../../mocks/mock_session.go -package=mocks github.com/pribylovaa/backoffice-console/internal/session AuthAPI

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/backoffice-console/internal/authapi"
	"github.com/pribylovaa/backoffice-console/internal/config"
	"github.com/pribylovaa/backoffice-console/internal/metrics"
	"github.com/pribylovaa/backoffice-console/internal/models"
	"github.com/pribylovaa/backoffice-console/internal/storage"
)

var (
	// ErrRefreshFailed — обновление пары не удалось (сеть, не-2xx, пустое тело
	// или непригодная новая пара). Вызывающий обязан завершить сессию.
	// HTTP: 401.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrNotAuthenticated — операция требует активной сессии. HTTP: 401.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Причины выхода (label "reason" метрики logouts_total).
const (
	ReasonUser          = "user"
	ReasonAbsent        = "absent"
	ReasonExpired       = "expired"
	ReasonMalformed     = "malformed"
	ReasonStorage       = "storage"
	ReasonRefreshFailed = "refresh_failed"
)

// AuthAPI — внешний auth API (см. authapi.Client).
type AuthAPI interface {
	Login(ctx context.Context, in models.LoginRequest) (*authapi.Response, error)
	Refresh(ctx context.Context, in models.RefreshTokenRequest) (*authapi.Response, error)
}

// Navigator переключает маршрут по имени (см. router.Router).
type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// Manager — единственный владелец состояния сессии.
type Manager struct {
	api   AuthAPI
	store *storage.TokenStore
	nav   Navigator
	cfg   config.SessionConfig
	log   *slog.Logger

	metrics *metrics.Session // может быть nil
	now     func() time.Time

	mu      sync.RWMutex
	token   *models.TokenPair
	payload *models.TokenPayload

	sf singleflight.Group
}

// New создаёт Manager. nav может быть nil (навигация не нужна, например в CLI),
// пустые имена маршрутов заменяются на "login" и "dashboard".
func New(api AuthAPI, store *storage.TokenStore, nav Navigator, cfg config.SessionConfig, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = "login"
	}
	if cfg.LandingRoute == "" {
		cfg.LandingRoute = "dashboard"
	}

	return &Manager{
		api:   api,
		store: store,
		nav:   nav,
		cfg:   cfg,
		log:   log.With(slog.String("component", "session")),
		now:   time.Now,
	}
}

// SetMetrics устанавливает метрики сессии (опционально).
func (m *Manager) SetMetrics(s *metrics.Session) {
	m.metrics = s
}

// SetClock подменяет источник текущего времени.
func (m *Manager) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	m.now = now
}

// SetNavigator устанавливает навигатор после конструирования: роутер и
// менеджер ссылаются друг на друга.
func (m *Manager) SetNavigator(nav Navigator) {
	m.mu.Lock()
	m.nav = nav
	m.mu.Unlock()
}

// IsAuthenticated — в памяти есть пара и её payload успешно декодирован.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.token != nil && m.payload != nil
}

// Token возвращает копию текущей пары.
func (m *Manager) Token() (models.TokenPair, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return models.TokenPair{}, false
	}

	return *m.token, true
}

// Payload возвращает копию декодированного payload.
func (m *Manager) Payload() (models.TokenPayload, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.payload == nil {
		return models.TokenPayload{}, false
	}

	return *m.payload, true
}

// AccessToken реализует TokenSource клиентского слоя: текущий access-токен
// или "" без ошибки, если сессии нет.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return "", nil
	}

	return m.token.AccessToken, nil
}

// Reset очищает состояние в памяти, не трогая хранилище.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.token = nil
	m.payload = nil
	m.mu.Unlock()
}

func (m *Manager) set(pair models.TokenPair, payload models.TokenPayload) {
	m.mu.Lock()
	m.token = &pair
	m.payload = &payload
	m.mu.Unlock()
}

func (m *Manager) thresholdSeconds() int64 {
	return int64(m.cfg.RefreshThreshold / time.Second)
}
