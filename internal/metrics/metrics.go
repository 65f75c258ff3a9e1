// metrics описывает Prometheus-метрики консоли: жизненный цикл сессии и
// исходящие запросы общего HTTP-клиента.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "backoffice_console"

// Исходы загрузки сессии (label "outcome").
const (
	LoadAuthenticated = "authenticated"
	LoadRefreshed     = "refreshed"
	LoadAbsent        = "absent"
	LoadExpired       = "expired"
	LoadMalformed     = "malformed"
	LoadFailed        = "failed"
)

// Результаты обновления (label "result").
const (
	RefreshOK     = "ok"
	RefreshShared = "shared"
	RefreshFailed = "failed"
)

// Session — счётчики жизненного цикла сессии. Методы безопасны для nil-получателя.
type Session struct {
	Loads     *prometheus.CounterVec
	Refreshes *prometheus.CounterVec
	Logouts   *prometheus.CounterVec
}

// NewSession создаёт и регистрирует метрики сессии в reg (nil — без регистрации).
func NewSession(reg prometheus.Registerer) *Session {
	m := &Session{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "loads_total",
			Help:      "Session loads by outcome.",
		}, []string{"outcome"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Token refresh attempts by result.",
		}, []string{"result"}),
		Logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Session logouts by reason.",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.Loads, m.Refreshes, m.Logouts)
	}

	return m
}

func (m *Session) ObserveLoad(outcome string) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(outcome).Inc()
}

func (m *Session) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
}

func (m *Session) ObserveLogout(reason string) {
	if m == nil {
		return
	}
	m.Logouts.WithLabelValues(reason).Inc()
}

// Client — метрики общего HTTP-клиента (labels совместимы с promhttp.InstrumentRoundTripper*).
type Client struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewClient создаёт и регистрирует метрики клиента в reg (nil — без регистрации).
func NewClient(reg prometheus.Registerer) *Client {
	m := &Client{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Outgoing back-office API requests.",
		}, []string{"code", "method"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Outgoing back-office API request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration)
	}

	return m
}
