package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSession_Observe(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewSession(reg)

	m.ObserveLoad(LoadExpired)
	m.ObserveLoad(LoadExpired)
	m.ObserveRefresh(RefreshFailed)
	m.ObserveLogout("user")

	require.Equal(t, 2.0, testutil.ToFloat64(m.Loads.WithLabelValues(LoadExpired)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues(RefreshFailed)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Logouts.WithLabelValues("user")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestSession_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Session
	require.NotPanics(t, func() {
		m.ObserveLoad(LoadAbsent)
		m.ObserveRefresh(RefreshOK)
		m.ObserveLogout("user")
	})
}

func TestNewClient_Registers(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewClient(reg)
	m.Requests.WithLabelValues("200", "get").Inc()

	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("200", "get")))
	require.Panics(t, func() { NewClient(reg) })
}
