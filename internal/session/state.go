package session

// State — концептуальное состояние сессии.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	// Expiring — до истечения access-токена меньше порога обновления.
	Expiring
	// Expired — access-токен уже истёк, но сессия ещё не перезагружалась.
	Expired
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Expiring:
		return "expiring"
	case Expired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

// State вычисляет состояние по удерживаемому payload и текущему времени.
func (m *Manager) State() State {
	m.mu.RLock()
	p := m.payload
	m.mu.RUnlock()

	if p == nil {
		return Unauthenticated
	}

	left := p.SecondsToExpiry(m.now())
	switch {
	case left < 0:
		return Expired
	case left < m.thresholdSeconds():
		return Expiring
	default:
		return Authenticated
	}
}
