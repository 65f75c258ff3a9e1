package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	authed  bool
	loadErr error
	loads   int
	// onLoad эмулирует навигацию, которую сессия запрашивает из LoadAuth.
	onLoad func(ctx context.Context)
}

func (s *fakeSession) LoadAuth(ctx context.Context) error {
	s.loads++
	if s.onLoad != nil {
		s.onLoad(ctx)
	}
	return s.loadErr
}

func (s *fakeSession) IsAuthenticated() bool { return s.authed }

func TestResolve(t *testing.T) {
	t.Parallel()

	r := New(nil)

	tests := []struct {
		path string
		want string
	}{
		{"/", "dashboard"},
		{"/login", "login"},
		{"/orders/", "orders"},
		{"/products", "products-list"},
		{"/products/create", "products-create"},
		{"/settings", "settings"},
	}
	for _, tt := range tests {
		rt, err := r.Resolve(tt.path)
		require.NoError(t, err, tt.path)
		require.Equal(t, tt.want, rt.Name, tt.path)
	}

	_, err := r.Resolve("/nope")
	require.ErrorIs(t, err, ErrRouteNotFound)
}

func TestPush_StaticRedirects(t *testing.T) {
	t.Parallel()

	r := New(nil)
	ctx := context.Background()

	got, err := r.Push(ctx, "dashboard")
	require.NoError(t, err)
	require.Equal(t, "home", got)

	got, err = r.Push(ctx, "products")
	require.NoError(t, err)
	require.Equal(t, "products-list", got)

	require.Equal(t, "products-list", r.Current())
	require.Equal(t, []string{"home", "products-list"}, r.History())
}

func TestPush_UnknownRoute(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Push(context.Background(), "reports")
	require.ErrorIs(t, err, ErrRouteNotFound)
}

func TestAuthGuard_CoversChildren(t *testing.T) {
	t.Parallel()

	r := New(nil)
	s := &fakeSession{}
	require.NoError(t, Install(r, s, nil))

	got, err := r.Push(context.Background(), "products-create")
	require.NoError(t, err)
	require.Equal(t, "login", got)
	require.Equal(t, 2, s.loads, "auth guard then login guard")
}

func TestLoginGuard_AuthenticatedGoesToDashboard(t *testing.T) {
	t.Parallel()

	r := New(nil)
	s := &fakeSession{authed: true}
	require.NoError(t, Install(r, s, nil))

	got, err := r.Push(context.Background(), "login")
	require.NoError(t, err)
	require.Equal(t, "home", got)
}

func TestGuards_LoadError(t *testing.T) {
	t.Parallel()

	r := New(nil)
	s := &fakeSession{authed: true, loadErr: errors.New("refresh failed")}
	require.NoError(t, Install(r, s, nil))

	// AuthGuard отправляет на login, LoginGuard при ошибке оставляет на login.
	got, err := r.Push(context.Background(), "orders")
	require.NoError(t, err)
	require.Equal(t, "login", got)
}

func TestNavigate_InsideGuard_BecomesRedirect(t *testing.T) {
	t.Parallel()

	r := New(nil)
	s := &fakeSession{authed: true}
	s.onLoad = func(ctx context.Context) {
		require.NoError(t, r.Navigate(ctx, "profile"))
	}
	require.NoError(t, r.BeforeEnter("orders", func(ctx context.Context, to Route) (string, error) {
		return "", s.LoadAuth(ctx)
	}))

	got, err := r.Push(context.Background(), "orders")
	require.NoError(t, err)
	require.Equal(t, "profile", got)
	require.Equal(t, []string{"profile"}, r.History())
}

func TestPush_RedirectLoop(t *testing.T) {
	t.Parallel()

	r := New(nil)
	require.NoError(t, r.BeforeEnter("orders", func(context.Context, Route) (string, error) { return "customers", nil }))
	require.NoError(t, r.BeforeEnter("customers", func(context.Context, Route) (string, error) { return "orders", nil }))

	_, err := r.Push(context.Background(), "orders")
	require.ErrorIs(t, err, ErrTooManyRedirects)
	require.Empty(t, r.Current())
}

func TestPush_GuardError(t *testing.T) {
	t.Parallel()

	r := New(nil)
	boom := errors.New("boom")
	require.NoError(t, r.BeforeEnter("vouchers", func(context.Context, Route) (string, error) { return "", boom }))

	_, err := r.Push(context.Background(), "vouchers")
	require.ErrorIs(t, err, boom)
}

func TestBeforeEnter_UnknownRoute(t *testing.T) {
	t.Parallel()

	err := New(nil).BeforeEnter("reports", func(context.Context, Route) (string, error) { return "", nil })
	require.ErrorIs(t, err, ErrRouteNotFound)
}

func TestRoutes_Table(t *testing.T) {
	t.Parallel()

	routes := New(nil).Routes()
	require.Len(t, routes, 14)
	require.Equal(t, "login", routes[0].Name)

	rt, ok := New(nil).Lookup("products-create")
	require.True(t, ok)
	require.Equal(t, "products", rt.Parent)
}
