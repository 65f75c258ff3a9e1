// router хранит таблицу маршрутов back-office и выполняет навигацию с
// guard-хуками. Router реализует session.Navigator.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	// ErrRouteNotFound — маршрута с таким именем или путём нет. HTTP: 404.
	ErrRouteNotFound = errors.New("route not found")
	// ErrTooManyRedirects — цепочка перенаправлений зациклилась.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Имена маршрутов, на которые ссылаются guards.
const (
	RouteLogin     = "login"
	RouteDashboard = "dashboard"
)

const (
	defaultMaxRedirects = 8
	historyLimit        = 64
)

// Guard вызывается перед входом в маршрут to (и в любой его дочерний).
// Непустой redirect прерывает навигацию и перенаправляет на указанный маршрут.
type Guard func(ctx context.Context, to Route) (redirect string, err error)

// Route — запись таблицы маршрутов.
type Route struct {
	Name   string
	Path   string
	Parent string
	// Redirect — маршрут по умолчанию для узла без собственного экрана.
	Redirect string

	guards []Guard
}

// Router — таблица маршрутов и текущее положение.
type Router struct {
	log          *slog.Logger
	maxRedirects int

	mu      sync.RWMutex
	routes  map[string]*Route
	byPath  map[string]string
	current string
	history []string
}

// New создаёт Router с таблицей маршрутов back-office.
func New(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	r := &Router{
		log:          log.With(slog.String("component", "router")),
		maxRedirects: defaultMaxRedirects,
		routes:       make(map[string]*Route),
		byPath:       make(map[string]string),
	}
	for _, rt := range backoffice() {
		r.add(rt)
	}

	return r
}

func backoffice() []Route {
	return []Route{
		{Name: RouteLogin, Path: "/login"},
		{Name: RouteDashboard, Path: "/", Redirect: "home"},
		{Name: "home", Path: "/home", Parent: RouteDashboard},
		{Name: "orders", Path: "/orders", Parent: RouteDashboard},
		{Name: "products", Path: "/products", Parent: RouteDashboard, Redirect: "products-list"},
		{Name: "products-list", Path: "/products", Parent: "products"},
		{Name: "products-create", Path: "/products/create", Parent: "products"},
		{Name: "customers", Path: "/customers", Parent: RouteDashboard},
		{Name: "vouchers", Path: "/vouchers", Parent: RouteDashboard},
		{Name: "categories", Path: "/categories", Parent: RouteDashboard},
		{Name: "carousels", Path: "/carousels", Parent: RouteDashboard},
		{Name: "managers", Path: "/managers", Parent: RouteDashboard},
		{Name: "profile", Path: "/profile", Parent: RouteDashboard},
		{Name: "settings", Path: "/settings", Parent: RouteDashboard},
	}
}

func (r *Router) add(rt Route) {
	cp := rt
	r.routes[rt.Name] = &cp
	// У products и products-list общий путь: побеждает лист.
	if rt.Redirect == "" || r.byPath[rt.Path] == "" {
		r.byPath[rt.Path] = rt.Name
	}
}

// BeforeEnter добавляет guard маршруту name.
func (r *Router) BeforeEnter(name string, g Guard) error {
	const op = "router.BeforeEnter"

	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.routes[name]
	if !ok {
		return fmt.Errorf("%s: %w: %q", op, ErrRouteNotFound, name)
	}
	rt.guards = append(rt.guards, g)

	return nil
}

// Routes возвращает копию таблицы в порядке объявления.
func (r *Router) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Route, 0, len(r.routes))
	for _, rt := range backoffice() {
		if cur, ok := r.routes[rt.Name]; ok {
			cp := *cur
			cp.guards = nil
			out = append(out, cp)
		}
	}

	return out
}

// Lookup ищет маршрут по имени.
func (r *Router) Lookup(name string) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[name]
	if !ok {
		return Route{}, false
	}

	return *rt, true
}

// Resolve ищет маршрут по пути ("/products/create"); хвостовой слэш игнорируется.
func (r *Router) Resolve(path string) (Route, error) {
	const op = "router.Resolve"

	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		path = "/"
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.byPath[path]
	if !ok {
		return Route{}, fmt.Errorf("%s: %w: %q", op, ErrRouteNotFound, path)
	}

	return *r.routes[name], nil
}

// Current — имя текущего маршрута ("" до первой навигации).
func (r *Router) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.current
}

// History — последние завершённые переходы, от старых к новым.
func (r *Router) History() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.history...)
}

type frameKey struct{}

// navFrame собирает навигацию, запрошенную изнутри guard'ов текущего перехода.
type navFrame struct {
	mu       sync.Mutex
	redirect string
}

func (f *navFrame) set(route string) {
	f.mu.Lock()
	f.redirect = route
	f.mu.Unlock()
}

func (f *navFrame) take() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	r := f.redirect
	f.redirect = ""
	return r
}

// Navigate реализует session.Navigator. Вызов изнутри guard'а не начинает
// вложенный переход, а становится перенаправлением текущего.
func (r *Router) Navigate(ctx context.Context, route string) error {
	if f, ok := ctx.Value(frameKey{}).(*navFrame); ok && f != nil {
		f.set(route)
		return nil
	}

	_, err := r.Push(ctx, route)
	return err
}

// Push переходит на маршрут name.
//
// Порядок:
//  1. статический Redirect узла применяется до guard'ов;
//  2. guards выполняются от корня к листу; первый непустой redirect (или
//     навигация, запрошенная изнутри guard'а) прерывает проверку, и переход
//     начинается заново с нового маршрута;
//  3. redirect на сам целевой маршрут игнорируется;
//  4. цепочка длиннее maxRedirects — ErrTooManyRedirects.
//
// Возвращает имя маршрута, на котором завершился переход.
func (r *Router) Push(ctx context.Context, name string) (string, error) {
	const op = "router.Push"

	target := name
	for hops := 0; ; hops++ {
		if hops > r.maxRedirects {
			return "", fmt.Errorf("%s: %w: %q", op, ErrTooManyRedirects, name)
		}

		rt, chain, ok := r.match(target)
		if !ok {
			return "", fmt.Errorf("%s: %w: %q", op, ErrRouteNotFound, target)
		}
		if rt.Redirect != "" {
			target = rt.Redirect
			continue
		}

		redirect, err := r.runGuards(ctx, rt, chain)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if redirect != "" {
			r.log.Debug("navigation_redirected",
				slog.String("from", target),
				slog.String("to", redirect),
			)
			target = redirect
			continue
		}

		r.commit(target)
		return target, nil
	}
}

func (r *Router) runGuards(ctx context.Context, to Route, chain []Route) (string, error) {
	frame := &navFrame{}
	gctx := context.WithValue(ctx, frameKey{}, frame)

	for _, node := range chain {
		for _, g := range node.guards {
			redirect, err := g(gctx, to)
			if err != nil {
				return "", err
			}
			if redirect == "" {
				redirect = frame.take()
			}
			if redirect != "" && redirect != to.Name {
				return redirect, nil
			}
		}
	}

	return "", nil
}

// match возвращает маршрут и цепочку от корня к нему.
func (r *Router) match(name string) (Route, []Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[name]
	if !ok {
		return Route{}, nil, false
	}

	var chain []Route
	for cur := rt; cur != nil; cur = r.routes[cur.Parent] {
		chain = append([]Route{*cur}, chain...)
		if cur.Parent == "" {
			break
		}
	}

	return *rt, chain, true
}

func (r *Router) commit(name string) {
	r.mu.Lock()
	r.current = name
	r.history = append(r.history, name)
	if len(r.history) > historyLimit {
		r.history = r.history[len(r.history)-historyLimit:]
	}
	r.mu.Unlock()

	r.log.Debug("navigated", slog.String("route", name))
}
