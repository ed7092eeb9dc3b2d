package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// NotFoundName is the name of the default not-found route.
const NotFoundName = "not-found"

// NotFoundTitle is the title of the default not-found route.
const NotFoundTitle = "页面未找到"

// Resolution is the outcome of resolving a path.
type Resolution struct {
	// Path is the canonical request path.
	Path string

	// Route is the matched route, or the not-found route.
	Route Route

	// Params are the values of :param and *catchall segments.
	Params map[string]string

	// Title is the document title to apply.
	Title string

	// Component is the loaded page. It is nil for a not-found route without
	// a loader.
	Component *Component

	// NotFound is set when no route matched.
	NotFound bool
}

// Option configures a Router.
type Option func(*Router)

// WithNotFound replaces the default not-found route. Its path is ignored and
// its loader may be nil.
func WithNotFound(r Route) Option {
	return func(rt *Router) {
		rt.notFound = &entry{route: r}
	}
}

// WithTitleFormat formats every resolved title with format, e.g.
// "%s | printdesk". An empty format leaves titles unchanged.
func WithTitleFormat(format string) Option {
	return func(rt *Router) {
		rt.titleFormat = format
	}
}

// WithLogger sets the logger used for load events.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Router) {
		rt.logger = l
	}
}

// Router resolves paths against an ordered route table.
// It is safe for concurrent use.
type Router struct {
	entries     []*entry
	notFound    *entry
	titleFormat string
	logger      *slog.Logger
}

// New validates the route table and builds a Router.
func New(routes []Route, opts ...Option) (*Router, error) {
	r := &Router{
		notFound: &entry{route: Route{Name: NotFoundName, Meta: Meta{Title: NotFoundTitle}}},
		logger:   slog.Default().With("component", "router"),
	}
	for _, opt := range opts {
		opt(r)
	}

	paths := make(map[string]string, len(routes))
	names := make(map[string]bool, len(routes))
	for _, route := range routes {
		p, err := compile(route.Path)
		if err != nil {
			return nil, err
		}
		if prev, ok := paths[p.key()]; ok {
			return nil, fmt.Errorf("%w: %q and %q", ErrDuplicatePath, prev, route.Path)
		}
		if route.Name == "" {
			return nil, routeError(ErrEmptyName, route.Path)
		}
		if names[route.Name] {
			return nil, routeError(ErrDuplicateName, route.Name)
		}
		if route.Load == nil {
			return nil, routeError(ErrNilLoader, route.Path)
		}
		paths[p.key()] = route.Path
		names[route.Name] = true
		r.entries = append(r.entries, &entry{route: route, pattern: p})
	}
	return r, nil
}

// Routes returns the route table in declaration order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.route
	}
	return out
}

// NotFoundRoute returns the route used for unmatched paths.
func (r *Router) NotFoundRoute() Route {
	return r.notFound.route
}

// Match returns the first route whose pattern matches path, without loading
// its component. path is the escaped request path, as from
// url.URL.EscapedPath; parameter values are unescaped once here.
func (r *Router) Match(path string) (*Resolution, bool, error) {
	canon, err := Canonicalize(path)
	if err != nil {
		return nil, false, err
	}
	e, params := r.lookup(canon)
	if e == nil {
		return r.resolution(canon, r.notFound, nil, true), false, nil
	}
	return r.resolution(canon, e, params, false), true, nil
}

// Resolve matches path and loads the route's component on first use.
// Unmatched paths resolve to the not-found route with NotFound set.
func (r *Router) Resolve(ctx context.Context, path string) (*Resolution, error) {
	canon, err := Canonicalize(path)
	if err != nil {
		return nil, err
	}

	e, params := r.lookup(canon)
	notFound := e == nil
	if notFound {
		e = r.notFound
	}

	res := r.resolution(canon, e, params, notFound)
	if e.route.Load == nil {
		return res, nil
	}

	comp, err := e.load(ctx, r.logger)
	if err != nil {
		return nil, &LoadError{Route: e.route.Name, Err: err}
	}
	res.Component = comp
	return res, nil
}

// Loaded reports whether the named route's component has been loaded.
func (r *Router) Loaded(name string) bool {
	e := r.notFound
	for _, candidate := range r.entries {
		if candidate.route.Name == name {
			e = candidate
			break
		}
	}
	if e.route.Name != name {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.comp != nil
}

func (r *Router) lookup(canon string) (*entry, map[string]string) {
	for _, e := range r.entries {
		if params, ok := e.pattern.match(canon); ok {
			return e, params
		}
	}
	return nil, nil
}

func (r *Router) resolution(canon string, e *entry, params map[string]string, notFound bool) *Resolution {
	return &Resolution{
		Path:     canon,
		Route:    e.route,
		Params:   params,
		Title:    r.title(e.route.Meta.Title),
		NotFound: notFound,
	}
}

func (r *Router) title(t string) string {
	if r.titleFormat == "" || t == "" {
		return t
	}
	return fmt.Sprintf(r.titleFormat, t)
}

// entry is a route with its compiled pattern and memoised component.
type entry struct {
	route   Route
	pattern pattern

	mu       sync.Mutex
	comp     *Component
	inflight *call
}

// call is one in-progress load shared by concurrent resolvers.
type call struct {
	done chan struct{}
	comp *Component
	err  error
}

func (e *entry) load(ctx context.Context, logger *slog.Logger) (*Component, error) {
	e.mu.Lock()
	if e.comp != nil {
		comp := e.comp
		e.mu.Unlock()
		return comp, nil
	}
	if c := e.inflight; c != nil {
		e.mu.Unlock()
		select {
		case <-c.done:
			return c.comp, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	e.inflight = c
	e.mu.Unlock()

	c.comp, c.err = e.route.Load(ctx)
	if c.err == nil && c.comp == nil {
		c.comp = &Component{}
	}

	e.mu.Lock()
	e.inflight = nil
	if c.err == nil {
		e.comp = c.comp
	}
	e.mu.Unlock()
	close(c.done)

	if c.err != nil {
		logger.Warn("component load failed", "route", e.route.Name, "error", c.err)
		return nil, c.err
	}
	logger.Debug("component loaded", "route", e.route.Name, "script", c.comp.Script)
	return c.comp, nil
}
