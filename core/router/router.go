// Package router holds the ordered route table. The first route whose method
// and pattern both match a request wins; there is no specificity ranking, so
// register "/user/new" before "/user/:id" if both exist.
package router

import (
	"go.uber.org/zap"

	"github.com/searchktools/tinyhttp/core/http"
	"github.com/searchktools/tinyhttp/logging"
)

// Router is an ordered list of routes. It is built before serving and read
// concurrently afterwards without locking.
type Router struct {
	routes []*Route
	logger *logging.Logger
	frozen bool
}

// New creates an empty router. A nil logger discards output.
func New(logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Router{logger: logger}
}

// Handle appends a route.
func (r *Router) Handle(method http.Method, pattern string, handler http.Handler) *Route {
	route := NewRoute(method, pattern, handler)
	r.add(route)
	return route
}

// Add appends a route for a handler function.
func (r *Router) Add(method http.Method, pattern string, handler http.HandlerFunc) *Route {
	return r.Handle(method, pattern, handler)
}

func (r *Router) GET(pattern string, handler http.HandlerFunc) *Route {
	return r.Add(http.MethodGet, pattern, handler)
}

func (r *Router) POST(pattern string, handler http.HandlerFunc) *Route {
	return r.Add(http.MethodPost, pattern, handler)
}

func (r *Router) PUT(pattern string, handler http.HandlerFunc) *Route {
	return r.Add(http.MethodPut, pattern, handler)
}

func (r *Router) PATCH(pattern string, handler http.HandlerFunc) *Route {
	return r.Add(http.MethodPatch, pattern, handler)
}

func (r *Router) DELETE(pattern string, handler http.HandlerFunc) *Route {
	return r.Add(http.MethodDelete, pattern, handler)
}

// Group starts a batch of routes sharing prefix. Nothing is registered until
// the group is passed to AddGroup.
func (r *Router) Group(prefix string) *Group {
	return NewGroup(prefix)
}

// AddGroup appends every route of g, in the order they were declared.
func (r *Router) AddGroup(g *Group) {
	for _, route := range g.Routes() {
		r.add(route)
	}
}

// Merge appends all routes of other after the existing ones.
func (r *Router) Merge(other *Router) {
	for _, route := range other.routes {
		r.add(route)
	}
}

// Routes returns the table in registration order.
func (r *Router) Routes() []*Route {
	out := make([]*Route, len(r.routes))
	copy(out, r.routes)
	return out
}

func (r *Router) Len() int {
	return len(r.routes)
}

// Find returns the first route matching method and path, with its captured
// parameters.
func (r *Router) Find(path string, method http.Method) (*Route, http.Params, bool) {
	for _, route := range r.routes {
		if route.Method != method {
			continue
		}
		if params, ok := route.Match(path); ok {
			return route, params, true
		}
	}
	return nil, nil, false
}

// Freeze marks the table read-only. Registering afterwards panics.
func (r *Router) Freeze() {
	r.frozen = true
}

func (r *Router) add(route *Route) {
	if r.frozen {
		panic("router: route registered after serving started: " + route.Method.String() + " " + route.Pattern)
	}
	r.routes = append(r.routes, route)
	r.logger.Debug("route registered",
		zap.String("method", route.Method.String()),
		zap.String("pattern", route.Pattern),
		zap.String("static_prefix", route.StaticPrefix),
	)
}
