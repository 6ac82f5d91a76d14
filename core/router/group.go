package router

import (
	"strings"

	"github.com/searchktools/tinyhttp/core/http"
)

// Group collects routes under a common prefix. It does no matching itself.
type Group struct {
	prefix string
	// *Route or *Group, in declaration order
	items []any
}

// NewGroup creates a group. A trailing '/' on prefix is dropped so that
// Group("/api/").GET("/users") yields "/api/users".
func NewGroup(prefix string) *Group {
	return &Group{prefix: strings.TrimSuffix(prefix, "/")}
}

func (g *Group) Prefix() string {
	return g.prefix
}

// Handle records a route with the group prefix prepended.
func (g *Group) Handle(method http.Method, pattern string, handler http.Handler) *Route {
	route := NewRoute(method, g.join(pattern), handler)
	g.items = append(g.items, route)
	return route
}

func (g *Group) Add(method http.Method, pattern string, handler http.HandlerFunc) *Route {
	return g.Handle(method, pattern, handler)
}

func (g *Group) GET(pattern string, handler http.HandlerFunc) *Route {
	return g.Add(http.MethodGet, pattern, handler)
}

func (g *Group) POST(pattern string, handler http.HandlerFunc) *Route {
	return g.Add(http.MethodPost, pattern, handler)
}

func (g *Group) PUT(pattern string, handler http.HandlerFunc) *Route {
	return g.Add(http.MethodPut, pattern, handler)
}

func (g *Group) PATCH(pattern string, handler http.HandlerFunc) *Route {
	return g.Add(http.MethodPatch, pattern, handler)
}

func (g *Group) DELETE(pattern string, handler http.HandlerFunc) *Route {
	return g.Add(http.MethodDelete, pattern, handler)
}

// Group nests a sub-group. Its routes keep their declaration position
// relative to the parent's own routes.
func (g *Group) Group(prefix string) *Group {
	sub := NewGroup(g.join(prefix))
	g.items = append(g.items, sub)
	return sub
}

// Routes flattens the group and its sub-groups in declaration order.
func (g *Group) Routes() []*Route {
	out := make([]*Route, 0, len(g.items))
	for _, item := range g.items {
		switch v := item.(type) {
		case *Route:
			out = append(out, v)
		case *Group:
			out = append(out, v.Routes()...)
		}
	}
	return out
}

func (g *Group) join(pattern string) string {
	if pattern == "" || pattern == "/" {
		if g.prefix == "" {
			return "/"
		}
		return g.prefix
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return g.prefix + pattern
}
