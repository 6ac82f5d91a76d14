package router

import (
	"fmt"
	"strings"

	"github.com/searchktools/tinyhttp/core/http"
)

// Route is one entry in the route table. It is immutable after NewRoute.
type Route struct {
	Method  http.Method
	Pattern string

	// StaticPrefix is the literal part of Pattern before its first capture.
	// Middleware scoped with UseFor is keyed on it.
	StaticPrefix string

	// Params lists capture names in pattern order.
	Params []string

	Handler http.Handler

	segments []segment
}

type segment struct {
	value   string
	capture bool
}

// NewRoute validates pattern and precomputes its segments. It panics on a
// pattern that does not begin with '/', an unnamed capture, or a duplicated
// capture name.
func NewRoute(method http.Method, pattern string, handler http.Handler) *Route {
	if pattern == "" || pattern[0] != '/' {
		panic("path must begin with '/'")
	}
	if handler == nil {
		panic(fmt.Sprintf("nil handler for %s %s", method, pattern))
	}

	parts := strings.Split(pattern, "/")
	segments := make([]segment, len(parts))
	var params []string
	seen := make(map[string]struct{})

	for i, part := range parts {
		if !strings.HasPrefix(part, ":") {
			segments[i] = segment{value: part}
			continue
		}

		name := part[1:]
		if name == "" {
			panic(fmt.Sprintf("unnamed parameter in pattern %q", pattern))
		}
		if _, dup := seen[name]; dup {
			panic(fmt.Sprintf("duplicate parameter %q in pattern %q", name, pattern))
		}
		seen[name] = struct{}{}
		params = append(params, name)
		segments[i] = segment{value: name, capture: true}
	}

	return &Route{
		Method:       method,
		Pattern:      pattern,
		StaticPrefix: StaticPrefix(pattern),
		Params:       params,
		Handler:      handler,
		segments:     segments,
	}
}

// Match reports whether path fits the route's pattern and returns the
// captured parameters. Segment counts must be equal; literal segments compare
// case-sensitively and captures accept any non-empty segment.
func (r *Route) Match(path string) (http.Params, bool) {
	if strings.Count(path, "/")+1 != len(r.segments) {
		return nil, false
	}

	var params http.Params
	for _, seg := range r.segments {
		var part string
		part, path, _ = strings.Cut(path, "/")

		if !seg.capture {
			if part != seg.value {
				return nil, false
			}
			continue
		}
		if part == "" {
			return nil, false
		}
		if params == nil {
			params = make(http.Params, len(r.Params))
		}
		params[seg.value] = part
	}

	if params == nil {
		params = http.Params{}
	}
	return params, true
}

// StaticPrefix returns the segments of pattern before its first ':' capture,
// joined by '/'. "/user/:id" yields "/user", "/" yields "/" and "/:id"
// yields "".
func StaticPrefix(pattern string) string {
	parts := strings.Split(pattern, "/")
	n := 0
	for n < len(parts) && !strings.HasPrefix(parts[n], ":") {
		n++
	}
	return strings.Join(parts[:n], "/")
}
