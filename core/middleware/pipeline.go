// Package middleware runs interceptors between routing and the handler.
package middleware

import (
	"strings"

	"go.uber.org/zap"

	"github.com/searchktools/tinyhttp/core/http"
	"github.com/searchktools/tinyhttp/core/router"
	"github.com/searchktools/tinyhttp/logging"
)

// Func receives the context by value. Returning a non-nil response halts the
// chain: later middleware and the handler do not run and the response is sent
// as-is. Otherwise the returned context is passed on.
type Func func(ctx http.Context) (http.Context, []byte)

// Chain is an ordered list of middleware.
type Chain struct {
	handlers []Func
}

// NewChain creates an empty chain
func NewChain() *Chain {
	return &Chain{
		handlers: make([]Func, 0, 8),
	}
}

// Use adds middleware to the end of the chain
func (c *Chain) Use(fn ...Func) *Chain {
	c.handlers = append(c.handlers, fn...)
	return c
}

func (c *Chain) Len() int {
	return len(c.handlers)
}

// Run executes the chain in order, stopping at the first terminal response.
func (c *Chain) Run(ctx http.Context) (http.Context, []byte) {
	for _, h := range c.handlers {
		var resp []byte
		ctx, resp = h(ctx)
		if resp != nil {
			return ctx, resp
		}
	}
	return ctx, nil
}

// Compile trims the backing slice to its exact size
func (c *Chain) Compile() *Chain {
	if len(c.handlers) == cap(c.handlers) {
		return c
	}
	compiled := make([]Func, len(c.handlers))
	copy(compiled, c.handlers)
	c.handlers = compiled
	return c
}

// Registry holds global middleware and middleware scoped to a route's static
// prefix. Every route sharing a prefix shares its scoped middleware.
type Registry struct {
	global   *Chain
	prefixed map[string]*Chain
	logger   *logging.Logger
	frozen   bool
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		global:   NewChain(),
		prefixed: make(map[string]*Chain),
		logger:   logger,
	}
}

// Use registers global middleware, run before any scoped middleware.
func (r *Registry) Use(fn ...Func) {
	r.mustBeOpen()
	r.global.Use(fn...)
}

// UseFor registers middleware for every route whose static prefix equals
// ScopeKey(pattern). A trailing wildcard such as "/api/*" scopes to "/api".
func (r *Registry) UseFor(pattern string, fn ...Func) {
	r.mustBeOpen()

	key := ScopeKey(pattern)
	chain, ok := r.prefixed[key]
	if !ok {
		chain = NewChain()
		r.prefixed[key] = chain
	}
	chain.Use(fn...)

	r.logger.Debug("scoped middleware registered",
		zap.String("pattern", pattern),
		zap.String("scope", key),
		zap.Int("count", chain.Len()),
	)
}

// ScopeKey drops everything from the first '*' segment onward and returns the
// static prefix of what remains.
func ScopeKey(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, "*") {
			parts = parts[:i]
			break
		}
	}
	return router.StaticPrefix(strings.Join(parts, "/"))
}

// Run executes global middleware, then the middleware scoped to
// route.StaticPrefix. A nil route runs only the global chain.
func (r *Registry) Run(ctx http.Context, route *router.Route) (http.Context, []byte) {
	ctx, resp := r.global.Run(ctx)
	if resp != nil || route == nil {
		return ctx, resp
	}
	if chain, ok := r.prefixed[route.StaticPrefix]; ok {
		return chain.Run(ctx)
	}
	return ctx, nil
}

// Execute runs the middleware for route and then its handler, unless a
// middleware answered first.
func (r *Registry) Execute(ctx http.Context, route *router.Route) []byte {
	ctx, resp := r.Run(ctx, route)
	if resp != nil {
		return resp
	}
	return route.Handler.Serve(ctx)
}

// Freeze compiles every chain and rejects further registration.
func (r *Registry) Freeze() {
	r.global.Compile()
	for _, chain := range r.prefixed {
		chain.Compile()
	}
	r.frozen = true
}

func (r *Registry) mustBeOpen() {
	if r.frozen {
		panic("middleware: registered after serving started")
	}
}
