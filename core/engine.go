package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/searchktools/tinyhttp/core/http"
	"github.com/searchktools/tinyhttp/core/middleware"
	"github.com/searchktools/tinyhttp/core/observability"
	"github.com/searchktools/tinyhttp/core/pools"
	"github.com/searchktools/tinyhttp/core/router"
	"github.com/searchktools/tinyhttp/core/static"
	"github.com/searchktools/tinyhttp/logging"
)

// Engine owns the route table, the middleware registry and the listeners.
// Everything is registered before Serve; afterwards the tables are shared
// read-only by all connection goroutines.
type Engine struct {
	router     *router.Router
	middleware *middleware.Registry
	logger     *logging.Logger
	metrics    *observability.Metrics

	static      static.Provider
	staticFiles map[string]string

	bytePool       *pools.BytePool
	maxRequestSize int
	readTimeout    time.Duration

	freezeOnce sync.Once
	inShutdown atomic.Bool
	mu         sync.Mutex
	listeners  map[net.Listener]struct{}
	conns      map[net.Conn]struct{}
	wg         sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxRequestSize bounds the bytes buffered for one request.
func WithMaxRequestSize(n int) Option {
	return func(e *Engine) { e.maxRequestSize = n }
}

// WithReadTimeout sets a per-read deadline. Zero waits forever.
func WithReadTimeout(d time.Duration) Option {
	return func(e *Engine) { e.readTimeout = d }
}

// WithStatic sets the provider used for the Static table.
func WithStatic(p static.Provider) Option {
	return func(e *Engine) { e.static = p }
}

// NewEngine creates a new engine instance
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:         logging.Nop(),
		staticFiles:    make(map[string]string),
		bytePool:       pools.NewBytePool(),
		maxRequestSize: DefaultMaxRequestSize,
		listeners:      make(map[net.Listener]struct{}),
		conns:          make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.router = router.New(e.logger.Named("router"))
	e.middleware = middleware.NewRegistry(e.logger.Named("middleware"))
	return e
}

// Router returns the route table
func (e *Engine) Router() *router.Router {
	return e.router
}

// Middleware returns the middleware registry
func (e *Engine) Middleware() *middleware.Registry {
	return e.middleware
}

func (e *Engine) Logger() *logging.Logger {
	return e.logger
}

// Handle registers a route
func (e *Engine) Handle(method http.Method, pattern string, handler http.Handler) *router.Route {
	return e.router.Handle(method, pattern, handler)
}

// GET registers a GET route
func (e *Engine) GET(pattern string, handler http.HandlerFunc) *router.Route {
	return e.router.GET(pattern, handler)
}

// POST registers a POST route
func (e *Engine) POST(pattern string, handler http.HandlerFunc) *router.Route {
	return e.router.POST(pattern, handler)
}

// PUT registers a PUT route
func (e *Engine) PUT(pattern string, handler http.HandlerFunc) *router.Route {
	return e.router.PUT(pattern, handler)
}

// PATCH registers a PATCH route
func (e *Engine) PATCH(pattern string, handler http.HandlerFunc) *router.Route {
	return e.router.PATCH(pattern, handler)
}

// DELETE registers a DELETE route
func (e *Engine) DELETE(pattern string, handler http.HandlerFunc) *router.Route {
	return e.router.DELETE(pattern, handler)
}

// Group starts a route group; pass it to AddGroup once populated.
func (e *Engine) Group(prefix string) *router.Group {
	return e.router.Group(prefix)
}

func (e *Engine) AddGroup(g *router.Group) {
	e.router.AddGroup(g)
}

// Merge appends the routes of r.
func (e *Engine) Merge(r *router.Router) {
	e.router.Merge(r)
}

// Use registers global middleware
func (e *Engine) Use(fn ...middleware.Func) {
	e.middleware.Use(fn...)
}

// UseFor registers middleware scoped to the static prefix of pattern.
func (e *Engine) UseFor(pattern string, fn ...middleware.Func) {
	e.middleware.UseFor(pattern, fn...)
}

// Static serves file from the static provider for GET requests to route.
// The table is checked before route matching.
func (e *Engine) Static(route, file string) {
	e.staticFiles[route] = file
}

// Result is the outcome of processing one buffered request.
type Result struct {
	Response  []byte
	Status    int
	Request   *http.Request // nil when parsing failed
	RequestID string
}

// Process parses data as a single HTTP/1 request and produces the full
// response. It never returns an empty response.
func (e *Engine) Process(data []byte) Result {
	req, err := http.ParseRequest(data)
	if err != nil {
		e.logger.Debug("parse failure", zap.Error(err))
		resp := http.BadRequest().Text("Bad Request").Build()
		return Result{Response: resp, Status: 400}
	}

	resp, requestID := e.dispatch(req)
	return Result{
		Response:  resp,
		Status:    http.StatusOf(resp),
		Request:   req,
		RequestID: requestID,
	}
}

func (e *Engine) dispatch(req *http.Request) (resp []byte, requestID string) {
	ctx := http.NewContext(req, nil)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panic",
				zap.String("method", req.RawMethod),
				zap.String("path", req.Path),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			resp = ctx.Respond().Status(500).Text("Internal Server Error").Build()
		}
	}()

	if resp, ok := e.serveStatic(ctx); ok {
		return resp, ""
	}

	route, params, ok := e.router.Find(req.Path, req.Method)
	if !ok {
		return ctx.Respond().Status(404).Text("Not Found").Build(), ""
	}

	ctx = http.NewContext(req, params)
	ctx, resp = e.middleware.Run(ctx, route)
	requestID = middleware.GetRequestID(ctx)
	if resp != nil {
		return resp, requestID
	}

	resp = route.Handler.Serve(ctx)
	if len(resp) == 0 {
		panic(fmt.Sprintf("handler for %s %s returned no response", req.RawMethod, route.Pattern))
	}
	return resp, requestID
}

func (e *Engine) serveStatic(ctx http.Context) ([]byte, bool) {
	if e.static == nil || ctx.Method() != http.MethodGet {
		return nil, false
	}
	file, ok := e.staticFiles[ctx.Path()]
	if !ok {
		return nil, false
	}
	data, contentType, ok := e.static.Lookup(file)
	if !ok {
		e.logger.Warn("static file missing", zap.String("route", ctx.Path()), zap.String("file", file))
		return nil, false
	}
	return ctx.Respond().ContentType(contentType).Body(data).Build(), true
}

// Run listens on addr and serves until Shutdown.
func (e *Engine) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	e.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
	return e.Serve(ln)
}

// Serve accepts connections on ln, handling each on its own goroutine. The
// route table and middleware are frozen on the first call.
func (e *Engine) Serve(ln net.Listener) error {
	e.freeze()

	if !e.trackListener(ln, true) {
		return ErrServerClosed
	}
	defer e.trackListener(ln, false)

	var tempDelay time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if e.inShutdown.Load() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay = min(tempDelay*2, time.Second)
				}
				e.logger.Warn("accept error, retrying", zap.Error(err), zap.Duration("delay", tempDelay))
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		if !e.trackConn(nc, true) {
			nc.Close()
			continue
		}
		go func() {
			defer e.wg.Done()
			defer e.trackConn(nc, false)
			e.serveConn(nc)
		}()
	}
}

// Shutdown stops accepting connections and waits for in-flight ones to
// finish. If ctx ends first, remaining connections are closed and ctx's
// error is returned.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.inShutdown.Store(true)

	e.mu.Lock()
	for ln := range e.listeners {
		ln.Close()
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.mu.Lock()
		for nc := range e.conns {
			nc.Close()
		}
		e.mu.Unlock()
		return ctx.Err()
	}
}

func (e *Engine) freeze() {
	e.freezeOnce.Do(func() {
		if e.router.Len() == 0 {
			e.logger.Warn("no routes have been registered; register routes with GET, POST, PUT, PATCH or DELETE before serving")
		}
		e.router.Freeze()
		e.middleware.Freeze()
	})
}

func (e *Engine) trackListener(ln net.Listener, add bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !add {
		delete(e.listeners, ln)
		return true
	}
	if e.inShutdown.Load() {
		return false
	}
	e.listeners[ln] = struct{}{}
	return true
}

// trackConn registers nc and, on add, reserves a WaitGroup slot for it.
func (e *Engine) trackConn(nc net.Conn, add bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !add {
		delete(e.conns, nc)
		return true
	}
	if e.inShutdown.Load() {
		return false
	}
	e.conns[nc] = struct{}{}
	e.wg.Add(1)
	return true
}
