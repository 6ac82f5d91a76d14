package middleware

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/tinyhttp/core/http"
	"github.com/searchktools/tinyhttp/core/router"
)

func newContext(t *testing.T, raw string) http.Context {
	t.Helper()
	req, err := http.ParseRequest([]byte(raw))
	require.NoError(t, err)
	return http.NewContext(req, nil)
}

func route(pattern string, h http.HandlerFunc) *router.Route {
	return router.NewRoute(http.MethodGet, pattern, h)
}

// record returns middleware that appends name to trace.
func record(trace *[]string, name string) Func {
	return func(ctx http.Context) (http.Context, []byte) {
		*trace = append(*trace, name)
		return ctx, nil
	}
}

func TestChainRunsInOrder(t *testing.T) {
	var trace []string
	chain := NewChain().Use(record(&trace, "a"), record(&trace, "b")).Use(record(&trace, "c"))

	_, resp := chain.Compile().Run(newContext(t, "GET / HTTP/1.1\r\n\r\n"))
	assert.Nil(t, resp)
	assert.Equal(t, []string{"a", "b", "c"}, trace)
	assert.Equal(t, 3, chain.Len())
}

func TestRegistryOrderGlobalThenScoped(t *testing.T) {
	var trace []string
	reg := NewRegistry(nil)
	reg.UseFor("/user/*", record(&trace, "scoped-1"))
	reg.Use(record(&trace, "global-1"))
	reg.UseFor("/user/:id", record(&trace, "scoped-2"))
	reg.Use(record(&trace, "global-2"))
	reg.UseFor("/admin/*", record(&trace, "admin"))
	reg.Freeze()

	h := func(ctx http.Context) []byte {
		trace = append(trace, "handler")
		return []byte("ok")
	}

	resp := reg.Execute(newContext(t, "GET /user/1 HTTP/1.1\r\n\r\n"), route("/user/:id", h))
	assert.Equal(t, "ok", string(resp))
	assert.Equal(t, []string{"global-1", "global-2", "scoped-1", "scoped-2", "handler"}, trace)
}

func TestRegistryPrefixIsShared(t *testing.T) {
	var trace []string
	reg := NewRegistry(nil)
	reg.UseFor("/user/:id", record(&trace, "user"))

	h := func(ctx http.Context) []byte { return []byte("ok") }

	reg.Execute(newContext(t, "GET /user HTTP/1.1\r\n\r\n"), route("/user", h))
	reg.Execute(newContext(t, "GET /user/1/posts HTTP/1.1\r\n\r\n"), route("/user/:id/posts", h))
	reg.Execute(newContext(t, "GET /users HTTP/1.1\r\n\r\n"), route("/users", h))

	assert.Equal(t, []string{"user", "user"}, trace)
}

func TestRegistryShortCircuit(t *testing.T) {
	var before, after, handler int
	reg := NewRegistry(nil)
	reg.Use(func(ctx http.Context) (http.Context, []byte) {
		before++
		return ctx, nil
	})
	reg.UseFor("/secret/*", func(ctx http.Context) (http.Context, []byte) {
		return ctx, http.NewResponse().Status(401).Text("nope").Build()
	})
	reg.UseFor("/secret/*", func(ctx http.Context) (http.Context, []byte) {
		after++
		return ctx, nil
	})

	h := func(ctx http.Context) []byte {
		handler++
		return []byte("secret")
	}

	resp := reg.Execute(newContext(t, "GET /secret/x HTTP/1.1\r\n\r\n"), route("/secret/:name", h))
	assert.True(t, strings.HasPrefix(string(resp), "HTTP/1.1 401 Unauthorized\r\n"))
	assert.Equal(t, 1, before)
	assert.Zero(t, after)
	assert.Zero(t, handler)
}

func TestRegistryGlobalShortCircuitSkipsScoped(t *testing.T) {
	scoped := 0
	reg := NewRegistry(nil)
	reg.Use(func(ctx http.Context) (http.Context, []byte) {
		return ctx, []byte("stop")
	})
	reg.UseFor("/", func(ctx http.Context) (http.Context, []byte) {
		scoped++
		return ctx, nil
	})

	_, resp := reg.Run(newContext(t, "GET / HTTP/1.1\r\n\r\n"), route("/", func(http.Context) []byte { return nil }))
	assert.Equal(t, "stop", string(resp))
	assert.Zero(t, scoped)
}

func TestRegistryContextFlowsToHandler(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Use(func(ctx http.Context) (http.Context, []byte) {
		return ctx.With("user", "alice"), nil
	})

	resp := reg.Execute(newContext(t, "GET /me HTTP/1.1\r\n\r\n"), route("/me", func(ctx http.Context) []byte {
		return []byte(ctx.Value("user").(string))
	}))
	assert.Equal(t, "alice", string(resp))
}

func TestRegistryFreeze(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Freeze()
	assert.Panics(t, func() { reg.Use(RequestID()) })
	assert.Panics(t, func() { reg.UseFor("/x", RequestID()) })
}

func TestScopeKey(t *testing.T) {
	tests := map[string]string{
		"/api/*":          "/api",
		"/api/v1/*rest":   "/api/v1",
		"/user/:id":       "/user",
		"/user/:id/*":     "/user",
		"/static":         "/static",
		"/":               "/",
		"/*":              "",
		"/files/*/nested": "/files",
	}

	for pattern, want := range tests {
		assert.Equal(t, want, ScopeKey(pattern), pattern)
	}
}

func TestRequestID(t *testing.T) {
	mw := RequestID()

	ctx, resp := mw(newContext(t, "GET / HTTP/1.1\r\n\r\n"))
	assert.Nil(t, resp)
	id := GetRequestID(ctx)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	ctx, _ = mw(newContext(t, "GET / HTTP/1.1\r\nX-Request-ID: client-1\r\n\r\n"))
	assert.Equal(t, "client-1", GetRequestID(ctx))

	assert.Empty(t, GetRequestID(newContext(t, "GET / HTTP/1.1\r\n\r\n")))
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	mw := rateLimiter(2, clock)
	ctx := newContext(t, "GET / HTTP/1.1\r\n\r\n")

	for i := 0; i < 2; i++ {
		_, resp := mw(ctx)
		assert.Nil(t, resp)
	}

	_, resp := mw(ctx)
	assert.Equal(t, 429, http.StatusOf(resp))

	now = now.Add(time.Second)
	_, resp = mw(ctx)
	assert.Nil(t, resp, "bucket refills after a second")
}

func TestBodyLimit(t *testing.T) {
	mw := BodyLimit(4)

	_, resp := mw(newContext(t, "POST / HTTP/1.1\r\n\r\nabcd"))
	assert.Nil(t, resp)

	_, resp = mw(newContext(t, "POST / HTTP/1.1\r\n\r\nabcde"))
	assert.Equal(t, 413, http.StatusOf(resp))
}

func TestRequireHeader(t *testing.T) {
	mw := RequireHeader("Authorization")

	_, resp := mw(newContext(t, "GET / HTTP/1.1\r\nauthorization: token\r\n\r\n"))
	assert.Nil(t, resp)

	_, resp = mw(newContext(t, "GET / HTTP/1.1\r\n\r\n"))
	assert.Equal(t, 400, http.StatusOf(resp))
	assert.True(t, strings.HasSuffix(string(resp), "missing header Authorization"))
}

func BenchmarkRegistryRun(b *testing.B) {
	reg := NewRegistry(nil)
	for i := 0; i < 4; i++ {
		reg.Use(func(ctx http.Context) (http.Context, []byte) { return ctx, nil })
	}
	reg.UseFor("/api/*", RequestIDWith(func() string { return "fixed" }))
	reg.Freeze()

	req, _ := http.ParseRequest([]byte("GET /api/users HTTP/1.1\r\n\r\n"))
	ctx := http.NewContext(req, nil)
	r := router.NewRoute(http.MethodGet, "/api/users", http.HandlerFunc(func(http.Context) []byte { return nil }))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Run(ctx, r)
	}
}
