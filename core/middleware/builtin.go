package middleware

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/searchktools/tinyhttp/core/http"
)

// RequestIDKey is the context value key set by RequestID.
const RequestIDKey = "request_id"

// RequestIDHeader is read from the client when present.
const RequestIDHeader = "X-Request-ID"

// RequestID stores a request id in the context: the client's X-Request-ID if
// it sent one, otherwise a fresh UUIDv7.
func RequestID() Func {
	return RequestIDWith(generateUUIDv7)
}

// RequestIDWith is RequestID with a custom generator.
func RequestIDWith(generate func() string) Func {
	return func(ctx http.Context) (http.Context, []byte) {
		id := ctx.Header(RequestIDHeader)
		if id == "" {
			id = generate()
		}
		return ctx.With(RequestIDKey, id), nil
	}
}

// GetRequestID returns the id stored by RequestID, or "".
func GetRequestID(ctx http.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RateLimiter implements rate limiting with a token bucket refilled once per
// second. Excess requests get 429.
func RateLimiter(requestsPerSecond int) Func {
	return rateLimiter(requestsPerSecond, time.Now)
}

func rateLimiter(requestsPerSecond int, now func() time.Time) Func {
	var (
		mu         sync.Mutex
		tokens     = requestsPerSecond
		lastRefill = now()
	)

	return func(ctx http.Context) (http.Context, []byte) {
		mu.Lock()

		t := now()
		if t.Sub(lastRefill) >= time.Second {
			tokens = requestsPerSecond
			lastRefill = t
		}

		if tokens > 0 {
			tokens--
			mu.Unlock()
			return ctx, nil
		}

		mu.Unlock()

		return ctx, ctx.Respond().Status(429).Text("Too Many Requests").Build()
	}
}

// BodyLimit rejects bodies longer than maxBytes with 413.
func BodyLimit(maxBytes int) Func {
	return func(ctx http.Context) (http.Context, []byte) {
		if len(ctx.Body()) > maxBytes {
			return ctx, ctx.Respond().Status(413).Text("Payload Too Large").Build()
		}
		return ctx, nil
	}
}

// RequireHeader rejects requests missing the named header with 400.
func RequireHeader(name string) Func {
	return func(ctx http.Context) (http.Context, []byte) {
		if !ctx.Request().HasHeader(name) {
			return ctx, ctx.Respond().Status(400).Text("missing header " + name).Build()
		}
		return ctx, nil
	}
}
