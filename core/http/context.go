package http

import (
	"google.golang.org/protobuf/proto"

	"github.com/searchktools/tinyhttp/core/codec"
)

// Params holds path parameters captured by the matched route.
type Params map[string]string

// Handler produces the full wire response for one request.
type Handler interface {
	Serve(ctx Context) []byte
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx Context) []byte

// Serve calls f(ctx).
func (f HandlerFunc) Serve(ctx Context) []byte {
	return f(ctx)
}

// Context pairs a parsed request with the path parameters of the route that
// matched it. It is passed by value through the middleware chain; With returns
// a modified copy and never mutates the receiver.
type Context struct {
	request *Request
	params  Params
	values  map[string]any
}

// NewContext creates a context for req. A nil params map is treated as empty.
func NewContext(req *Request, params Params) Context {
	if params == nil {
		params = Params{}
	}
	return Context{request: req, params: params}
}

// Request returns the underlying request.
func (c Context) Request() *Request {
	return c.request
}

func (c Context) Method() Method {
	return c.request.Method
}

func (c Context) Path() string {
	return c.request.Path
}

// Param gets a path parameter
func (c Context) Param(key string) string {
	return c.params[key]
}

// Params returns the captured path parameters. Callers must not modify it.
func (c Context) Params() Params {
	return c.params
}

// Query gets a query parameter
func (c Context) Query(key string) string {
	return c.request.Query[key]
}

// Header gets a request header, case-insensitively.
func (c Context) Header(key string) string {
	return c.request.Header(key)
}

// Cookie gets a cookie sent in the Cookie header.
func (c Context) Cookie(name string) (string, bool) {
	v, ok := c.request.Cookies[name]
	return v, ok
}

func (c Context) Body() []byte {
	return c.request.Body
}

// Value returns a value stored by an earlier middleware.
func (c Context) Value(key string) any {
	return c.values[key]
}

// With returns a copy of c carrying key=value.
func (c Context) With(key string, value any) Context {
	values := make(map[string]any, len(c.values)+1)
	for k, v := range c.values {
		values[k] = v
	}
	values[key] = value
	c.values = values
	return c
}

// Respond starts a response builder that already knows the client's
// Accept-Encoding, so eligible bodies are compressed on Build.
func (c Context) Respond() *ResponseBuilder {
	b := NewResponse()
	if v, ok := c.request.Headers["accept-encoding"]; ok {
		b.AcceptEncoding(v)
	}
	return b
}

// BindJSON decodes a JSON body into v. It reports false unless Content-Type
// is exactly application/json and the body decodes cleanly.
func (c Context) BindJSON(v any) bool {
	return decodeBody(c.request, codec.JSON, v)
}

// BindProto decodes an application/x-protobuf body into msg.
func (c Context) BindProto(msg proto.Message) bool {
	return decodeBody(c.request, codec.Protobuf, msg)
}

// BindMsgPack decodes an application/msgpack body into v.
func (c Context) BindMsgPack(v any) bool {
	return decodeBody(c.request, codec.MsgPack, v)
}

// DecodeJSON is the typed form of BindJSON.
func DecodeJSON[T any](req *Request) (T, bool) {
	var v T
	if !decodeBody(req, codec.JSON, &v) {
		var zero T
		return zero, false
	}
	return v, true
}

func decodeBody(req *Request, c codec.Codec, v any) (ok bool) {
	if req == nil || req.ContentType() != c.ContentType() {
		return false
	}

	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	return c.Decode(req.Body, v) == nil
}
