package http

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/searchktools/tinyhttp/core/codec"
)

// Bodies at or below this size are never compressed.
const CompressionThreshold = 1400

// Content types used by the builder helpers.
const (
	ContentTypePlain = "text/plain"
	ContentTypeHTML  = "text/html"
	ContentTypeCSS   = "text/css"
	ContentTypeJSON  = codec.ContentTypeJSON
)

var compressibleTypes = map[string]struct{}{
	ContentTypePlain: {},
	ContentTypeHTML:  {},
	ContentTypeCSS:   {},
	ContentTypeJSON:  {},
}

type headerField struct {
	key   string
	value string
}

// ResponseBuilder accumulates a response. Headers keep insertion order and
// duplicates are written verbatim. Compression is decided in Build.
type ResponseBuilder struct {
	code    int
	reason  string
	headers []headerField
	body    []byte

	acceptEncoding    string
	hasAcceptEncoding bool
}

// NewResponse returns a builder for a 200 OK response with no headers.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{code: 200, reason: StatusText(200)}
}

func OK() *ResponseBuilder              { return NewResponse() }
func NotFound() *ResponseBuilder        { return NewResponse().Status(404) }
func BadRequest() *ResponseBuilder      { return NewResponse().Status(400) }
func ServerError() *ResponseBuilder     { return NewResponse().Status(500) }
func TooLarge() *ResponseBuilder        { return NewResponse().Status(413) }
func TooManyRequests() *ResponseBuilder { return NewResponse().Status(429) }

// Status sets the status code and its standard reason phrase.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	return b.StatusLine(code, StatusText(code))
}

// StatusLine sets the status code with a custom reason phrase.
func (b *ResponseBuilder) StatusLine(code int, reason string) *ResponseBuilder {
	b.code = code
	b.reason = reason
	return b
}

// Header appends a header field.
func (b *ResponseBuilder) Header(key, value string) *ResponseBuilder {
	b.headers = append(b.headers, headerField{key: key, value: value})
	return b
}

func (b *ResponseBuilder) ContentType(contentType string) *ResponseBuilder {
	return b.Header("Content-Type", contentType)
}

// Body sets the body and records its Content-Length as of this call.
func (b *ResponseBuilder) Body(body []byte) *ResponseBuilder {
	b.body = body
	b.setContentLength(len(body))
	return b
}

func (b *ResponseBuilder) Text(s string) *ResponseBuilder {
	return b.ContentType(ContentTypePlain).Body([]byte(s))
}

func (b *ResponseBuilder) HTML(s string) *ResponseBuilder {
	return b.ContentType(ContentTypeHTML).Body([]byte(s))
}

// JSONString sends s as-is with a JSON content type.
func (b *ResponseBuilder) JSONString(s string) *ResponseBuilder {
	return b.ContentType(ContentTypeJSON).Body([]byte(s))
}

// JSON marshals v. A marshal failure turns the response into a 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	return b.encode(codec.JSON, v)
}

func (b *ResponseBuilder) MsgPack(v any) *ResponseBuilder {
	return b.encode(codec.MsgPack, v)
}

func (b *ResponseBuilder) Proto(msg any) *ResponseBuilder {
	return b.encode(codec.Protobuf, msg)
}

func (b *ResponseBuilder) encode(c codec.Codec, v any) *ResponseBuilder {
	data, err := c.Encode(v)
	if err != nil {
		return b.Status(500).Text(c.Name() + " marshal error")
	}
	return b.ContentType(c.ContentType()).Body(data)
}

// AcceptEncoding records the client's Accept-Encoding header value.
func (b *ResponseBuilder) AcceptEncoding(value string) *ResponseBuilder {
	b.acceptEncoding = value
	b.hasAcceptEncoding = true
	return b
}

// Build serializes the response, compressing the body when it is eligible.
func (b *ResponseBuilder) Build() []byte {
	if b.compressible() {
		if compressed, ok := gzipBody(b.body); ok && len(compressed) < len(b.body) {
			b.body = compressed
			b.setContentLength(len(compressed))
			b.Header("Content-Encoding", "gzip")
		}
	}

	size := len(b.body) + 64
	for _, h := range b.headers {
		size += len(h.key) + len(h.value) + 4
	}

	buf := make([]byte, 0, size)
	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(b.code), 10)
	buf = append(buf, ' ')
	buf = append(buf, b.reason...)
	buf = append(buf, "\r\n"...)
	for _, h := range b.headers {
		buf = append(buf, h.key...)
		buf = append(buf, ": "...)
		buf = append(buf, h.value...)
		buf = append(buf, "\r\n"...)
	}
	buf = append(buf, "\r\n"...)
	buf = append(buf, b.body...)
	return buf
}

func (b *ResponseBuilder) compressible() bool {
	if len(b.body) <= CompressionThreshold {
		return false
	}
	if !b.hasAcceptEncoding || !strings.Contains(strings.ToLower(b.acceptEncoding), "gzip") {
		return false
	}
	contentType, ok := b.lookup("Content-Type")
	if !ok {
		return false
	}
	_, ok = compressibleTypes[contentType]
	return ok
}

// lookup returns the value of the last header named key.
func (b *ResponseBuilder) lookup(key string) (string, bool) {
	for i := len(b.headers) - 1; i >= 0; i-- {
		if strings.EqualFold(b.headers[i].key, key) {
			return b.headers[i].value, true
		}
	}
	return "", false
}

// setContentLength rewrites an existing Content-Length in place, or appends one.
func (b *ResponseBuilder) setContentLength(n int) {
	value := strconv.Itoa(n)
	for i := range b.headers {
		if strings.EqualFold(b.headers[i].key, "Content-Length") {
			b.headers[i].value = value
			return
		}
	}
	b.Header("Content-Length", value)
}

func gzipBody(body []byte) ([]byte, bool) {
	var buf bytes.Buffer
	buf.Grow(len(body) / 2)

	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, false
	}
	if err := zw.Close(); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// StatusOf extracts the status code from a serialized response, or 0 if the
// bytes don't start with an HTTP/1.x status line.
func StatusOf(raw []byte) int {
	if len(raw) < 12 || !bytes.HasPrefix(raw, []byte("HTTP/1.")) {
		return 0
	}
	code, err := strconv.Atoi(string(raw[9:12]))
	if err != nil {
		return 0
	}
	return code
}

// StatusText returns the reason phrase for the given code
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 202:
		return "Accepted"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 304:
		return "Not Modified"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 413:
		return "Payload Too Large"
	case 415:
		return "Unsupported Media Type"
	case 429:
		return "Too Many Requests"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	case 503:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}
