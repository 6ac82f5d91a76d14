package http

import "strings"

// Method is the request method. Anything outside the recognized set maps to
// MethodUnknown but is still routed.
type Method uint8

const (
	MethodUnknown Method = iota
	MethodGet
	MethodPost
	MethodPut
	MethodPatch
	MethodDelete
)

// ParseMethod maps a request-line token to a Method. Matching is case-sensitive.
func ParseMethod(token string) Method {
	switch token {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "PUT":
		return MethodPut
	case "PATCH":
		return MethodPatch
	case "DELETE":
		return MethodDelete
	default:
		return MethodUnknown
	}
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodPatch:
		return "PATCH"
	case MethodDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Request is a parsed HTTP/1.x request. It is not modified after ParseRequest returns.
type Request struct {
	Method    Method
	RawMethod string // method token as sent on the wire
	Path      string // base path, query string stripped
	Proto     string // empty when the request line omits it

	// Header keys are lowercased; the last duplicate wins.
	Headers map[string]string
	Query   map[string]string
	Cookies map[string]string

	Body []byte
}

// Header returns the value of the named header. The lookup is case-insensitive.
func (r *Request) Header(key string) string {
	return r.Headers[strings.ToLower(key)]
}

// HasHeader reports whether the named header was sent.
func (r *Request) HasHeader(key string) bool {
	_, ok := r.Headers[strings.ToLower(key)]
	return ok
}

// ContentType returns the raw Content-Type header value.
func (r *Request) ContentType() string {
	return r.Headers["content-type"]
}
