package http

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrParse is the root of every request parsing failure.
	ErrParse = errors.New("malformed HTTP request")
)

// ParseError describes why a request line could not be parsed.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse request: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

var (
	headerTerminator = []byte("\r\n\r\n")
	lineTerminator   = []byte("\r\n")
)

// ParseRequest turns a raw buffer into a Request.
//
// The buffer is split on the first blank line. When no blank line is present
// the whole buffer is treated as the header section and the body is empty.
// Header lines without a ": " delimiter are skipped.
func ParseRequest(data []byte) (*Request, error) {
	head := data
	var body []byte
	if idx := bytes.Index(data, headerTerminator); idx != -1 {
		head = data[:idx]
		body = data[idx+len(headerTerminator):]
	}

	line := head
	var rest []byte
	if idx := bytes.Index(head, lineTerminator); idx != -1 {
		line = head[:idx]
		rest = head[idx+len(lineTerminator):]
	}

	fields := strings.Fields(string(line))
	switch {
	case len(fields) == 0:
		return nil, &ParseError{Reason: "empty request line"}
	case len(fields) == 1:
		return nil, &ParseError{Reason: "missing request path"}
	}

	target := fields[1]
	if !strings.HasPrefix(target, "/") {
		return nil, &ParseError{Reason: "path must begin with '/'"}
	}

	req := &Request{
		Method:    ParseMethod(fields[0]),
		RawMethod: fields[0],
		Headers:   parseHeaders(rest),
		Query:     make(map[string]string),
		Body:      make([]byte, len(body)),
	}
	copy(req.Body, body)
	if len(fields) > 2 {
		req.Proto = fields[2]
	}

	req.Path = target
	if idx := strings.IndexByte(target, '?'); idx != -1 {
		req.Path = target[:idx]
		parseQuery(req.Query, target[idx+1:])
	}

	req.Cookies = parseCookies(req.Headers["cookie"])

	return req, nil
}

func parseHeaders(data []byte) map[string]string {
	headers := make(map[string]string)
	if len(data) == 0 {
		return headers
	}

	for _, line := range strings.Split(string(data), "\r\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		headers[strings.ToLower(key)] = value
	}
	return headers
}

// parseQuery fills dst from a raw query string. Values are not percent-decoded.
func parseQuery(dst map[string]string, raw string) {
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		dst[key] = value
	}
}

func parseCookies(header string) map[string]string {
	cookies := make(map[string]string)
	if header == "" {
		return cookies
	}

	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}
		cookies[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return cookies
}

// Complete reports whether data holds a full request: the blank line has
// arrived and, if a Content-Length was announced, that many body bytes follow
// it. An unparseable Content-Length counts as complete so the parser can
// decide what to do with the request.
func Complete(data []byte) bool {
	idx := bytes.Index(data, headerTerminator)
	if idx == -1 {
		return false
	}

	want, ok := contentLength(data[:idx])
	if !ok {
		return true
	}
	return len(data)-idx-len(headerTerminator) >= want
}

func contentLength(head []byte) (int, bool) {
	for _, line := range bytes.Split(head, lineTerminator) {
		key, value, ok := bytes.Cut(line, []byte(":"))
		if !ok || !bytes.EqualFold(bytes.TrimSpace(key), []byte("content-length")) {
			continue
		}
		n, err := strconv.Atoi(string(bytes.TrimSpace(value)))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
