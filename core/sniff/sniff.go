// Package sniff classifies a connection from the first bytes it sends.
package sniff

import (
	"bytes"

	"golang.org/x/net/http2"
)

// Protocol is the result of inspecting a connection's leading bytes.
type Protocol int

const (
	// NeedMore means too few bytes were seen to decide.
	NeedMore Protocol = iota
	HTTP1
	// HTTP2Preface is recognized but never served.
	HTTP2Preface
	Unknown
)

// MinBytes is the smallest buffer Detect will classify.
const MinBytes = 4

var methods = [][]byte{
	[]byte("GET"),
	[]byte("POST"),
	[]byte("PUT"),
	[]byte("HEAD"),
	[]byte("DELETE"),
	[]byte("PATCH"),
}

var prefacePrefix = []byte("PRI ")

func (p Protocol) String() string {
	switch p {
	case NeedMore:
		return "need_more"
	case HTTP1:
		return "http1"
	case HTTP2Preface:
		return "h2_preface"
	default:
		return "unknown"
	}
}

// Detect classifies b. It never guesses from fewer than MinBytes bytes, and
// reports NeedMore while b is still a strict prefix of a known method token.
func Detect(b []byte) Protocol {
	if len(b) < MinBytes {
		return NeedMore
	}

	if bytes.HasPrefix(b, prefacePrefix) {
		n := min(len(b), len(http2.ClientPreface))
		if string(b[:n]) == http2.ClientPreface[:n] {
			return HTTP2Preface
		}
		return Unknown
	}

	sp := bytes.IndexByte(b, ' ')
	if sp < 0 {
		for _, m := range methods {
			if len(b) <= len(m) && bytes.HasPrefix(m, b) {
				return NeedMore
			}
		}
		return Unknown
	}

	token := b[:sp]
	for _, m := range methods {
		if bytes.Equal(token, m) {
			return HTTP1
		}
	}
	return Unknown
}
