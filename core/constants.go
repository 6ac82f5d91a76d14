package core

import "errors"

// HTTP header constants
const (
	HeaderContentType    = "Content-Type"
	HeaderContentLength  = "Content-Length"
	HeaderAcceptEncoding = "Accept-Encoding"
	HeaderRequestID      = "X-Request-ID"
)

// Defaults applied by NewEngine.
const (
	DefaultMaxRequestSize = 1 << 20
	readChunkSize         = 4096
)

// Error definitions
var (
	// ErrRequestTooLarge is reported when the buffered request exceeds the
	// configured maximum. HTTP/1 clients get a 413 before the connection closes.
	ErrRequestTooLarge = errors.New("request exceeds maximum size")

	// ErrUnsupportedProtocol marks connections that sniffed as something other
	// than HTTP/1. They are closed without a response.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")

	// ErrServerClosed is returned by Serve and Run after Shutdown.
	ErrServerClosed = errors.New("server closed")
)
