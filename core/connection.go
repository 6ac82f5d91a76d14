package core

import (
	"errors"
	"io"
	"net"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/searchktools/tinyhttp/core/http"
	"github.com/searchktools/tinyhttp/core/sniff"
	"github.com/searchktools/tinyhttp/logging"
)

// Connection states
type connState int

const (
	stateAwaitingData connState = iota
	stateSniffing
	stateParsing
	stateResponding
	stateUnsupported
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateAwaitingData:
		return "awaiting_data"
	case stateSniffing:
		return "sniffing"
	case stateParsing:
		return "parsing"
	case stateResponding:
		return "responding"
	case stateUnsupported:
		return "unsupported"
	default:
		return "closed"
	}
}

// Connection serves exactly one request on an accepted socket and then
// closes it.
type Connection struct {
	engine *Engine
	nc     net.Conn
	remote string
	state  connState
	buf    []byte
	start  time.Time
}

func (e *Engine) serveConn(nc net.Conn) {
	c := &Connection{
		engine: e,
		nc:     nc,
		remote: remoteAddr(nc),
		state:  stateAwaitingData,
	}

	e.metrics.ConnOpened()
	defer e.metrics.ConnClosed()
	defer c.close()

	if err := c.serve(); err != nil {
		e.logger.Debug("connection ended",
			zap.String("remote_addr", c.remote),
			zap.Stringer("state", c.state),
			zap.Error(err),
		)
	}
}

// serve reads until a full request is buffered, then responds. It returns
// nil on a clean close or after responding.
func (c *Connection) serve() error {
	e := c.engine
	chunk := e.bytePool.Get(readChunkSize)
	defer e.bytePool.Put(chunk)

	for {
		if e.readTimeout > 0 {
			if err := c.nc.SetReadDeadline(time.Now().Add(e.readTimeout)); err != nil {
				return c.abort(err)
			}
		}

		n, err := c.nc.Read(chunk)
		if n > 0 {
			if c.start.IsZero() {
				c.start = time.Now()
			}
			c.buf = append(c.buf, chunk[:n]...)

			if len(c.buf) > e.maxRequestSize {
				return c.tooLarge()
			}
			if done, err := c.advance(); done {
				return err
			}
		}

		if err == nil {
			continue
		}
		if isWouldBlock(err) {
			runtime.Gosched()
			continue
		}
		if errors.Is(err, io.EOF) {
			return c.finish()
		}
		return c.abort(err)
	}
}

// advance moves the state machine forward after new bytes arrive. It reports
// whether the connection is finished.
func (c *Connection) advance() (bool, error) {
	if c.state == stateAwaitingData || c.state == stateSniffing {
		proto := sniff.Detect(c.buf)
		switch proto {
		case sniff.NeedMore:
			c.state = stateSniffing
			return false, nil
		case sniff.HTTP1:
			c.engine.metrics.Sniffed(proto.String())
			c.state = stateParsing
		default:
			c.engine.metrics.Sniffed(proto.String())
			c.state = stateUnsupported
			return true, ErrUnsupportedProtocol
		}
	}

	if !http.Complete(c.buf) {
		return false, nil
	}
	return true, c.respond(c.engine.Process(c.buf))
}

// finish handles EOF from the peer.
func (c *Connection) finish() error {
	switch c.state {
	case stateAwaitingData:
		c.engine.logger.Debug("connection closed before data received", zap.String("remote_addr", c.remote))
		return nil
	case stateParsing:
		// The client half-closed after sending; serve what arrived.
		return c.respond(c.engine.Process(c.buf))
	default:
		return io.ErrUnexpectedEOF
	}
}

func (c *Connection) tooLarge() error {
	if c.state == stateAwaitingData || c.state == stateSniffing {
		if sniff.Detect(c.buf) != sniff.HTTP1 {
			c.state = stateUnsupported
			return ErrRequestTooLarge
		}
		c.state = stateParsing
	}

	resp := http.TooLarge().Text("Payload Too Large").Build()
	if err := c.respond(Result{Response: resp, Status: 413}); err != nil {
		return err
	}
	return ErrRequestTooLarge
}

// respond writes res in a single call and records the access log entry.
func (c *Connection) respond(res Result) error {
	e := c.engine
	c.state = stateResponding

	_, err := c.nc.Write(res.Response)
	if err != nil {
		return c.abort(err)
	}

	method, path := "-", "-"
	label := http.MethodUnknown.String()
	if res.Request != nil {
		method, path = res.Request.RawMethod, res.Request.Path
		label = res.Request.Method.String()
	}

	elapsed := time.Since(c.start)
	e.logger.Request(logging.RequestEntry{
		Method:    method,
		Path:      path,
		Remote:    c.remote,
		Status:    res.Status,
		Duration:  elapsed,
		RequestID: res.RequestID,
	})
	e.metrics.ObserveRequest(label, res.Status, elapsed)
	return nil
}

func (c *Connection) abort(err error) error {
	c.engine.metrics.IOError()
	c.engine.logger.Error("connection error",
		zap.String("remote_addr", c.remote),
		zap.Stringer("state", c.state),
		zap.Error(err),
	)
	return err
}

func (c *Connection) close() {
	c.state = stateClosed
	c.nc.Close()
}

func remoteAddr(nc net.Conn) string {
	if addr := nc.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "-"
}
