//go:build unix

package core

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

type readStep struct {
	data string
	err  error
}

// scriptedConn replays reads and captures writes.
type scriptedConn struct {
	net.Conn
	steps   []readStep
	written bytes.Buffer
	closed  bool
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	if len(c.steps) == 0 {
		return 0, io.EOF
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	return copy(p, step.data), step.err
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	return c.written.Write(p)
}

func (c *scriptedConn) Close() error {
	c.closed = true
	return nil
}

func (c *scriptedConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 4242}
}

func TestConnectionRetriesWouldBlock(t *testing.T) {
	nc := &scriptedConn{steps: []readStep{
		{err: unix.EAGAIN},
		{data: "GET /user/3 "},
		{err: unix.EWOULDBLOCK},
		{data: "HTTP/1.1\r\n\r\n"},
	}}

	userEngine().serveConn(nc)

	assert.True(t, nc.closed)
	assert.Equal(t, "3", body(nc.written.String()))
}

func TestConnectionAbortsOnIOError(t *testing.T) {
	nc := &scriptedConn{steps: []readStep{
		{data: "GET /user/3 "},
		{err: unix.ECONNRESET},
	}}

	userEngine().serveConn(nc)

	assert.True(t, nc.closed)
	assert.Zero(t, nc.written.Len())
}

func TestIsWouldBlock(t *testing.T) {
	assert.True(t, isWouldBlock(unix.EAGAIN))
	assert.True(t, isWouldBlock(&net.OpError{Op: "read", Err: unix.EWOULDBLOCK}))
	assert.False(t, isWouldBlock(unix.ECONNRESET))
	assert.False(t, isWouldBlock(io.EOF))
}
