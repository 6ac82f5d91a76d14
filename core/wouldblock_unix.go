//go:build unix

package core

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isWouldBlock reports a transient non-blocking read failure that should be
// retried rather than ending the connection.
func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}
