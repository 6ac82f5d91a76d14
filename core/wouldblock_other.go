//go:build !unix

package core

// The Go runtime poller never surfaces would-block reads here.
func isWouldBlock(err error) bool {
	return false
}
