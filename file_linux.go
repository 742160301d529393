//go:build linux

package tunq

import (
	"os"

	"golang.org/x/sys/unix"
)

// AsFile transfers ownership of q into an *os.File registered with the Go
// runtime poller. Reads and writes then park the calling goroutine
// instead of an OS thread, deadlines work, and Close unblocks pending
// readers. q is consumed: its descriptor now belongs to the file and the
// original Queue reports os.ErrClosed.
func AsFile(q *Queue) (*os.File, error) {
	fd, err := q.detachFd()
	if err != nil {
		return nil, err
	}
	// os.NewFile only registers with the poller when the fd is already
	// non-blocking.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return os.NewFile(uintptr(fd), devPath), nil
}
