//go:build linux

package tunq

import (
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

var _ io.ReadWriteCloser = (*Queue)(nil)

// Queue is one kernel I/O channel of a virtual interface. It exclusively
// owns its file descriptor: hand a Queue to at most one reader and one
// writer at a time, or wrap it yourself. There is no locking on the I/O
// path.
type Queue struct {
	fd    atomic.Int64
	index int
}

func newQueue(fd, index int) *Queue {
	q := &Queue{index: index}
	q.fd.Store(int64(fd))
	return q
}

// QueueFromFd adopts an already created TUN/TAP queue descriptor, for
// example one passed over systemd fd passing or returned by Android's
// VpnService. The Queue takes exclusive ownership of fd.
func QueueFromFd(fd, index int) *Queue {
	return newQueue(fd, index)
}

// Index returns the queue's ordinal position within its device.
func (q *Queue) Index() int { return q.index }

// Fd returns the raw descriptor value, or -1 after Close. The Queue
// retains ownership; callers must not close it.
func (q *Queue) Fd() int { return int(q.fd.Load()) }

// SetNonblock switches the descriptor between blocking and non-blocking
// mode.
func (q *Queue) SetNonblock(on bool) error {
	fd := q.fd.Load()
	if fd < 0 {
		return os.ErrClosed
	}
	return unix.SetNonblock(int(fd), on)
}

// Recv reads the next packet into buf, blocking until one is available
// unless the queue is in non-blocking mode. A packet larger than buf is
// truncated to len(buf) and the remainder discarded by the kernel, on
// every supported platform; size receive buffers to the device MTU plus
// any link-layer header.
func (q *Queue) Recv(buf []byte) (int, error) {
	fd := q.fd.Load()
	if fd < 0 {
		return 0, os.ErrClosed
	}
	for {
		n, err := unix.Read(int(fd), buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

// Send writes one packet from buf, blocking until the kernel-side queue
// has room unless the queue is in non-blocking mode. Backpressure is
// entirely kernel-managed; nothing is buffered here.
func (q *Queue) Send(buf []byte) (int, error) {
	fd := q.fd.Load()
	if fd < 0 {
		return 0, os.ErrClosed
	}
	for {
		n, err := unix.Write(int(fd), buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

// Read implements io.Reader as an alias for Recv.
func (q *Queue) Read(p []byte) (int, error) { return q.Recv(p) }

// Write implements io.Writer as an alias for Send.
func (q *Queue) Write(p []byte) (int, error) { return q.Send(p) }

// Close releases the descriptor. Only the first call closes it; later
// calls and any I/O afterwards return os.ErrClosed.
func (q *Queue) Close() error {
	fd := q.fd.Swap(-1)
	if fd < 0 {
		return os.ErrClosed
	}
	return unix.Close(int(fd))
}

// detachFd removes the descriptor from the Queue without closing it,
// leaving the Queue in the closed state. Used by adapters that take over
// fd ownership.
func (q *Queue) detachFd() (int, error) {
	fd := q.fd.Swap(-1)
	if fd < 0 {
		return -1, os.ErrClosed
	}
	return int(fd), nil
}
