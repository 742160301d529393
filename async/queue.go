//go:build linux

// Package async adapts tunq queues to suspend-on-readiness I/O driven by
// any reactor.Registrar. Operations take a context.Context; cancellation
// deregisters reactor interest immediately and is all-or-nothing: either
// the underlying read or write fully completed and its result is
// returned, or the descriptor state is untouched.
//
// The package adds no timeouts of its own; compose them with
// context.WithTimeout or the caller's runtime primitives.
package async

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"

	"github.com/tunq-dev/tunq"
	"github.com/tunq-dev/tunq/reactor"
)

// Queue adapts one non-blocking tunq.Queue to context-based I/O. At most
// one goroutine may receive and one may send at a time; exclusivity comes
// from ownership, not locking.
type Queue struct {
	q *tunq.Queue
	r reactor.Registrar

	readReady  chan reactor.Interest
	writeReady chan reactor.Interest
}

// NewQueue wraps q, which must already be in non-blocking mode (create
// the device with tunq.WithNonblock, or call Queue.SetNonblock).
func NewQueue(q *tunq.Queue, r reactor.Registrar) *Queue {
	return &Queue{
		q:          q,
		r:          r,
		readReady:  make(chan reactor.Interest, 1),
		writeReady: make(chan reactor.Interest, 1),
	}
}

// Unwrap returns the underlying queue without transferring ownership.
func (q *Queue) Unwrap() *tunq.Queue { return q.q }

// RecvContext reads the next packet into buf, suspending until the queue
// is readable. Spurious wakeups are absorbed by re-registering interest,
// never surfaced. When ctx is cancelled the pending registration is
// dropped before ctx.Err() is returned.
func (q *Queue) RecvContext(ctx context.Context, buf []byte) (int, error) {
	for {
		n, err := q.q.Recv(buf)
		if err == nil {
			return n, nil
		}
		if !wouldBlock(err) {
			return 0, err
		}
		if err := q.wait(ctx, reactor.Readable, q.readReady); err != nil {
			return 0, err
		}
	}
}

// SendContext writes one packet from buf, suspending until the kernel
// queue has room. Semantics mirror RecvContext.
func (q *Queue) SendContext(ctx context.Context, buf []byte) (int, error) {
	for {
		n, err := q.q.Send(buf)
		if err == nil {
			return n, nil
		}
		if !wouldBlock(err) {
			return 0, err
		}
		if err := q.wait(ctx, reactor.Writable, q.writeReady); err != nil {
			return 0, err
		}
	}
}

func (q *Queue) wait(ctx context.Context, interest reactor.Interest, ready chan reactor.Interest) error {
	// Drop a wakeup left over from a cancelled wait so it cannot satisfy
	// this round without the fd actually being ready.
	select {
	case <-ready:
	default:
	}
	if err := q.r.Register(q.q.Fd(), interest, ready); err != nil {
		return err
	}
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		_ = q.r.Deregister(q.q.Fd(), interest)
		return ctx.Err()
	}
}

// Close deregisters the queue from the reactor and closes it.
func (q *Queue) Close() error {
	if fd := q.q.Fd(); fd >= 0 {
		_ = q.r.Deregister(fd, reactor.Readable|reactor.Writable)
	}
	return q.q.Close()
}

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN)
}
