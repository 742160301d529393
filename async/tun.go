//go:build linux

package async

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tunq-dev/tunq"
	"github.com/tunq-dev/tunq/reactor"
)

var errNoQueues = errors.New("async: no attached queues")

// Tun adapts a multi-queue device to context-based I/O across all of its
// queues, including receive-from-any with round-robin fairness.
type Tun struct {
	tun *tunq.Tun
	r   reactor.Registrar

	mu       sync.Mutex
	queues   []*Queue // nil for detached slots
	nextRecv int      // round-robin cursors, advanced past the last served index
	nextSend int

	recvAnyReady chan reactor.Interest
	sendAnyReady chan reactor.Interest
}

// NewTun wraps t and takes over its lifecycle. Every queue still owned by
// t must be in non-blocking mode (tunq.WithNonblock).
func NewTun(t *tunq.Tun, r reactor.Registrar) *Tun {
	n := t.QueueCount()
	queues := make([]*Queue, n)
	for i := 0; i < n; i++ {
		if q, err := t.Queue(i); err == nil {
			queues[i] = NewQueue(q, r)
		}
	}
	return &Tun{
		tun:          t,
		r:            r,
		queues:       queues,
		recvAnyReady: make(chan reactor.Interest, n),
		sendAnyReady: make(chan reactor.Interest, n),
	}
}

// Name returns the kernel-resolved interface name.
func (t *Tun) Name() string { return t.tun.Name() }

// QueueCount returns the number of queue slots, including detached ones.
func (t *Tun) QueueCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queues)
}

func (t *Tun) queue(i int) (*Queue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.queues) || t.queues[i] == nil {
		return nil, fmt.Errorf("%w: %d of %d", tunq.ErrInvalidQueueIndex, i, len(t.queues))
	}
	return t.queues[i], nil
}

// RecvVia reads the next packet off queue i.
func (t *Tun) RecvVia(ctx context.Context, i int, buf []byte) (int, error) {
	q, err := t.queue(i)
	if err != nil {
		return 0, err
	}
	return q.RecvContext(ctx, buf)
}

// SendVia writes one packet via queue i.
func (t *Tun) SendVia(ctx context.Context, i int, buf []byte) (int, error) {
	q, err := t.queue(i)
	if err != nil {
		return 0, err
	}
	return q.SendContext(ctx, buf)
}

// Detach removes queue i from the device and returns it with exclusive
// ownership, for dedicating a queue to one task.
func (t *Tun) Detach(i int) (*Queue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.queues) || t.queues[i] == nil {
		return nil, fmt.Errorf("%w: %d of %d", tunq.ErrInvalidQueueIndex, i, len(t.queues))
	}
	q := t.queues[i]
	t.queues[i] = nil
	_, _ = t.tun.Detach(i)
	return q, nil
}

// RecvAny receives from whichever queue becomes readable first and
// reports the serving queue's index. Sweeps are round-robin starting just
// past the last index served, so sustained traffic on one queue cannot
// starve the others.
func (t *Tun) RecvAny(ctx context.Context, buf []byte) (queue, n int, err error) {
	for {
		queue, n, ok, err := t.sweep(buf, true)
		if err != nil {
			return queue, 0, err
		}
		if ok {
			return queue, n, nil
		}
		if err := t.waitAny(ctx, reactor.Readable, t.recvAnyReady); err != nil {
			return 0, 0, err
		}
	}
}

// SendAny writes one packet via the first queue with room and reports its
// index.
func (t *Tun) SendAny(ctx context.Context, buf []byte) (queue, n int, err error) {
	for {
		queue, n, ok, err := t.sweep(buf, false)
		if err != nil {
			return queue, 0, err
		}
		if ok {
			return queue, n, nil
		}
		if err := t.waitAny(ctx, reactor.Writable, t.sendAnyReady); err != nil {
			return 0, 0, err
		}
	}
}

// sweep attempts a non-blocking operation on each attached queue in
// round-robin order. ok reports whether an operation completed.
func (t *Tun) sweep(buf []byte, recv bool) (queue, n int, ok bool, err error) {
	queues, start := t.snapshot(recv)
	total := len(queues)
	for off := 0; off < total; off++ {
		i := (start + off) % total
		q := queues[i]
		if q == nil {
			continue
		}
		var m int
		var opErr error
		if recv {
			m, opErr = q.q.Recv(buf)
		} else {
			m, opErr = q.q.Send(buf)
		}
		if opErr == nil {
			t.advance(i, recv)
			return i, m, true, nil
		}
		if !wouldBlock(opErr) {
			return i, 0, false, opErr
		}
	}
	return 0, 0, false, nil
}

func (t *Tun) snapshot(recv bool) ([]*Queue, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	queues := make([]*Queue, len(t.queues))
	copy(queues, t.queues)
	if recv {
		return queues, t.nextRecv
	}
	return queues, t.nextSend
}

func (t *Tun) advance(served int, recv bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queues) == 0 {
		return
	}
	if recv {
		t.nextRecv = (served + 1) % len(t.queues)
	} else {
		t.nextSend = (served + 1) % len(t.queues)
	}
}

// waitAny arms interest on every attached queue and suspends until one
// fires or ctx is cancelled. Queues that were armed but did not win keep
// their one-shot interest; the resulting stale wakeups are drained before
// the next wait and cost at most one extra sweep.
func (t *Tun) waitAny(ctx context.Context, interest reactor.Interest, ready chan reactor.Interest) error {
	for {
		select {
		case <-ready:
			continue
		default:
		}
		break
	}

	queues, _ := t.snapshot(interest == reactor.Readable)
	registered := false
	for _, q := range queues {
		if q == nil {
			continue
		}
		if err := t.r.Register(q.q.Fd(), interest, ready); err != nil {
			t.deregisterAll(queues, interest)
			return err
		}
		registered = true
	}
	if !registered {
		return errNoQueues
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		t.deregisterAll(queues, interest)
		return ctx.Err()
	}
}

func (t *Tun) deregisterAll(queues []*Queue, interest reactor.Interest) {
	for _, q := range queues {
		if q == nil {
			continue
		}
		if fd := q.q.Fd(); fd >= 0 {
			_ = t.r.Deregister(fd, interest)
		}
	}
}

// Close deregisters every attached queue and closes the underlying
// device. Detached queues are untouched.
func (t *Tun) Close() error {
	t.mu.Lock()
	queues := t.queues
	t.queues = nil
	t.mu.Unlock()

	t.deregisterAll(queues, reactor.Readable|reactor.Writable)
	return t.tun.Close()
}
