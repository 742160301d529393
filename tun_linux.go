//go:build linux

package tunq

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// Tun is a named virtual interface and the ordered set of queues attached
// to it. It owns every queue it holds; Detach transfers a queue out. The
// queue count is fixed at creation, mirroring the kernel's multi-queue
// model.
//
// Tun itself is not safe for concurrent structural mutation (Detach,
// Close); concurrent I/O is safe when each goroutine uses a distinct
// queue index.
type Tun struct {
	name   string
	queues []*Queue // detached slots are nil
}

// Create opens a new TUN or TAP interface with numQueues independent
// queues. name may contain the kernel's "%d" substitution token; the
// resolved name is captured once from the kernel and available from Name.
// Creating virtual interfaces requires CAP_NET_ADMIN; without it Create
// fails with ErrPermissionDenied. On any failure no descriptors are
// leaked.
func Create(name string, numQueues int, opts ...Option) (*Tun, error) {
	if numQueues < 1 {
		return nil, &DeviceError{Name: name, Op: "create", Err: ErrInvalidQueueCount}
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	queues, resolved, err := openQueues(name, numQueues, cfg)
	if err != nil {
		return nil, err
	}
	t := &Tun{name: resolved, queues: queues}
	if err := t.configureLink(cfg); err != nil {
		_ = t.Close()
		return nil, err
	}
	return t, nil
}

// FromQueues assembles a Tun from externally created queues, taking
// ownership of them. name is trusted as the resolved interface name.
func FromQueues(name string, queues ...*Queue) *Tun {
	qs := make([]*Queue, len(queues))
	copy(qs, queues)
	return &Tun{name: name, queues: qs}
}

func (t *Tun) configureLink(cfg *config) error {
	if cfg.mtu == 0 && !cfg.linkUp {
		return nil
	}
	link, err := netlink.LinkByName(t.name)
	if err != nil {
		return &DeviceError{Name: t.name, Op: "lookup link", Err: err}
	}
	if cfg.mtu > 0 {
		if err := netlink.LinkSetMTU(link, cfg.mtu); err != nil {
			return &DeviceError{Name: t.name, Op: "set mtu", Err: err}
		}
	}
	if cfg.linkUp {
		if err := netlink.LinkSetUp(link); err != nil {
			return &DeviceError{Name: t.name, Op: "set link up", Err: err}
		}
	}
	return nil
}

// Name returns the kernel-resolved interface name.
func (t *Tun) Name() string { return t.name }

// QueueCount returns the number of queue slots, including detached ones.
func (t *Tun) QueueCount() int { return len(t.queues) }

func (t *Tun) queue(i int) (*Queue, error) {
	if i < 0 || i >= len(t.queues) || t.queues[i] == nil {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidQueueIndex, i, len(t.queues))
	}
	return t.queues[i], nil
}

// Queue returns the queue at index i without transferring ownership.
func (t *Tun) Queue(i int) (*Queue, error) { return t.queue(i) }

// RecvVia reads the next packet off queue i. See Queue.Recv.
func (t *Tun) RecvVia(i int, buf []byte) (int, error) {
	q, err := t.queue(i)
	if err != nil {
		return 0, err
	}
	return q.Recv(buf)
}

// SendVia writes one packet via queue i. See Queue.Send.
func (t *Tun) SendVia(i int, buf []byte) (int, error) {
	q, err := t.queue(i)
	if err != nil {
		return 0, err
	}
	return q.Send(buf)
}

// Detach removes the queue at index i from the device and hands its
// ownership to the caller, who becomes responsible for closing it. The
// slot is no longer reachable through the Tun. This is the mechanism for
// dedicating a queue to one worker goroutine.
func (t *Tun) Detach(i int) (*Queue, error) {
	q, err := t.queue(i)
	if err != nil {
		return nil, err
	}
	t.queues[i] = nil
	return q, nil
}

// MTU reads the current link MTU back from the kernel.
func (t *Tun) MTU() (int, error) {
	link, err := netlink.LinkByName(t.name)
	if err != nil {
		return 0, &DeviceError{Name: t.name, Op: "lookup link", Err: err}
	}
	return link.Attrs().MTU, nil
}

// Close closes every queue still owned by the device. All queues are
// closed even if one fails; the first error wins. The kernel removes the
// interface once the last queue descriptor is gone.
func (t *Tun) Close() error {
	var closeErr error
	for i, q := range t.queues {
		if q == nil {
			continue
		}
		if err := q.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
		t.queues[i] = nil
	}
	return closeErr
}
