//go:build linux

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

var _ Registrar = (*Epoll)(nil)

// Epoll is a Registrar backed by an epoll instance and a single dispatch
// goroutine. Registrations are armed with EPOLLONESHOT so a descriptor is
// disarmed the moment an event fires, matching the one-shot Registrar
// contract.
type Epoll struct {
	epfd   int
	wakefd int // eventfd used to interrupt the dispatch loop on Close

	mu     sync.Mutex
	regs   map[int]*registration
	closed bool

	done chan struct{}
}

type registration struct {
	interest Interest
	readCh   chan<- Interest
	writeCh  chan<- Interest
}

// New creates a reactor and starts its dispatch goroutine.
func New() (*Epoll, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	e := &Epoll{
		epfd:   epfd,
		wakefd: wakefd,
		regs:   make(map[int]*registration),
		done:   make(chan struct{}),
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl add wakeup: %w", err)
	}
	go e.loop()
	return e, nil
}

// Register implements Registrar.
func (e *Epoll) Register(fd int, interest Interest, ready chan<- Interest) error {
	if interest&(Readable|Writable) == 0 {
		return fmt.Errorf("reactor: empty interest for fd %d", fd)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return os.ErrClosed
	}
	reg, ok := e.regs[fd]
	if !ok {
		reg = &registration{}
		e.regs[fd] = reg
	}
	if interest&Readable != 0 {
		reg.readCh = ready
	}
	if interest&Writable != 0 {
		reg.writeCh = ready
	}
	reg.interest |= interest
	if err := e.arm(fd, reg.interest); err != nil {
		delete(e.regs, fd)
		return err
	}
	return nil
}

// Deregister implements Registrar.
func (e *Epoll) Deregister(fd int, interest Interest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return os.ErrClosed
	}
	reg, ok := e.regs[fd]
	if !ok {
		return nil
	}
	reg.interest &^= interest
	if interest&Readable != 0 {
		reg.readCh = nil
	}
	if interest&Writable != 0 {
		reg.writeCh = nil
	}
	if reg.interest == 0 {
		delete(e.regs, fd)
		return e.del(fd)
	}
	return e.arm(fd, reg.interest)
}

// Close tears the reactor down. Armed registrations are dropped without
// firing; Register and Deregister fail afterwards.
func (e *Epoll) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return os.ErrClosed
	}
	e.closed = true
	for fd := range e.regs {
		_ = e.del(fd)
		delete(e.regs, fd)
	}
	e.mu.Unlock()

	// Wake the dispatch goroutine so it observes closed and exits.
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(e.wakefd, buf[:])
	<-e.done

	unix.Close(e.wakefd)
	unix.Close(e.epfd)
	return nil
}

// arm installs or updates the one-shot epoll entry for fd. After a
// one-shot fires the fd stays in the interest set disarmed, so MOD is the
// common case and ADD the fallback for fds seen for the first time.
func (e *Epoll) arm(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: epollEvents(interest) | unix.EPOLLONESHOT, Fd: int32(fd)}
	err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	if errors.Is(err, unix.ENOENT) {
		err = unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	}
	if err != nil {
		return fmt.Errorf("epoll_ctl fd %d: %w", fd, err)
	}
	return nil
}

func (e *Epoll) del(fd int) error {
	err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
		return fmt.Errorf("epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

func (e *Epoll) loop() {
	defer close(e.done)
	events := make([]unix.EpollEvent, 64)
	for {
		n, err := unix.EpollWait(e.epfd, events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return
		}
		for _, ev := range events[:n] {
			fd := int(ev.Fd)
			if fd == e.wakefd {
				var buf [8]byte
				_, _ = unix.Read(e.wakefd, buf[:])
				e.mu.Lock()
				closed := e.closed
				e.mu.Unlock()
				if closed {
					return
				}
				continue
			}
			e.dispatch(fd, ev.Events)
		}
	}
}

func (e *Epoll) dispatch(fd int, events uint32) {
	e.mu.Lock()
	reg, ok := e.regs[fd]
	if !ok {
		// Deregistered between wait and dispatch.
		e.mu.Unlock()
		return
	}
	fired := firedInterest(events) & reg.interest
	if events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		// Wake everything armed; waiters discover the condition on their
		// next non-blocking I/O attempt.
		fired = reg.interest
	}
	if fired == 0 {
		// One-shot disarmed the fd; re-arm what is still wanted.
		_ = e.arm(fd, reg.interest)
		e.mu.Unlock()
		return
	}
	readCh, writeCh := reg.readCh, reg.writeCh
	reg.interest &^= fired
	if fired&Readable != 0 {
		reg.readCh = nil
	}
	if fired&Writable != 0 {
		reg.writeCh = nil
	}
	if reg.interest == 0 {
		delete(e.regs, fd)
		_ = e.del(fd)
	} else {
		_ = e.arm(fd, reg.interest)
	}
	e.mu.Unlock()

	if fired&Readable != 0 && readCh != nil {
		select {
		case readCh <- Readable:
		default:
		}
	}
	if fired&Writable != 0 && writeCh != nil {
		select {
		case writeCh <- Writable:
		default:
		}
	}
}

func epollEvents(interest Interest) uint32 {
	var events uint32
	if interest&Readable != 0 {
		events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest&Writable != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func firedInterest(events uint32) Interest {
	var fired Interest
	if events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
		fired |= Readable
	}
	if events&unix.EPOLLOUT != 0 {
		fired |= Writable
	}
	return fired
}
