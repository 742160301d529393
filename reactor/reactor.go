// Package reactor provides the readiness capability consumed by the async
// adapters: a minimal register/deregister contract over file-descriptor
// readiness that concrete pollers implement.
//
// A Registrar never owns descriptor lifetime. Registrations are keyed by
// the fd's integer value and must be dropped by the owner before the fd
// is closed.
package reactor

import "strings"

// Interest describes which readiness events a registration waits for.
type Interest uint8

const (
	// Readable fires when a read would not block.
	Readable Interest = 1 << iota
	// Writable fires when a write would not block.
	Writable
)

func (i Interest) String() string {
	var parts []string
	if i&Readable != 0 {
		parts = append(parts, "readable")
	}
	if i&Writable != 0 {
		parts = append(parts, "writable")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Registrar registers interest in descriptor readiness.
//
// Registrations are one-shot per direction: an armed interest fires at
// most once on its channel and must be re-registered to fire again.
// Registering an already armed direction replaces its channel. Error and
// hangup conditions fire every armed direction so waiters can observe the
// failure through a subsequent non-blocking I/O attempt.
type Registrar interface {
	// Register arms interest for fd, delivering to ready. Delivery is
	// non-blocking: give ready enough capacity for the events you arm,
	// or the event is dropped.
	Register(fd int, interest Interest, ready chan<- Interest) error

	// Deregister drops the given directions for fd. Passing
	// Readable|Writable removes the registration entirely. Unknown fds
	// and unarmed directions are ignored.
	Deregister(fd int, interest Interest) error
}
