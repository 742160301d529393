package tunq

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when the process lacks the
	// capability to create virtual interfaces (CAP_NET_ADMIN on Linux).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrBusy is returned when the requested interface name is already
	// taken by a device this process cannot attach to.
	ErrBusy = errors.New("device busy or name already in use")

	// ErrUnsupportedMultiQueue is returned when the running kernel rejects
	// the multi-queue flag set or the requested number of queues.
	ErrUnsupportedMultiQueue = errors.New("multi-queue unsupported by kernel")

	// ErrInvalidQueueCount is returned when fewer than one queue is
	// requested.
	ErrInvalidQueueCount = errors.New("queue count must be at least 1")

	// ErrInvalidQueueIndex is returned when a queue index is out of range
	// or refers to a detached slot.
	ErrInvalidQueueIndex = errors.New("invalid queue index")

	// ErrInvalidName is returned when the device name is empty, not
	// ASCII, or does not fit in the platform name limit.
	ErrInvalidName = errors.New("invalid device name")

	// ErrNotImplemented is returned on platforms without a device
	// implementation.
	ErrNotImplemented = errors.New("not implemented on this platform")
)

// DeviceError wraps a failure while creating or configuring a device.
type DeviceError struct {
	Name string // requested or resolved interface name
	Op   string
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("tunq: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
