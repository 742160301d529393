//go:build linux

package tunq

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const devPath = "/dev/net/tun"

func tunFlags(mode Mode) uint16 {
	flags := uint16(unix.IFF_NO_PI | unix.IFF_MULTI_QUEUE)
	if mode == TAP {
		flags |= unix.IFF_TAP
	} else {
		flags |= unix.IFF_TUN
	}
	return flags
}

// openQueues opens one descriptor per queue on /dev/net/tun and binds them
// all to the same interface. The ifreq is shared across iterations: the
// first TUNSETIFF makes the kernel write the resolved name (any "%d"
// template expanded) back into it, so queues 2..n attach to the device
// queue 1 created. On any failure every descriptor opened by this attempt
// is closed before the error is returned.
func openQueues(name string, n int, cfg *config) ([]*Queue, string, error) {
	if !validName(name) {
		return nil, "", &DeviceError{Name: name, Op: "create", Err: ErrInvalidName}
	}
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return nil, "", &DeviceError{Name: name, Op: "create", Err: ErrInvalidName}
	}
	ifr.SetUint16(tunFlags(cfg.mode))

	queues := make([]*Queue, 0, n)
	fail := func(fd int, op string, err error) ([]*Queue, string, error) {
		if fd >= 0 {
			unix.Close(fd)
		}
		closeAll(queues)
		return nil, "", &DeviceError{Name: name, Op: op, Err: err}
	}

	for i := 0; i < n; i++ {
		fd, err := unix.Open(devPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			return fail(-1, "open "+devPath, err)
		}
		if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
			return fail(fd, "create", mapSetiffErr(err))
		}
		if cfg.nonblock {
			if err := unix.SetNonblock(fd, true); err != nil {
				return fail(fd, "set nonblock", err)
			}
		}
		queues = append(queues, newQueue(fd, i))
	}
	return queues, ifr.Name(), nil
}

// mapSetiffErr translates TUNSETIFF errnos into the package taxonomy.
func mapSetiffErr(err error) error {
	switch {
	case errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	case errors.Is(err, unix.EBUSY):
		return ErrBusy
	case errors.Is(err, unix.EINVAL):
		// Kernels without IFF_MULTI_QUEUE reject the flag set outright;
		// newer ones reject attaching more queues than the device allows
		// or a flag set that conflicts with an existing device.
		return fmt.Errorf("%w: %v", ErrUnsupportedMultiQueue, err)
	case errors.Is(err, unix.E2BIG):
		return fmt.Errorf("%w: %v", ErrUnsupportedMultiQueue, err)
	}
	return err
}

// validName rejects names the kernel would mangle: empty, non-ASCII, or
// longer than IFNAMSIZ-1 bytes.
func validName(name string) bool {
	if name == "" || len(name) >= unix.IFNAMSIZ {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return false
		}
	}
	return true
}

func closeAll(queues []*Queue) {
	for _, q := range queues {
		_ = q.Close()
	}
}
