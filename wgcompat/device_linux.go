//go:build linux

// Package wgcompat serves a tunq queue as a wireguard-go tun.Device so a
// device created here can back a WireGuard interface directly.
package wgcompat

import (
	"os"
	"sync"

	wgtun "golang.zx2c4.com/wireguard/tun"

	"github.com/tunq-dev/tunq"
)

var _ wgtun.Device = (*Device)(nil)

// Device adapts one queue to the wireguard-go device contract. The queue
// is moved onto the runtime poller so Close unblocks pending reads, which
// wireguard-go relies on during shutdown.
type Device struct {
	name   string
	mtu    int
	file   *os.File
	events chan wgtun.Event

	closeOnce sync.Once
	closeErr  error
}

// NewDevice takes ownership of q (detach it from its Tun first). mtu is
// reported verbatim to WireGuard; configure the link to match before
// handing the device over.
func NewDevice(q *tunq.Queue, name string, mtu int) (*Device, error) {
	f, err := tunq.AsFile(q)
	if err != nil {
		return nil, err
	}
	d := &Device{
		name:   name,
		mtu:    mtu,
		file:   f,
		events: make(chan wgtun.Event, 1),
	}
	d.events <- wgtun.EventUp
	return d, nil
}

func (d *Device) File() *os.File { return d.file }

func (d *Device) Name() (string, error) { return d.name, nil }

func (d *Device) MTU() (int, error) { return d.mtu, nil }

func (d *Device) BatchSize() int { return 1 }

func (d *Device) Events() <-chan wgtun.Event { return d.events }

func (d *Device) Read(bufs [][]byte, sizes []int, offset int) (int, error) {
	if len(bufs) == 0 {
		return 0, nil
	}
	n, err := d.file.Read(bufs[0][offset:])
	if err != nil {
		return 0, err
	}
	sizes[0] = n
	return 1, nil
}

func (d *Device) Write(bufs [][]byte, offset int) (int, error) {
	written := 0
	for _, buf := range bufs {
		if _, err := d.file.Write(buf[offset:]); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		close(d.events)
		d.closeErr = d.file.Close()
	})
	return d.closeErr
}
