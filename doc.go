// Package tunq creates and manages multi-queue TUN/TAP virtual network
// interfaces.
//
// A device is created with Create, which opens one descriptor per queue on
// the platform control path and returns a Tun owning all of them. The name
// passed to Create may contain the kernel's "%d" substitution token; the
// resolved name is available from Tun.Name afterwards:
//
//	dev, err := tunq.Create("tq%d", 4, tunq.WithMTU(1500), tunq.WithLinkUp())
//	if err != nil {
//		return err
//	}
//	defer dev.Close()
//
//	buf := make([]byte, 1500)
//	n, err := dev.RecvVia(0, buf)
//
// Address and route configuration stays with external tooling (ip(8),
// netlink); the library only exposes the resolved device name and basic
// link options.
//
// Queues can be detached from the device and handed to individual worker
// goroutines, each blocking on its own descriptor. For readiness-driven
// I/O, the async subpackage adapts queues to context-based operations over
// any reactor implementing the reactor.Registrar capability, wgcompat
// serves a queue as a wireguard-go tun.Device, and AsFile moves a queue
// onto the Go runtime poller.
//
// Only Linux is implemented; on other platforms every entry point fails
// with ErrNotImplemented.
package tunq
