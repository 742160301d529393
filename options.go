package tunq

// Mode selects the interface type.
type Mode int

const (
	// TUN is a point-to-point interface carrying raw IP packets.
	TUN Mode = iota
	// TAP is an Ethernet interface carrying raw frames.
	TAP
)

func (m Mode) String() string {
	switch m {
	case TUN:
		return "tun"
	case TAP:
		return "tap"
	}
	return "unknown"
}

type config struct {
	mode     Mode
	mtu      int
	linkUp   bool
	nonblock bool
}

func defaultConfig() *config {
	return &config{mode: TUN}
}

// Option configures device creation.
type Option func(*config)

// WithMode selects TUN (default) or TAP.
func WithMode(m Mode) Option {
	return func(c *config) { c.mode = m }
}

// WithMTU sets the link MTU after the device is created.
func WithMTU(mtu int) Option {
	return func(c *config) { c.mtu = mtu }
}

// WithLinkUp brings the link administratively up after creation.
func WithLinkUp() Option {
	return func(c *config) { c.linkUp = true }
}

// WithNonblock puts every queue descriptor into non-blocking mode before
// the device is returned. Required when queues are handed to a readiness
// bridge (see the async subpackage); blocking callers should leave it off
// so they never observe EAGAIN.
func WithNonblock() Option {
	return func(c *config) { c.nonblock = true }
}
