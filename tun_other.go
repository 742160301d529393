//go:build !linux

package tunq

// Virtual interface support is implemented for Linux only. On other
// platforms creation fails fast with ErrNotImplemented and adopted queues
// reject all I/O.

// Queue is one kernel I/O channel of a virtual interface.
type Queue struct{}

// QueueFromFd is unsupported on this platform.
func QueueFromFd(fd, index int) *Queue { return &Queue{} }

func (q *Queue) Index() int                   { return 0 }
func (q *Queue) Fd() int                      { return -1 }
func (q *Queue) SetNonblock(on bool) error    { return ErrNotImplemented }
func (q *Queue) Recv(buf []byte) (int, error) { return 0, ErrNotImplemented }
func (q *Queue) Send(buf []byte) (int, error) { return 0, ErrNotImplemented }
func (q *Queue) Read(p []byte) (int, error)   { return 0, ErrNotImplemented }
func (q *Queue) Write(p []byte) (int, error)  { return 0, ErrNotImplemented }
func (q *Queue) Close() error                 { return ErrNotImplemented }

// Tun is a named virtual interface and the ordered set of queues attached
// to it.
type Tun struct{}

// Create is unsupported on this platform.
func Create(name string, numQueues int, opts ...Option) (*Tun, error) {
	return nil, &DeviceError{Name: name, Op: "create", Err: ErrNotImplemented}
}

// FromQueues is unsupported on this platform.
func FromQueues(name string, queues ...*Queue) *Tun { return &Tun{} }

func (t *Tun) Name() string                           { return "" }
func (t *Tun) QueueCount() int                        { return 0 }
func (t *Tun) Queue(i int) (*Queue, error)            { return nil, ErrNotImplemented }
func (t *Tun) RecvVia(i int, buf []byte) (int, error) { return 0, ErrNotImplemented }
func (t *Tun) SendVia(i int, buf []byte) (int, error) { return 0, ErrNotImplemented }
func (t *Tun) Detach(i int) (*Queue, error)           { return nil, ErrNotImplemented }
func (t *Tun) MTU() (int, error)                      { return 0, ErrNotImplemented }
func (t *Tun) Close() error                           { return nil }
