//go:build !linux

package reactor

import "errors"

// Epoll is unavailable: no poller backend is implemented for this
// platform.
type Epoll struct{}

// New fails fast on platforms without a poller backend.
func New() (*Epoll, error) {
	return nil, errors.New("reactor: not implemented on this platform")
}

func (e *Epoll) Register(fd int, interest Interest, ready chan<- Interest) error {
	return errors.New("reactor: not implemented on this platform")
}

func (e *Epoll) Deregister(fd int, interest Interest) error {
	return errors.New("reactor: not implemented on this platform")
}

func (e *Epoll) Close() error { return nil }
