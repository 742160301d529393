//go:build linux

package reactor_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/tunq-dev/tunq/reactor"
)

func newReactor(t *testing.T) *reactor.Epoll {
	t.Helper()
	e, err := reactor.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func expectEvent(t *testing.T, ch <-chan reactor.Interest, want reactor.Interest) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("no %s event delivered", want)
	}
}

func expectSilence(t *testing.T, ch <-chan reactor.Interest) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected %s event", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReadableFiresOnData(t *testing.T) {
	e := newReactor(t)
	rd, wr := socketPair(t)

	ready := make(chan reactor.Interest, 1)
	require.NoError(t, e.Register(rd, reactor.Readable, ready))
	expectSilence(t, ready)

	_, err := unix.Write(wr, []byte("x"))
	require.NoError(t, err)
	expectEvent(t, ready, reactor.Readable)
}

func TestWritableFiresImmediately(t *testing.T) {
	e := newReactor(t)
	_, wr := socketPair(t)

	ready := make(chan reactor.Interest, 1)
	require.NoError(t, e.Register(wr, reactor.Writable, ready))
	expectEvent(t, ready, reactor.Writable)
}

func TestRegistrationIsOneShot(t *testing.T) {
	e := newReactor(t)
	rd, wr := socketPair(t)

	ready := make(chan reactor.Interest, 1)
	require.NoError(t, e.Register(rd, reactor.Readable, ready))

	_, err := unix.Write(wr, []byte("x"))
	require.NoError(t, err)
	expectEvent(t, ready, reactor.Readable)

	// More data without re-registering must not fire again.
	_, err = unix.Write(wr, []byte("y"))
	require.NoError(t, err)
	expectSilence(t, ready)

	// Re-arming fires immediately: the fd is still readable.
	require.NoError(t, e.Register(rd, reactor.Readable, ready))
	expectEvent(t, ready, reactor.Readable)
}

func TestDeregisterDropsInterest(t *testing.T) {
	e := newReactor(t)
	rd, wr := socketPair(t)

	ready := make(chan reactor.Interest, 1)
	require.NoError(t, e.Register(rd, reactor.Readable, ready))
	require.NoError(t, e.Deregister(rd, reactor.Readable))

	_, err := unix.Write(wr, []byte("x"))
	require.NoError(t, err)
	expectSilence(t, ready)

	// Unknown fds are ignored.
	require.NoError(t, e.Deregister(12345, reactor.Readable|reactor.Writable))
}

func TestIndependentReadAndWriteInterest(t *testing.T) {
	e := newReactor(t)
	rd, wr := socketPair(t)

	readReady := make(chan reactor.Interest, 1)
	writeReady := make(chan reactor.Interest, 1)
	require.NoError(t, e.Register(rd, reactor.Readable, readReady))
	require.NoError(t, e.Register(rd, reactor.Writable, writeReady))

	// The socket is writable at once, but not readable.
	expectEvent(t, writeReady, reactor.Writable)
	expectSilence(t, readReady)

	// Read interest survives the write event firing.
	_, err := unix.Write(wr, []byte("x"))
	require.NoError(t, err)
	expectEvent(t, readReady, reactor.Readable)
}

func TestCloseRejectsFurtherUse(t *testing.T) {
	e, err := reactor.New()
	require.NoError(t, err)
	rd, _ := socketPair(t)

	ready := make(chan reactor.Interest, 1)
	require.NoError(t, e.Register(rd, reactor.Readable, ready))

	require.NoError(t, e.Close())
	require.ErrorIs(t, e.Close(), os.ErrClosed)
	require.ErrorIs(t, e.Register(rd, reactor.Readable, ready), os.ErrClosed)
	require.ErrorIs(t, e.Deregister(rd, reactor.Readable), os.ErrClosed)
}

func TestInterestString(t *testing.T) {
	require.Equal(t, "readable", reactor.Readable.String())
	require.Equal(t, "writable", reactor.Writable.String())
	require.Equal(t, "readable|writable", (reactor.Readable | reactor.Writable).String())
	require.Equal(t, "none", reactor.Interest(0).String())
}
