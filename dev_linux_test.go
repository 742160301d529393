//go:build linux

package tunq

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestTunFlags(t *testing.T) {
	require.Equal(t, uint16(unix.IFF_TUN|unix.IFF_NO_PI|unix.IFF_MULTI_QUEUE), tunFlags(TUN))
	require.Equal(t, uint16(unix.IFF_TAP|unix.IFF_NO_PI|unix.IFF_MULTI_QUEUE), tunFlags(TAP))
}

func TestMapSetiffErr(t *testing.T) {
	require.ErrorIs(t, mapSetiffErr(unix.EPERM), ErrPermissionDenied)
	require.ErrorIs(t, mapSetiffErr(unix.EBUSY), ErrBusy)
	require.ErrorIs(t, mapSetiffErr(unix.EINVAL), ErrUnsupportedMultiQueue)
	require.ErrorIs(t, mapSetiffErr(unix.E2BIG), ErrUnsupportedMultiQueue)
	// Unknown errnos pass through untouched.
	require.ErrorIs(t, mapSetiffErr(unix.ENOMEM), unix.ENOMEM)
}

func TestValidName(t *testing.T) {
	require.True(t, validName("tq%d"))
	require.True(t, validName("tun0"))
	require.False(t, validName(""))
	require.False(t, validName("way-too-long-interface-name"))
	require.False(t, validName("tq\x00"))
	require.False(t, validName("tqü"))
}
