//go:build linux

package tunq

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

// Splice copies packets bidirectionally between a and b until ctx is
// cancelled or either side fails. Both queues are consumed: they are moved
// onto the runtime poller so cancellation can interrupt in-flight reads.
// Cancellation and queue closure return nil; any other failure is
// returned.
func Splice(ctx context.Context, a, b *Queue, mtu int) error {
	fa, err := AsFile(a)
	if err != nil {
		return fmt.Errorf("splice: %w", err)
	}
	fb, err := AsFile(b)
	if err != nil {
		fa.Close()
		return fmt.Errorf("splice: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		fa.Close()
		fb.Close()
		return nil
	})
	g.Go(func() error { return copyPackets(fa, fb, mtu) })
	g.Go(func() error { return copyPackets(fb, fa, mtu) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func copyPackets(src, dst *os.File, mtu int) error {
	buf := make([]byte, mtu)
	for {
		n, err := src.Read(buf)
		if err != nil {
			return fmt.Errorf("splice recv: %w", err)
		}
		if _, err := dst.Write(buf[:n]); err != nil {
			return fmt.Errorf("splice send: %w", err)
		}
	}
}
