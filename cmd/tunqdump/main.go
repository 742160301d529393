// Command tunqdump creates a TUN/TAP device and hex-dumps every packet
// received on it, one reader goroutine per queue. Address configuration
// is left to external tooling, e.g.:
//
//	sudo tunqdump --name tq%d --queues 2 &
//	sudo ip addr add 203.0.113.1/24 dev tq0
package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tunq-dev/tunq"
)

var (
	name     string
	queues   int
	tap      bool
	mtu      int
	linkDown bool
)

var rootCmd = &cobra.Command{
	Use:          "tunqdump",
	Short:        "Create a TUN/TAP device and hex-dump received packets",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&name, "name", "tq%d", "interface name template (%d is kernel-substituted)")
	rootCmd.Flags().IntVar(&queues, "queues", 1, "number of queues")
	rootCmd.Flags().BoolVar(&tap, "tap", false, "create a TAP (Ethernet) device instead of TUN")
	rootCmd.Flags().IntVar(&mtu, "mtu", 1500, "interface MTU")
	rootCmd.Flags().BoolVar(&linkDown, "link-down", false, "leave the link administratively down")
}

func run() error {
	mode := tunq.TUN
	if tap {
		mode = tunq.TAP
	}
	opts := []tunq.Option{tunq.WithMode(mode), tunq.WithMTU(mtu)}
	if !linkDown {
		opts = append(opts, tunq.WithLinkUp())
	}

	dev, err := tunq.Create(name, queues, opts...)
	if err != nil {
		return err
	}
	defer dev.Close()

	slog.Info("created device",
		"name", dev.Name(), "mode", mode.String(), "queues", dev.QueueCount())

	// One blocking reader per detached queue, the synchronous
	// multi-threaded pattern.
	for i := 0; i < queues; i++ {
		q, err := dev.Detach(i)
		if err != nil {
			return err
		}
		go dump(q)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")
	return nil
}

func dump(q *tunq.Queue) {
	defer q.Close()
	buf := make([]byte, mtu+14)
	for {
		n, err := q.Recv(buf)
		if err != nil {
			slog.Error("recv failed", "queue", q.Index(), "error", err)
			return
		}
		fmt.Printf("queue %d: %d bytes\n%s", q.Index(), n, hex.Dump(buf[:n]))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
