// nfbd runs an NFB ledger node: the registry, the sales engine and the
// JSON-RPC endpoint in front of them.
//
// Usage:
//
//	nfbd [--testnet] [--admins=<addr,...>] [--alloc=<addr:amount,...>]
//	nfbd --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/nfb-ledger/config"
	klog "github.com/Klingon-tech/nfb-ledger/internal/log"
	"github.com/Klingon-tech/nfb-ledger/internal/node"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := config.Load()
	if err != nil {
		return err
	}

	n, err := node.New(cfg)
	if err != nil {
		return err
	}
	defer n.Stop()

	if err := n.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case <-ctx.Done():
		klog.Node.Info().Msg("Shutdown signal received")
	case <-n.Context().Done():
	}
	return nil
}
