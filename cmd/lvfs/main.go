// Command lvfs is a thin shell around the virtual filesystem facade: every
// subcommand takes URLs and works identically across local disk, HDFS,
// object stores and Artifactory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "lvfs:", err)
		os.Exit(1)
	}
}
