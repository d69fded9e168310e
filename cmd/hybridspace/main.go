package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/garethgeorge/hybridspace/internal/cli"
	"github.com/garethgeorge/hybridspace/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
