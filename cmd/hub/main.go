package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/liqwatch/liqhub/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewBuilder().
		WithOptionsFetch().
		WithLogger().
		WithTelemetry().
		WithStore().
		WithTailers().
		WithPublisher(ctx).
		WithServers().
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building hub: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error running hub: %v\n", err)
		os.Exit(1)
	}
}
