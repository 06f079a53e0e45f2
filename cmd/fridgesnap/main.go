package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aoi01/fridgesnap/internal/app"
)

func main() {
	const shutdownTimeout = 5 * time.Second
	// Create a root context with the possibility of cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create a channel for signal handling
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	server := app.NewServer(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Wait for a signal
		sig := <-signalCh
		server.Log.Info(fmt.Sprintf("Received signal: %+v", sig))

		// Stop background jobs, then the server itself
		cancel()
		server.Shutdown(shutdownTimeout)
	}()

	// Start the server
	server.Serve()

	if ctx.Err() == nil {
		// Serve failed before any signal arrived
		os.Exit(1)
	}
	<-done
}
