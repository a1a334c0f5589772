package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ccreport/internal/failover"
)

func main() {
	ctx, cancel := signalContext()
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fatal(err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fatal(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, failover.ErrNoActiveEndpoint) {
		fmt.Fprintln(os.Stderr, "error: no active controller; check controller.primary_url/secondary_url and credentials")
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
