package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"
)

// SetupLifecycle creates a context that is canceled either when the timeout
// expires or when SIGINT/SIGTERM is received, whichever happens first.
func SetupLifecycle(ctx context.Context, timeout time.Duration) (context.Context, *CancelFuncs) {
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, &CancelFuncs{cancelTimeout: cancelTimeout, stopSignals: stopSignals}
}

// CancelFuncs holds the cancel functions for lifecycle management.
type CancelFuncs struct {
	cancelTimeout context.CancelFunc
	stopSignals   context.CancelFunc
}

// Release stops signal delivery and releases the timeout.
func (c *CancelFuncs) Release() {
	c.stopSignals()
	c.cancelTimeout()
}
