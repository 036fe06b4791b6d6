//go:build debug

package main

import (
	"context"
	"time"

	"ornament-go/bus"
	"ornament-go/services/diag"
)

// diagnostics routes notices over the bus to the console monitor.
func diagnostics(ctx context.Context, b *bus.Bus) diag.Sink {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] debug build, diagnostics on console")

	_ = diag.NewMonitor(diag.Console()).Start(ctx, b.NewConnection("monitor"))
	return diag.NewBusSink(b.NewConnection("ornament"))
}
