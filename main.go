package main

import (
	"context"

	"ornament-go/bus"
	"ornament-go/services/config"
	"ornament-go/services/ornament"
)

// device selects the embedded board configuration; override with
// -ldflags "-X main.device=bench".
var device = "pico"

func main() {
	ctx := context.Background()
	b := bus.NewBus(8)
	sink := diagnostics(ctx, b)

	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, device)
	cfg, err := config.NewConfigService().Resolve(cfgCtx, b.NewConnection("config"))
	if err != nil {
		println("[main] config:", err.Error())
		halt()
	}

	// Returns only into FAULT: both cells are exhausted.
	err = ornament.Run(ctx, cfg, sink)
	println("[main] ornament stopped:", err.Error())
	halt()
}

func halt() {
	select {}
}
