// cmd/boardtest/main.go
package main

import (
	"context"
	"time"

	"ornament-go/services/config"
	"ornament-go/services/ornament"
)

const (
	device = "pico"
	dwell  = 2 * time.Second
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[boardtest] loading config for", device)

	cfg, err := config.Load(device)
	if err != nil {
		println("[boardtest] config:", err.Error())
		select {}
	}
	err = ornament.BringUp(context.Background(), cfg, ornament.DefaultHardware(cfg), dwell, func(step string) {
		println("[boardtest]", step)
	})
	if err != nil {
		println("[boardtest] failed:", err.Error())
	} else {
		println("[boardtest] done")
	}
	select {}
}
