//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"sparkrt/app"
	"sparkrt/hal"
	"sparkrt/internal/profile"
)

func main() {
	var cfg hal.HeadlessConfig
	var profileArg string
	var demo bool
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 60, "Frame rate in headless mode.")
	flag.Uint64Var(&cfg.Frames, "frames", 0, "Stop after N frames in headless mode (0 = run until the demo ends or forever).")
	flag.StringVar(&profileArg, "profile", "", "Preset name (host, pico2) or path to a TOML profile.")
	flag.BoolVar(&demo, "demo", true, "Run the priority-inversion and signal ping/pong workload.")
	flag.Parse()

	p, err := profile.Resolve(profileArg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	newApp := func(h hal.HAL) func() error {
		return app.NewWithConfig(h, app.Config{Profile: p, Demo: demo})
	}

	if cfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = hal.RunHeadless(ctx, newApp, cfg)
	} else {
		err = hal.RunWindow(newApp)
	}
	if err == nil || errors.Is(err, app.ErrDemoDone) || errors.Is(err, context.Canceled) {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
