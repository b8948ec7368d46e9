//go:build !tinygo

// Command mkprofile validates a runtime profile and writes it out as a
// complete TOML document with every default filled in.
package main

import (
	"flag"
	"fmt"
	"os"

	"sparkrt/internal/profile"
)

const defaultOutPath = "profile.toml"

func main() {
	var (
		in    = flag.String("in", "", "Preset name (host, pico2) or TOML file to start from (default: built-in defaults).")
		out   = flag.String("out", defaultOutPath, "Output file; \"-\" writes to stdout.")
		name  = flag.String("name", "", "Override the profile name.")
		check = flag.Bool("check", false, "Validate only; write nothing.")
	)
	flag.Parse()

	if err := run(*in, *out, *name, *check); err != nil {
		fmt.Fprintln(os.Stderr, "mkprofile:", err)
		os.Exit(1)
	}
}

func run(in, out, name string, check bool) error {
	p, err := profile.Resolve(in)
	if err != nil {
		return err
	}
	if name != "" {
		p.Name = name
	}
	data, err := profile.Encode(p)
	if err != nil {
		return err
	}
	if check {
		kc := p.KernelConfig()
		fmt.Printf("%s: ok (levels=%d ceiling=%d threads=%d assert=%s queue=%d)\n",
			p.Name, kc.Priorities, kc.PriorityCeiling, kc.Threads, kc.Assert, p.Signal.QueueSize)
		return nil
	}
	if out == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
	return nil
}
