package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sparkrt/sparkos/kernel"

	"github.com/pelletier/go-toml/v2"
)

func TestPresetsValidate(t *testing.T) {
	for _, name := range []string{"host", "pico2"} {
		t.Run(name, func(t *testing.T) {
			p, err := Preset(name)
			if err != nil {
				t.Fatal(err)
			}
			if p.Name != name {
				t.Fatalf("Name = %q, want %q", p.Name, name)
			}
			if _, err := kernel.New(p.KernelConfig()); err != nil {
				t.Fatalf("kernel.New: %v", err)
			}
		})
	}
}

func TestParseOverlaysDefault(t *testing.T) {
	p, err := Parse([]byte(`
name = "tiny"
[kernel]
priorities = 8
assert = "panic"
[signal]
queue_size = 4
`))
	if err != nil {
		t.Fatal(err)
	}
	kc := p.KernelConfig()
	if kc.Priorities != 8 || kc.Assert != kernel.AssertPanic {
		t.Fatalf("kernel config = %+v", kc)
	}
	if kc.Threads != kernel.DefaultConfig().Threads {
		t.Fatalf("threads = %d, want default", kc.Threads)
	}
	sc := p.SignalConfig()
	if sc.QueueSize != 4 || sc.RTMin != 32 {
		t.Fatalf("signal config = %+v", sc)
	}
	if mc := p.MonitorConfig(); mc.Buffer != Default().Monitor.Buffer {
		t.Fatalf("monitor config = %+v", mc)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad assert", "[kernel]\nassert = \"maybe\"", ""},
		{"no levels", "[kernel]\npriorities = 0", "kernel.priorities"},
		{"ceiling", "[kernel]\npriorities = 4\npriority_ceiling = 4", "priority_ceiling"},
		{"queue", "[signal]\nqueue_size = 300", "queue_size"},
		{"rtmin", "[signal]\nrtmin = 200", "rtmin"},
		{"name", "name = \"Bad Name\"", "profile name"},
		{"unknown key", "[kernel]\nturbo = true", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if err == nil {
				t.Fatal("Parse succeeded")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestUnknownKeyIsStrictError(t *testing.T) {
	_, err := Parse([]byte("[kernel]\nturbo = true"))
	var strict *toml.StrictMissingError
	if !errors.As(err, &strict) {
		t.Fatalf("err = %v, want *toml.StrictMissingError", err)
	}
}

func TestResolve(t *testing.T) {
	p, err := Resolve("")
	if err != nil || p.Name != "default" {
		t.Fatalf("Resolve(\"\") = %+v, %v", p, err)
	}
	if p, err := Resolve("pico2"); err != nil || p.Kernel.Threads != 16 {
		t.Fatalf("Resolve(pico2) = %+v, %v", p, err)
	}

	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, []byte("name = \"custom\"\n[demo]\nrounds = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err = Resolve(path)
	if err != nil || p.Demo.Rounds != 2 {
		t.Fatalf("Resolve(file) = %+v, %v", p, err)
	}

	if _, err := Resolve(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Resolve(missing) succeeded")
	}
}

func TestEncodeReparses(t *testing.T) {
	p, err := Preset("host")
	if err != nil {
		t.Fatal(err)
	}
	data, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "assert = 'panic'") && !strings.Contains(string(data), `assert = "panic"`) {
		t.Fatalf("encoded profile lacks the assert mode name:\n%s", data)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if *back != *p {
		t.Fatalf("reparsed profile = %+v, want %+v", back, p)
	}

	p.Kernel.Threads = 0
	if _, err := Encode(p); err == nil {
		t.Fatal("Encode accepted an invalid profile")
	}
}
