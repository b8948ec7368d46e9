// Package profile loads runtime profiles: TOML documents carrying the kernel,
// signal and monitor configuration of a build.
package profile

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"regexp"

	"sparkrt/sparkos/kernel"
	"sparkrt/sparkos/services/monitor"
	"sparkrt/sparkos/signal"
	"sparkrt/sparkos/sigset"

	"github.com/pelletier/go-toml/v2"
)

//go:embed presets/*.toml
var presets embed.FS

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// AssertMode is kernel.AssertMode spelled "return" or "panic" in TOML.
type AssertMode kernel.AssertMode

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *AssertMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "return":
		*m = AssertMode(kernel.AssertReturn)
	case "panic":
		*m = AssertMode(kernel.AssertPanic)
	default:
		return fmt.Errorf("assert mode %q not allowed (return, panic)", b)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m AssertMode) MarshalText() ([]byte, error) {
	switch kernel.AssertMode(m) {
	case kernel.AssertReturn:
		return []byte("return"), nil
	case kernel.AssertPanic:
		return []byte("panic"), nil
	default:
		return nil, fmt.Errorf("assert mode %d has no name", m)
	}
}

type Kernel struct {
	Priorities      int        `toml:"priorities"`
	PriorityCeiling int        `toml:"priority_ceiling"`
	Threads         int        `toml:"threads"`
	Assert          AssertMode `toml:"assert"`
}

type Signal struct {
	QueueSize int `toml:"queue_size"`
	RTMin     int `toml:"rtmin"`
}

type Monitor struct {
	Buffer   int  `toml:"buffer"`
	Console  bool `toml:"console"`
	Switches bool `toml:"switches"`
}

type Demo struct {
	// Rounds is the number of ping/pong exchanges and lock contentions.
	Rounds int `toml:"rounds"`
}

// Profile is one runtime configuration.
type Profile struct {
	Name    string  `toml:"name"`
	Kernel  Kernel  `toml:"kernel"`
	Signal  Signal  `toml:"signal"`
	Monitor Monitor `toml:"monitor"`
	Demo    Demo    `toml:"demo"`
}

// Default returns the profile matching the package defaults.
func Default() *Profile {
	kc := kernel.DefaultConfig()
	sc := signal.DefaultConfig()
	mc := monitor.DefaultConfig()
	return &Profile{
		Name: "default",
		Kernel: Kernel{
			Priorities:      kc.Priorities,
			PriorityCeiling: kc.PriorityCeiling,
			Threads:         kc.Threads,
			Assert:          AssertMode(kc.Assert),
		},
		Signal:  Signal{QueueSize: sc.QueueSize, RTMin: sc.RTMin},
		Monitor: Monitor{Buffer: mc.Buffer, Console: mc.Console, Switches: mc.Switches},
		Demo:    Demo{Rounds: 4},
	}
}

// Validate checks all fields and cross-field constraints.
func (p *Profile) Validate() error {
	if !nameRe.MatchString(p.Name) {
		return fmt.Errorf("invalid profile name %q", p.Name)
	}
	k := p.Kernel
	if k.Priorities < 1 || k.Priorities > kernel.MaxPriorities {
		return fmt.Errorf("kernel.priorities %d out of range [1, %d]", k.Priorities, kernel.MaxPriorities)
	}
	if k.PriorityCeiling < 0 || k.PriorityCeiling >= k.Priorities {
		return fmt.Errorf("kernel.priority_ceiling %d out of range [0, %d)", k.PriorityCeiling, k.Priorities)
	}
	if k.Threads < 1 || k.Threads > kernel.MaxThreads {
		return fmt.Errorf("kernel.threads %d out of range [1, %d]", k.Threads, kernel.MaxThreads)
	}
	s := p.Signal
	if s.QueueSize < 1 || s.QueueSize > 256 {
		return fmt.Errorf("signal.queue_size %d out of range [1, 256]", s.QueueSize)
	}
	if !sigset.Valid(s.RTMin) {
		return fmt.Errorf("signal.rtmin %d out of range [1, %d]", s.RTMin, sigset.MaxSignal)
	}
	if p.Monitor.Buffer < 1 {
		return fmt.Errorf("monitor.buffer %d too small (min 1)", p.Monitor.Buffer)
	}
	if p.Demo.Rounds < 0 {
		return fmt.Errorf("demo.rounds %d negative", p.Demo.Rounds)
	}
	return nil
}

// KernelConfig converts the [kernel] table. IRQ, Tracer and OnPanic are left
// for the caller to wire.
func (p *Profile) KernelConfig() kernel.Config {
	cfg := kernel.DefaultConfig()
	cfg.Priorities = p.Kernel.Priorities
	cfg.PriorityCeiling = p.Kernel.PriorityCeiling
	cfg.Threads = p.Kernel.Threads
	cfg.Assert = kernel.AssertMode(p.Kernel.Assert)
	return cfg
}

func (p *Profile) SignalConfig() signal.Config {
	return signal.Config{QueueSize: p.Signal.QueueSize, RTMin: p.Signal.RTMin}
}

func (p *Profile) MonitorConfig() monitor.Config {
	return monitor.Config{Buffer: p.Monitor.Buffer, Console: p.Monitor.Console, Switches: p.Monitor.Switches}
}

// Parse decodes a TOML profile over Default and validates it. Unknown keys
// are rejected.
func Parse(data []byte) (*Profile, error) {
	p := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Encode validates p and renders it as TOML.
func Encode(p *Profile) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return toml.Marshal(p)
}

// Load reads, parses, and validates a TOML profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Preset returns a built-in profile by name.
func Preset(name string) (*Profile, error) {
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid preset name %q", name)
	}
	data, err := presets.ReadFile("presets/" + name + ".toml")
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	return Parse(data)
}

// Resolve treats arg as a preset name when one exists, else as a file path.
// An empty arg yields Default.
func Resolve(arg string) (*Profile, error) {
	if arg == "" {
		return Default(), nil
	}
	if nameRe.MatchString(arg) {
		if _, err := presets.ReadFile("presets/" + arg + ".toml"); err == nil {
			return Preset(arg)
		}
	}
	return Load(arg)
}
