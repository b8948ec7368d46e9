//go:build !tinygo

package hal

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func drain(ch <-chan uint64) []uint64 {
	var out []uint64
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}

func TestHostTimeStepsByElapsedTicks(t *testing.T) {
	ht := newHostTime()
	base := time.Unix(100, 0)

	ht.stepAt(base, 1)
	if got := drain(ht.Ticks()); len(got) != 1 || got[0] != 1 {
		t.Fatalf("first step ticks = %v, want [1]", got)
	}

	ht.stepAt(base.Add(HostTickDuration/2), 1)
	if got := drain(ht.Ticks()); len(got) != 0 {
		t.Fatalf("half-tick step published %v", got)
	}

	ht.stepAt(base.Add(3*HostTickDuration), 1)
	got := drain(ht.Ticks())
	if len(got) != 3 || got[2] != 4 {
		t.Fatalf("ticks = %v, want [2 3 4]", got)
	}
}

func TestHostFramebufferClear(t *testing.T) {
	fb := newHostFramebuffer(4, 2)
	fb.ClearRGB(255, 0, 0)
	buf := fb.Buffer()
	if len(buf) != fb.StrideBytes()*fb.Height() {
		t.Fatalf("buffer len = %d", len(buf))
	}
	want := RGB565(255, 0, 0)
	for i := 0; i < len(buf); i += 2 {
		if got := uint16(buf[i]) | uint16(buf[i+1])<<8; got != want {
			t.Fatalf("pixel %d = %#04x, want %#04x", i/2, got, want)
		}
	}

	rgba := make([]byte, 4*4*2)
	expandRGB565(rgba, buf)
	if rgba[0] != 255 || rgba[1] != 0 || rgba[2] != 0 || rgba[3] != 255 {
		t.Fatalf("expanded pixel = %v", rgba[:4])
	}
}

func TestHostLoggerAndLED(t *testing.T) {
	var out bytes.Buffer
	h := newHostHAL(&out)
	h.Logger().WriteLineString("hello")
	h.Logger().WriteLineBytes([]byte("world"))
	h.LED().High()
	h.LED().High()
	h.LED().Low()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{"hello", "world", "led: HIGH", "led: LOW"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestMutexIRQExcludes(t *testing.T) {
	irq := newHostHAL(&bytes.Buffer{}).IRQ()
	s := irq.Disable()
	done := make(chan struct{})
	go func() {
		st := irq.Disable()
		irq.Restore(st)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("second Disable did not wait")
	case <-time.After(10 * time.Millisecond):
	}
	irq.Restore(s)
	<-done
}
