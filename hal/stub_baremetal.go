//go:build tinygo && baremetal

package hal

import "machine"

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	l.uart.Write(b)
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

// stubFramebuffer reports a panel geometry with no backing memory; the
// monitor console and panic screen skip drawing when Buffer is nil.
type stubFramebuffer struct {
	w      int
	h      int
	format PixelFormat
}

func (f *stubFramebuffer) Width() int                   { return f.w }
func (f *stubFramebuffer) Height() int                  { return f.h }
func (f *stubFramebuffer) Format() PixelFormat          { return f.format }
func (f *stubFramebuffer) StrideBytes() int             { return f.w * 2 }
func (f *stubFramebuffer) Buffer() []byte               { return nil }
func (f *stubFramebuffer) ClearRGB(uint8, uint8, uint8) {}
func (f *stubFramebuffer) Present() error               { return ErrNotImplemented }
