package monitor

import (
	"sparkrt/hal"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// console mirrors monitor lines on the framebuffer.
type console struct {
	fb hal.Framebuffer
	d  *fbDisplay
	t  *tinyterm.Terminal
}

func newConsole(disp hal.Display) *console {
	if disp == nil {
		return nil
	}
	fb := disp.Framebuffer()
	if fb == nil || fb.Buffer() == nil {
		return nil
	}
	c := &console{fb: fb, d: &fbDisplay{fb: fb}}
	c.reset()
	return c
}

func (c *console) reset() {
	c.t = tinyterm.NewTerminal(c.d)
	c.t.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        10,
		FontOffset:        6,
		UseSoftwareScroll: true,
	})
	c.fb.ClearRGB(0, 0, 0)
}

func (c *console) writeLine(s string) {
	_, _ = c.t.Write([]byte(s))
	_, _ = c.t.Write([]byte("\r\n"))
}

func (c *console) flush() {
	c.t.Display()
}
