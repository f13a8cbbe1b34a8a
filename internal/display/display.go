// Package display is the boundary to the physical monochrome panel: its
// fixed dimensions and a writer that flushes packed frames to the device
// node exported by the panel driver.
package display

import (
	"fmt"
	"os"

	"github.com/alschwalm/piso/internal/bitmap"
)

// Physical panel dimensions in pixels.
const (
	Width  = 128
	Height = 64
)

// Device writes frames to the panel's device node.
type Device struct {
	f *os.File
}

// Open prepares the device node for writing.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open display %s: %w", path, err)
	}
	return &Device{f: f}, nil
}

// Flush packs the frame to the 1-bpp wire layout and writes it at the start
// of the device. Frames smaller than the panel are accepted; the driver
// leaves the remainder untouched.
func (d *Device) Flush(frame bitmap.Bitmap) error {
	if _, err := d.f.WriteAt(frame.Pack(), 0); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}
	return nil
}

// Close releases the device node.
func (d *Device) Close() error {
	return d.f.Close()
}
