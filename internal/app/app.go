// Package app is the composition root: it wires configuration, the volume
// manager, the USB gadget, the menu controller and one of the two front-ends
// (hardware panel + buttons, or the terminal simulator).
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alschwalm/piso/internal/buttons"
	"github.com/alschwalm/piso/internal/config"
	"github.com/alschwalm/piso/internal/display"
	"github.com/alschwalm/piso/internal/lvm"
	"github.com/alschwalm/piso/internal/menu"
	"github.com/alschwalm/piso/internal/prefs"
	"github.com/alschwalm/piso/internal/state"
	"github.com/alschwalm/piso/internal/ui"
	"github.com/alschwalm/piso/internal/usbgadget"
	"github.com/alschwalm/piso/internal/vdrive"
)

// Options configure the appliance runtime.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses /var/lib/piso/prefs.toml
	Version    string

	// Simulate runs the terminal front-end with a stubbed USB gadget
	// instead of the hardware panel and configfs.
	Simulate bool
}

// Run boots the appliance until the context is cancelled or a fatal error
// stops the control loop.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs := prefs.Load(opts.PrefsPath)
	log := slog.Default()

	client := lvm.NewClient(cfg.VolumeGroup, cfg.ThinPool, lvm.ExecRunner{})
	prov := vdrive.NewProvisioner(cfg.ScriptsPath, lvm.ExecRunner{})

	var gadget menu.Gadget
	if opts.Simulate {
		gadget = newSimGadget()
	} else {
		g := usbgadget.New(usbgadget.Config{
			VendorID:     cfg.USBVendorID,
			ProductID:    cfg.USBProductID,
			Manufacturer: "Adam Schwalm & James Tate",
			Product:      "pISO",
			Serial:       "0000000000000000",
		})
		if err := g.Init(); err != nil {
			return fmt.Errorf("init usb gadget: %w", err)
		}
		gadget = g
	}

	m := menu.New(client, prov, gadget, menu.Options{
		Context: ctx,
		Logger:  log,
		Version: opts.Version,
		Flipped: userPrefs.FlipDisplay,
		OnFlip: func(flipped bool) {
			if err := prefs.Save(opts.PrefsPath, prefs.Prefs{FlipDisplay: flipped}); err != nil {
				log.Warn("persist display flip failed", "error", err)
			}
		},
	})
	if err := m.RebuildDrivesFromVolumes(ctx); err != nil {
		return err
	}

	if opts.Simulate {
		return ui.Run(ui.Options{Context: ctx, Menu: m, Version: opts.Version})
	}
	return runDevice(ctx, cfg, m, log)
}

// runDevice drives the hardware front-end: buttons in, frames out through
// the flusher goroutine.
func runDevice(ctx context.Context, cfg config.Config, m *menu.PISO, log *slog.Logger) error {
	dev, err := display.Open(cfg.DisplayDevice)
	if err != nil {
		return err
	}
	defer dev.Close()

	store := &state.Store{}
	StartFlusher(ctx, store, dev, 0)

	reader, err := buttons.Open(cfg.ButtonsDevice, log)
	if err != nil {
		return err
	}

	publish := func() error {
		frame, err := m.RenderFrame(ctx)
		if err != nil {
			return err
		}
		if m.Flipped() {
			frame = frame.Mirror()
		}
		store.Publish(frame)
		return nil
	}
	if err := publish(); err != nil {
		return err
	}

	for ev := range reader.Events(ctx) {
		if err := m.HandleEvent(ev); err != nil {
			return err
		}
		if err := publish(); err != nil {
			return err
		}
	}
	return ctx.Err()
}
