// Package usbgadget drives the Linux configfs USB gadget tree. The appliance
// presents one composite gadget with a mass-storage function per exposed
// drive; attaching and detaching a drive is adding or removing a LUN and
// re-binding the UDC.
package usbgadget

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Config holds the one-time gadget identity.
type Config struct {
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	Serial       string

	// ConfigFSRoot is the usb_gadget configfs directory, normally
	// /sys/kernel/config/usb_gadget. Overridable for tests.
	ConfigFSRoot string

	// UDC is the controller name to bind. Empty picks the first entry of
	// UDCClassDir.
	UDC string

	// UDCClassDir is where available controllers are listed, normally
	// /sys/class/udc.
	UDCClassDir string
}

const (
	gadgetName    = "g1"
	englishUS     = "0x409"
	configName    = "c.1"
	configMaxPow  = "250"
	configLabel   = "Config 1"
	bcdUSB        = "0x0200" // USB2
	bcdDevice     = "0x0100" // v1.0.0
	maxPacketSize = "64"
)

// Gadget manages one configfs gadget instance.
type Gadget struct {
	cfg  Config
	dir  string
	luns map[string]string // drive name -> function name
}

// New builds a Gadget rooted at cfg.ConfigFSRoot. Init must be called before
// any function is added.
func New(cfg Config) *Gadget {
	if cfg.ConfigFSRoot == "" {
		cfg.ConfigFSRoot = "/sys/kernel/config/usb_gadget"
	}
	if cfg.UDCClassDir == "" {
		cfg.UDCClassDir = "/sys/class/udc"
	}
	return &Gadget{
		cfg:  cfg,
		dir:  filepath.Join(cfg.ConfigFSRoot, gadgetName),
		luns: make(map[string]string),
	}
}

// Init creates the gadget skeleton: device descriptors, English string
// descriptors and a single configuration.
func (g *Gadget) Init() error {
	strDir := filepath.Join(g.dir, "strings", englishUS)
	cfgDir := filepath.Join(g.dir, "configs", configName)
	cfgStrDir := filepath.Join(cfgDir, "strings", englishUS)
	for _, dir := range []string{g.dir, strDir, cfgDir, cfgStrDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create gadget dir: %w", err)
		}
	}

	attrs := map[string]string{
		"bcdUSB":          bcdUSB,
		"bcdDevice":       bcdDevice,
		"bDeviceClass":    "0x00", // per-interface
		"bDeviceSubClass": "0x00",
		"bDeviceProtocol": "0x00",
		"bMaxPacketSize0": maxPacketSize,
		"idVendor":        fmt.Sprintf("0x%04x", g.cfg.VendorID),
		"idProduct":       fmt.Sprintf("0x%04x", g.cfg.ProductID),
	}
	for name, value := range attrs {
		if err := g.write(filepath.Join(g.dir, name), value); err != nil {
			return err
		}
	}

	strs := map[string]string{
		filepath.Join(strDir, "serialnumber"):     g.cfg.Serial,
		filepath.Join(strDir, "manufacturer"):     g.cfg.Manufacturer,
		filepath.Join(strDir, "product"):          g.cfg.Product,
		filepath.Join(cfgStrDir, "configuration"): configLabel,
		filepath.Join(cfgDir, "MaxPower"):         configMaxPow,
	}
	for path, value := range strs {
		if err := g.write(path, value); err != nil {
			return err
		}
	}
	return nil
}

// AddDrive exposes a block device as a mass-storage LUN. The gadget must be
// unbound while the function set changes; callers re-bind afterwards.
func (g *Gadget) AddDrive(name, backingDevice string) error {
	function := "mass_storage." + name
	lunDir := filepath.Join(g.dir, "functions", function, "lun.0")
	if err := os.MkdirAll(lunDir, 0o755); err != nil {
		return fmt.Errorf("create mass-storage function for %s: %w", name, err)
	}
	if err := g.write(filepath.Join(lunDir, "file"), backingDevice); err != nil {
		return err
	}
	if err := g.write(filepath.Join(lunDir, "removable"), "1"); err != nil {
		return err
	}
	link := filepath.Join(g.dir, "configs", configName, function)
	if err := os.Symlink(filepath.Join(g.dir, "functions", function), link); err != nil {
		return fmt.Errorf("link function for %s: %w", name, err)
	}
	g.luns[name] = function
	return nil
}

// RemoveDrive detaches a previously added LUN. Unknown names are a no-op.
func (g *Gadget) RemoveDrive(name string) error {
	function, ok := g.luns[name]
	if !ok {
		return nil
	}
	link := filepath.Join(g.dir, "configs", configName, function)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unlink function for %s: %w", name, err)
	}
	if err := os.RemoveAll(filepath.Join(g.dir, "functions", function)); err != nil {
		return fmt.Errorf("remove function for %s: %w", name, err)
	}
	delete(g.luns, name)
	return nil
}

// Exposed reports whether a drive currently has a LUN.
func (g *Gadget) Exposed(name string) bool {
	_, ok := g.luns[name]
	return ok
}

// Bind attaches the gadget to a UDC, making it visible to the USB host.
func (g *Gadget) Bind() error {
	udc := g.cfg.UDC
	if udc == "" {
		detected, err := g.detectUDC()
		if err != nil {
			return err
		}
		udc = detected
	}
	return g.write(filepath.Join(g.dir, "UDC"), udc)
}

// Unbind detaches the gadget from its UDC. Required before the function set
// can change.
func (g *Gadget) Unbind() error {
	return g.write(filepath.Join(g.dir, "UDC"), "")
}

func (g *Gadget) detectUDC() (string, error) {
	entries, err := os.ReadDir(g.cfg.UDCClassDir)
	if err != nil {
		return "", fmt.Errorf("list UDCs: %w", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no UDC available under %s", g.cfg.UDCClassDir)
	}
	sort.Strings(names)
	return names[0], nil
}

func (g *Gadget) write(path, value string) error {
	if err := os.WriteFile(path, []byte(value+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", strings.TrimPrefix(path, g.cfg.ConfigFSRoot+"/"), err)
	}
	return nil
}
