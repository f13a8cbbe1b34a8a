// Package config loads the appliance configuration file. Every field has a
// working default so a missing file boots the device with stock settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the tunable parts of the appliance.
type Config struct {
	VolumeGroup   string
	ThinPool      string
	ScriptsPath   string
	DisplayDevice string
	ButtonsDevice string
	USBVendorID   uint16
	USBProductID  uint16
}

const (
	defaultConfigPath    = "/etc/piso/config.toml"
	defaultVolumeGroup   = "piso-vg"
	defaultThinPool      = "thinpool"
	defaultScriptsPath   = "/opt/piso/scripts"
	defaultDisplayDevice = "/dev/fb1"
	defaultButtonsDevice = "/dev/input/event0"
	defaultUSBVendorID   = 0x0525
	defaultUSBProductID  = 0xa4a5
)

// scriptsPathEnv overrides the scripts directory regardless of the file,
// matching how the provisioning helper has always been located.
const scriptsPathEnv = "PISO_SCRIPTS_PATH"

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}

	cfg := Config{
		VolumeGroup:   defaultVolumeGroup,
		ThinPool:      defaultThinPool,
		ScriptsPath:   defaultScriptsPath,
		DisplayDevice: defaultDisplayDevice,
		ButtonsDevice: defaultButtonsDevice,
		USBVendorID:   defaultUSBVendorID,
		USBProductID:  defaultUSBProductID,
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		VolumeGroup   string `toml:"volume_group"`
		ThinPool      string `toml:"thin_pool"`
		ScriptsPath   string `toml:"scripts_path"`
		DisplayDevice string `toml:"display_device"`
		ButtonsDevice string `toml:"buttons_device"`
		USBVendorID   uint16 `toml:"usb_vendor_id"`
		USBProductID  uint16 `toml:"usb_product_id"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	setIfPresent(&cfg.VolumeGroup, raw.VolumeGroup)
	setIfPresent(&cfg.ThinPool, raw.ThinPool)
	setIfPresent(&cfg.ScriptsPath, raw.ScriptsPath)
	setIfPresent(&cfg.DisplayDevice, raw.DisplayDevice)
	setIfPresent(&cfg.ButtonsDevice, raw.ButtonsDevice)
	if raw.USBVendorID != 0 {
		cfg.USBVendorID = raw.USBVendorID
	}
	if raw.USBProductID != 0 {
		cfg.USBProductID = raw.USBProductID
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if scripts := strings.TrimSpace(os.Getenv(scriptsPathEnv)); scripts != "" {
		cfg.ScriptsPath = scripts
	}
}

func setIfPresent(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}
