// Package prefs persists operator preferences across reboots.
// Preferences are stored in /var/lib/piso/prefs.toml.
package prefs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds the operator-tunable state the options panel exposes.
type Prefs struct {
	// FlipDisplay rotates the panel output 180 degrees for upside-down
	// mounting.
	FlipDisplay bool `toml:"flip_display"`
}

const defaultPrefsPath = "/var/lib/piso/prefs.toml"

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path. Every failure degrades to the
// zero preferences: a corrupt or missing file must never keep the appliance
// from booting.
func Load(path string) Prefs {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}

	var prefs Prefs

	file, err := os.Open(path)
	if err != nil {
		return prefs
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{}
	}
	return prefs
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(path, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}
