// Package lvm wraps the lvm2 command-line tools that manage the thin pool
// backing every virtual drive. All queries go through the JSON report format
// so the output is stable across lvm versions.
package lvm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes an external command and returns its stdout. It exists so
// tests can script tool output without a real volume group.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Ensure ExecRunner implements Runner at compile time.
var _ Runner = ExecRunner{}

// Run executes the command and returns its stdout. Stderr is folded into the
// returned error on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.String(), nil
}

// Volume is one logical-volume record from an lvs report.
type Volume struct {
	Name        string `json:"lv_name"`
	Attr        string `json:"lv_attr"`
	DataPercent string `json:"data_percent"`
	Size        string `json:"lv_size"`
}

// IsVirtual reports whether the volume is a (V)irtual thin volume, i.e. one
// of our drives rather than the pool itself or lvm metadata.
func (v Volume) IsVirtual() bool {
	return v.Attr != "" && v.Attr[0] == 'V'
}

// DataPercentValue parses the report's data_percent field.
func (v Volume) DataPercentValue() (float64, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(v.DataPercent), 64)
	if err != nil {
		return 0, fmt.Errorf("parse data_percent %q: %w", v.DataPercent, err)
	}
	return p, nil
}

// SizeBytes parses the report's lv_size field. The report is requested with
// --units B, so the value carries a trailing "B".
func (v Volume) SizeBytes() (uint64, error) {
	s := strings.TrimSuffix(strings.TrimSpace(v.Size), "B")
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse lv_size %q: %w", v.Size, err)
	}
	return n, nil
}

// Client issues lvm commands against one volume group / thin pool pair.
type Client struct {
	vg     string
	pool   string
	runner Runner
}

// NewClient builds a Client for the given volume group and thin pool.
func NewClient(vg, pool string, runner Runner) *Client {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Client{vg: vg, pool: pool, runner: runner}
}

// VolumeGroup returns the volume group name the client operates on.
func (c *Client) VolumeGroup() string { return c.vg }

// Pool returns the thin pool name the client operates on.
func (c *Client) Pool() string { return c.pool }

// DevicePath returns the block-device path of a logical volume.
func (c *Client) DevicePath(name string) string {
	return "/dev/" + c.vg + "/" + name
}

// lvsReport mirrors the relevant slice of `lvs --reportformat json` output.
type lvsReport struct {
	Report []struct {
		LV []Volume `json:"lv"`
	} `json:"report"`
}

// ListVolumes returns one record per logical volume in the volume group.
func (c *Client) ListVolumes(ctx context.Context) ([]Volume, error) {
	if c == nil {
		return nil, fmt.Errorf("lvm client is nil")
	}
	out, err := c.runner.Run(ctx, "lvs",
		"--reportformat", "json",
		"--units", "B",
		"-o", "lv_name,lv_attr,data_percent,lv_size",
		c.vg)
	if err != nil {
		return nil, fmt.Errorf("lvs report: %w", err)
	}
	var report lvsReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		return nil, fmt.Errorf("decode lvs report: %w", err)
	}
	var volumes []Volume
	for _, r := range report.Report {
		volumes = append(volumes, r.LV...)
	}
	return volumes, nil
}

// CreateThinVolume provisions a thin volume of size bytes from the pool.
func (c *Client) CreateThinVolume(ctx context.Context, name string, size uint64) error {
	if c == nil {
		return fmt.Errorf("lvm client is nil")
	}
	_, err := c.runner.Run(ctx, "lvcreate",
		"-V", strconv.FormatUint(size, 10)+"B",
		"-T", c.vg+"/"+c.pool,
		"-n", name)
	if err != nil {
		return fmt.Errorf("lvcreate %s: %w", name, err)
	}
	return nil
}

// RemoveVolume destroys a logical volume, returning its extents to the pool.
func (c *Client) RemoveVolume(ctx context.Context, name string) error {
	if c == nil {
		return fmt.Errorf("lvm client is nil")
	}
	if _, err := c.runner.Run(ctx, "lvremove", c.vg+"/"+name, "-y"); err != nil {
		return fmt.Errorf("lvremove %s: %w", name, err)
	}
	return nil
}
