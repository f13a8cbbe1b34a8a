// Package vdrive provisions the on-disk contents of a virtual drive: the
// partition table, a temporary loopback mapping of the new partition, and the
// filesystem. It shells out to parted, the mkfs family, and the
// environment-provided vdrive.sh helper script.
package vdrive

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alschwalm/piso/internal/lvm"
)

// Format selects the partition hint and filesystem for a new drive.
type Format int

// Supported drive formats. Universal (exFAT) is readable by every major
// host OS and is the default offered by the creation wizard.
const (
	FormatWindows Format = iota
	FormatLinux
	FormatMac
	FormatUniversal
)

// String returns the operator-facing name of the format.
func (f Format) String() string {
	switch f {
	case FormatWindows:
		return "Windows"
	case FormatLinux:
		return "Linux"
	case FormatMac:
		return "Mac"
	case FormatUniversal:
		return "Universal"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// partitionHint returns the filesystem hint parted records in the partition
// table. exFAT and NTFS share the ntfs type.
func (f Format) partitionHint() string {
	if f == FormatLinux {
		return "ext3"
	}
	return "ntfs"
}

// Provisioner turns a fresh logical volume into a formatted drive.
type Provisioner struct {
	scriptsDir string
	runner     lvm.Runner
}

// NewProvisioner builds a Provisioner. scriptsDir is the directory holding
// vdrive.sh (usually $PISO_SCRIPTS_PATH).
func NewProvisioner(scriptsDir string, runner lvm.Runner) *Provisioner {
	if runner == nil {
		runner = lvm.ExecRunner{}
	}
	return &Provisioner{scriptsDir: scriptsDir, runner: runner}
}

// Partition writes an msdos label with one primary partition spanning the
// whole device.
func (p *Provisioner) Partition(ctx context.Context, device string, format Format) error {
	_, err := p.runner.Run(ctx, "parted", "--script", device,
		"mklabel", "msdos",
		"mkpart", "primary", format.partitionHint(), "0%", "100%")
	if err != nil {
		return fmt.Errorf("partition %s: %w", device, err)
	}
	return nil
}

// MapPartition establishes a loopback mapping of the drive's partitions and
// returns the device path of the first one. The helper script prints one
// device path per line.
func (p *Provisioner) MapPartition(ctx context.Context, name string) (string, error) {
	script := filepath.Join(p.scriptsDir, "vdrive.sh")
	out, err := p.runner.Run(ctx, "sh", script, "mount-internal-basic", name)
	if err != nil {
		return "", fmt.Errorf("map partition for %s: %w", name, err)
	}
	first, _, _ := strings.Cut(out, "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return "", fmt.Errorf("map partition for %s: helper returned no device", name)
	}
	return first, nil
}

// UnmapPartition tears down the loopback mapping once formatting is done.
func (p *Provisioner) UnmapPartition(ctx context.Context, name string) error {
	script := filepath.Join(p.scriptsDir, "vdrive.sh")
	if _, err := p.runner.Run(ctx, "sh", script, "unmount-internal-basic", name); err != nil {
		return fmt.Errorf("unmap partition for %s: %w", name, err)
	}
	return nil
}

// MakeFilesystem formats the mapped partition for the chosen format.
func (p *Provisioner) MakeFilesystem(ctx context.Context, partition string, format Format) error {
	var name string
	var args []string
	switch format {
	case FormatWindows:
		name, args = "mkfs.ntfs", []string{"-f", partition}
	case FormatLinux:
		name, args = "mkfs.ext3", []string{partition}
	case FormatMac, FormatUniversal:
		name, args = "mkfs.exfat", []string{partition}
	default:
		return fmt.Errorf("unknown drive format %v", format)
	}
	if _, err := p.runner.Run(ctx, name, args...); err != nil {
		return fmt.Errorf("format %s: %w", partition, err)
	}
	return nil
}
