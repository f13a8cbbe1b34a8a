package menu

import (
	"github.com/alschwalm/piso/internal/bitmap"
)

// Gadget is the slice of the USB gadget the menu needs to expose and hide
// drives. Implemented by usbgadget.Gadget; faked in tests.
type Gadget interface {
	AddDrive(name, backingDevice string) error
	RemoveDrive(name string) error
	Exposed(name string) bool
	Bind() error
	Unbind() error
}

// drive sub-menu entries, in navigation order.
const (
	driveEntryMount = iota
	driveEntryDelete
	driveEntryCount
)

// confirm screen choices.
const (
	confirmCancel = iota
	confirmDelete
	confirmCount
)

// VirtualDrive is one provisioned storage volume. It renders as a single
// menu line; selecting it opens a sub-menu with a mount toggle and a delete
// entry guarded by a fullscreen confirmation.
type VirtualDrive struct {
	owner *PISO
	name  string

	focused    bool
	expanded   bool
	subSel     int
	confirming bool
	confirmSel int
}

func newVirtualDrive(owner *PISO, name string) *VirtualDrive {
	return &VirtualDrive{owner: owner, name: name}
}

// Name returns the drive's unique volume name.
func (d *VirtualDrive) Name() string { return d.name }

// Mounted reports whether the drive is currently exposed over USB.
func (d *VirtualDrive) Mounted() bool {
	return d.owner.gadget.Exposed(d.name)
}

// OnSelect opens the sub-menu, activates the highlighted sub-entry, or acts
// on the delete confirmation.
func (d *VirtualDrive) OnSelect() bool {
	if d.confirming {
		if d.confirmSel == confirmDelete {
			d.confirming = false
			if err := d.owner.RemoveDrive(d.owner.ctx, d); err != nil {
				d.owner.fail(err)
			}
			return true
		}
		d.confirming = false
		return true
	}
	if !d.expanded {
		d.expanded = true
		d.subSel = driveEntryMount
		return true
	}
	switch d.subSel {
	case driveEntryMount:
		if err := d.toggleMount(); err != nil {
			d.owner.fail(err)
		}
	case driveEntryDelete:
		d.confirming = true
		d.confirmSel = confirmCancel
	}
	return true
}

// OnNext moves within the sub-menu or confirmation; collapsed drives are
// exhausted immediately so the parent advances to the next sibling.
func (d *VirtualDrive) OnNext() bool {
	if d.confirming {
		if d.confirmSel < confirmCount-1 {
			d.confirmSel++
		}
		return true
	}
	if d.expanded && d.subSel < driveEntryCount-1 {
		d.subSel++
		return true
	}
	return false
}

// OnPrev is the mirror of OnNext.
func (d *VirtualDrive) OnPrev() bool {
	if d.confirming {
		if d.confirmSel > 0 {
			d.confirmSel--
		}
		return true
	}
	if d.expanded && d.subSel > 0 {
		d.subSel--
		return true
	}
	return false
}

// OnFocus marks the drive as the current selection.
func (d *VirtualDrive) OnFocus() {
	d.focused = true
}

// OnLoseFocus clears the highlight and collapses any transient sub-state so
// a later re-focus starts fresh.
func (d *VirtualDrive) OnLoseFocus() {
	d.focused = false
	d.expanded = false
	d.confirming = false
	d.subSel = 0
	d.confirmSel = 0
}

// Render draws the drive line, its open sub-menu, or the fullscreen delete
// confirmation.
func (d *VirtualDrive) Render() (bitmap.Bitmap, RenderMode) {
	if d.confirming {
		return d.renderConfirm(), RenderFullscreen
	}

	label := d.name
	if d.Mounted() {
		label += " *"
	}
	line := renderLine(label, d.focused && !d.expanded)
	if !d.expanded {
		return line, RenderNormal
	}

	mountLabel := "Mount"
	if d.Mounted() {
		mountLabel = "Unmount"
	}
	entries := []bitmap.Bitmap{
		indent(renderLine(mountLabel, d.subSel == driveEntryMount), subIndent),
		indent(renderLine("Delete", d.subSel == driveEntryDelete), subIndent),
	}
	return stack(append([]bitmap.Bitmap{line}, entries...)...), RenderNormal
}

func (d *VirtualDrive) renderConfirm() bitmap.Bitmap {
	return stack(
		renderLine("Delete "+d.name+"?", false),
		indent(renderLine("Cancel", d.confirmSel == confirmCancel), subIndent),
		indent(renderLine("Delete", d.confirmSel == confirmDelete), subIndent),
	)
}

// toggleMount flips the drive's USB exposure. The gadget must be unbound
// from the UDC while its function set changes.
func (d *VirtualDrive) toggleMount() error {
	if d.Mounted() {
		return d.owner.unmountExternal(d.name)
	}
	return d.owner.mountExternal(d.name)
}
