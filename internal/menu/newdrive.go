package menu

import (
	"github.com/dustin/go-humanize"

	"github.com/alschwalm/piso/internal/bitmap"
	"github.com/alschwalm/piso/internal/vdrive"
)

// wizard steps.
const (
	stepSize = iota
	stepFormat
)

// driveSizes is the capacity ladder offered by the wizard.
var driveSizes = []uint64{
	1 << 30,
	2 << 30,
	4 << 30,
	8 << 30,
	16 << 30,
	32 << 30,
}

// driveFormats lists the selectable formats, Universal first since it is
// readable everywhere.
var driveFormats = []vdrive.Format{
	vdrive.FormatUniversal,
	vdrive.FormatWindows,
	vdrive.FormatMac,
	vdrive.FormatLinux,
}

// NewDriveItem is the fixed "New Drive" control. Selecting it starts a
// fullscreen wizard: pick a size, pick a format, provision.
type NewDriveItem struct {
	owner *PISO

	focused   bool
	active    bool
	step      int
	sizeSel   int
	formatSel int
}

func newNewDriveItem(owner *PISO) *NewDriveItem {
	return &NewDriveItem{owner: owner}
}

// OnSelect advances the wizard one step, provisioning the drive on the final
// confirmation. Inactive, it starts the wizard.
func (n *NewDriveItem) OnSelect() bool {
	if !n.active {
		n.active = true
		n.step = stepSize
		n.sizeSel = 0
		n.formatSel = 0
		return true
	}
	if n.step == stepSize {
		n.step = stepFormat
		return true
	}
	size := driveSizes[n.sizeSel]
	format := driveFormats[n.formatSel]
	n.active = false
	if _, err := n.owner.AddDrive(n.owner.ctx, size, format); err != nil {
		n.owner.fail(err)
	}
	return true
}

// OnNext moves down the current step's choices. The wizard is captive: it
// consumes navigation even at the ends so the fullscreen takeover cannot be
// scrolled out of.
func (n *NewDriveItem) OnNext() bool {
	if !n.active {
		return false
	}
	switch n.step {
	case stepSize:
		if n.sizeSel < len(driveSizes)-1 {
			n.sizeSel++
		}
	case stepFormat:
		if n.formatSel < len(driveFormats)-1 {
			n.formatSel++
		}
	}
	return true
}

// OnPrev moves up the current step's choices.
func (n *NewDriveItem) OnPrev() bool {
	if !n.active {
		return false
	}
	switch n.step {
	case stepSize:
		if n.sizeSel > 0 {
			n.sizeSel--
		}
	case stepFormat:
		if n.formatSel > 0 {
			n.formatSel--
		}
	}
	return true
}

// OnFocus marks the control as the current selection.
func (n *NewDriveItem) OnFocus() {
	n.focused = true
}

// OnLoseFocus abandons a wizard in progress.
func (n *NewDriveItem) OnLoseFocus() {
	n.focused = false
	n.active = false
	n.step = stepSize
}

// Render draws the menu line, or the fullscreen wizard step while active.
func (n *NewDriveItem) Render() (bitmap.Bitmap, RenderMode) {
	if !n.active {
		return renderLine("New Drive", n.focused), RenderNormal
	}

	var lines []bitmap.Bitmap
	switch n.step {
	case stepSize:
		lines = append(lines, renderLine("Drive size:", false))
		for i, size := range driveSizes {
			lines = append(lines, indent(renderLine(humanize.IBytes(size), i == n.sizeSel), subIndent))
		}
	case stepFormat:
		lines = append(lines, renderLine("Drive format:", false))
		for i, format := range driveFormats {
			lines = append(lines, indent(renderLine(format.String(), i == n.formatSel), subIndent))
		}
	}
	return stack(lines...), RenderFullscreen
}
