package menu

import (
	"github.com/alschwalm/piso/internal/bitmap"
)

// options sub-menu entries.
const (
	optionEntryFlip = iota
	optionEntryVersion
	optionEntryCount
)

// OptionsItem is the fixed options panel: a display-flip toggle and the
// firmware version line.
type OptionsItem struct {
	owner *PISO

	focused  bool
	expanded bool
	subSel   int
}

func newOptionsItem(owner *PISO) *OptionsItem {
	return &OptionsItem{owner: owner}
}

// OnSelect expands the panel or activates the highlighted entry.
func (o *OptionsItem) OnSelect() bool {
	if !o.expanded {
		o.expanded = true
		o.subSel = optionEntryFlip
		return true
	}
	if o.subSel == optionEntryFlip {
		o.owner.toggleFlip()
	}
	return true
}

// OnNext moves within the expanded panel, reporting exhaustion otherwise.
func (o *OptionsItem) OnNext() bool {
	if o.expanded && o.subSel < optionEntryCount-1 {
		o.subSel++
		return true
	}
	return false
}

// OnPrev is the mirror of OnNext.
func (o *OptionsItem) OnPrev() bool {
	if o.expanded && o.subSel > 0 {
		o.subSel--
		return true
	}
	return false
}

// OnFocus marks the panel as the current selection.
func (o *OptionsItem) OnFocus() {
	o.focused = true
}

// OnLoseFocus collapses the panel.
func (o *OptionsItem) OnLoseFocus() {
	o.focused = false
	o.expanded = false
	o.subSel = 0
}

// Render draws the panel line plus its entries when expanded.
func (o *OptionsItem) Render() (bitmap.Bitmap, RenderMode) {
	line := renderLine("Options", o.focused && !o.expanded)
	if !o.expanded {
		return line, RenderNormal
	}

	flipLabel := "Flip Display: Off"
	if o.owner.flipped {
		flipLabel = "Flip Display: On"
	}
	return stack(
		line,
		indent(renderLine(flipLabel, o.subSel == optionEntryFlip), subIndent),
		indent(renderLine("Version "+o.owner.version, o.subSel == optionEntryVersion), subIndent),
	), RenderNormal
}
