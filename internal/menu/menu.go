// Package menu implements the navigable UI model of the appliance: the list
// item contract, the virtual drive items, the new-drive wizard, the options
// panel and the root controller that composites every item into one frame.
package menu

import (
	"errors"
	"fmt"

	"github.com/alschwalm/piso/internal/bitmap"
	"github.com/alschwalm/piso/internal/font"
)

// RenderMode tells a parent how to treat a child's bitmap.
type RenderMode int

const (
	// RenderNormal bitmaps are composited inline with their siblings.
	RenderNormal RenderMode = iota
	// RenderFullscreen bitmaps replace the whole frame. One fullscreen
	// child wins outright; no partial compositing happens.
	RenderFullscreen
)

// Event is one physical input.
type Event int

// The appliance has three buttons.
const (
	EventSelect Event = iota
	EventNext
	EventPrev
)

// ListItem is a navigable, focusable, renderable UI element. The input
// handlers report whether the event was consumed; an unconsumed Next/Prev
// tells the parent the item is exhausted and focus should move to a sibling.
type ListItem interface {
	OnSelect() bool
	OnNext() bool
	OnPrev() bool

	// OnFocus and OnLoseFocus fire exactly once per focus transition.
	// OnLoseFocus also discards any transient per-item state such as an
	// open sub-menu.
	OnFocus()
	OnLoseFocus()

	Render() (bitmap.Bitmap, RenderMode)
}

// Layout constants for the compositing pipeline.
const (
	// menuIndent is the gutter every item bitmap is shifted right by.
	menuIndent = 4
	// sidebarGap separates the sidebar border row from its text.
	sidebarGap = 2
	// subIndent shifts sub-menu entries under their parent line.
	subIndent = 8
)

// renderLine rasterizes one menu line, prefixing the focus arrow when the
// line is the current selection.
func renderLine(label string, focused bool) bitmap.Bitmap {
	prefix := "  "
	if focused {
		prefix = "> "
	}
	return font.Render(prefix + label)
}

// stack appends bitmaps vertically: the result's height is the sum of the
// line heights and its width the maximum line width.
func stack(lines ...bitmap.Bitmap) bitmap.Bitmap {
	var out bitmap.Bitmap
	for _, line := range lines {
		oldHeight := out.Height()
		out.ExpandHeight(line.Height())
		if line.Width() > out.Width() {
			out.ExpandWidth(line.Width() - out.Width())
		}
		out.Blit(line, bitmap.Point{Y: oldHeight})
	}
	return out
}

// indent returns a copy of b shifted right by n columns.
func indent(b bitmap.Bitmap, n int) bitmap.Bitmap {
	out := bitmap.New(b.Width()+n, b.Height())
	out.Blit(b, bitmap.Point{X: n})
	return out
}

// FatalError marks an unrecoverable condition: broken external state or a
// failed storage tool invocation. The top-level loop logs it and terminates;
// nothing else may swallow it.
type FatalError struct {
	Err error
}

// Error returns the underlying message.
func (e *FatalError) Error() string { return e.Err.Error() }

// Unwrap exposes the wrapped error.
func (e *FatalError) Unwrap() error { return e.Err }

func fatalf(format string, args ...any) *FatalError {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}
