package menu

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/alschwalm/piso/internal/bitmap"
	"github.com/alschwalm/piso/internal/display"
	"github.com/alschwalm/piso/internal/font"
	"github.com/alschwalm/piso/internal/lvm"
	"github.com/alschwalm/piso/internal/vdrive"
)

// Options configure the root controller.
type Options struct {
	// Context is used for the lvm and tool invocations triggered by input
	// handlers, which have no context parameter of their own.
	Context context.Context
	Logger  *slog.Logger
	Version string

	// Flipped is the persisted display orientation; OnFlip fires when the
	// operator toggles it.
	Flipped bool
	OnFlip  func(flipped bool)
}

// PISO is the root controller: it owns the backing drive collection, the two
// fixed controls, the navigable list and the current selection, and it
// composites every item's bitmap into one frame.
//
// PISO itself satisfies ListItem, so the whole menu could in turn be nested
// inside another list.
type PISO struct {
	ctx    context.Context
	log    *slog.Logger
	lvm    *lvm.Client
	prov   *vdrive.Provisioner
	gadget Gadget

	version string
	flipped bool
	onFlip  func(bool)

	// drives is the backing collection. The navigable list below holds
	// the same pointers and is rebuilt wholesale on every structural
	// change; handles into it are invalid after any mutation.
	drives   []*VirtualDrive
	newdrive *NewDriveItem
	options  *OptionsItem

	listItems []ListItem
	sel       int
	hasSel    bool

	// pending carries a fatal error raised inside an input handler until
	// HandleEvent returns it to the control loop.
	pending error
}

// New builds the controller. Call RebuildDrivesFromVolumes before first use
// so the list reflects the volume manager's state.
func New(client *lvm.Client, prov *vdrive.Provisioner, gadget Gadget, opts Options) *PISO {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &PISO{
		ctx:     opts.Context,
		log:     opts.Logger,
		lvm:     client,
		prov:    prov,
		gadget:  gadget,
		version: opts.Version,
		flipped: opts.Flipped,
		onFlip:  opts.OnFlip,
	}
	m.newdrive = newNewDriveItem(m)
	m.options = newOptionsItem(m)
	m.updateListItems()
	return m
}

// Drives returns the current backing collection. The slice is a copy; the
// drives themselves are shared and valid only until the next mutation.
func (m *PISO) Drives() []*VirtualDrive {
	out := make([]*VirtualDrive, len(m.drives))
	copy(out, m.drives)
	return out
}

// Flipped reports the current display orientation.
func (m *PISO) Flipped() bool { return m.flipped }

// RebuildDrivesFromVolumes re-derives the drive collection from the volume
// manager's report, keeping only (V)irtual thin volumes so pool metadata is
// never adopted as a drive.
func (m *PISO) RebuildDrivesFromVolumes(ctx context.Context) error {
	m.log.Info("rebuilding drives from lvm volumes")
	volumes, err := m.lvm.ListVolumes(ctx)
	if err != nil {
		return fatalf("rebuild drives: %w", err)
	}
	m.drives = nil
	for _, v := range volumes {
		if !v.IsVirtual() {
			continue
		}
		m.log.Info("found volume", "name", v.Name)
		m.drives = append(m.drives, newVirtualDrive(m, v.Name))
	}
	m.updateListItems()
	return nil
}

// updateListItems rebuilds the navigable list from the backing collection:
// drives first, then the NewDrive and Options controls. Every item loses
// focus (the list is freshly built, so this is safe even after structural
// churn) and the cursor resets to the first element.
func (m *PISO) updateListItems() {
	m.log.Debug("updating menu items")
	m.listItems = m.listItems[:0]
	for _, d := range m.drives {
		m.listItems = append(m.listItems, d)
	}
	m.listItems = append(m.listItems, m.newdrive, m.options)
	for _, item := range m.listItems {
		item.OnLoseFocus()
	}
	m.sel = 0
	m.hasSel = len(m.listItems) > 0
	if m.hasSel {
		m.listItems[m.sel].OnFocus()
	}
}

// AddDrive provisions a new thin volume, partitions and formats it, exposes
// it over USB and rebuilds the list. The returned drive is valid only until
// the next structural rebuild.
func (m *PISO) AddDrive(ctx context.Context, size uint64, format vdrive.Format) (*VirtualDrive, error) {
	name := "Drive" + strconv.Itoa(len(m.drives)+1)
	m.log.Info("adding drive", "name", name, "size", size, "format", format.String())

	if err := m.lvm.CreateThinVolume(ctx, name, size); err != nil {
		return nil, fatalf("add drive %s: %w", name, err)
	}
	d := newVirtualDrive(m, name)
	m.drives = append(m.drives, d)

	device := m.lvm.DevicePath(name)
	if err := m.prov.Partition(ctx, device, format); err != nil {
		return nil, fatalf("add drive %s: %w", name, err)
	}
	partition, err := m.prov.MapPartition(ctx, name)
	if err != nil {
		return nil, fatalf("add drive %s: %w", name, err)
	}
	if err := m.prov.MakeFilesystem(ctx, partition, format); err != nil {
		return nil, fatalf("add drive %s: %w", name, err)
	}
	if err := m.prov.UnmapPartition(ctx, name); err != nil {
		return nil, fatalf("add drive %s: %w", name, err)
	}
	if err := m.mountExternal(name); err != nil {
		return nil, err
	}

	m.updateListItems()
	return d, nil
}

// RemoveDrive deallocates the drive's volume and drops it from the
// collection. A drive that is not present is logged and ignored.
func (m *PISO) RemoveDrive(ctx context.Context, drive *VirtualDrive) error {
	m.log.Info("removing drive", "name", drive.Name())
	idx := -1
	for i, d := range m.drives {
		if d.Name() == drive.Name() {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.log.Warn("drive not found", "name", drive.Name())
		return nil
	}

	if m.gadget.Exposed(drive.Name()) {
		if err := m.unmountExternal(drive.Name()); err != nil {
			return err
		}
	}
	if err := m.lvm.RemoveVolume(ctx, drive.Name()); err != nil {
		return fatalf("remove drive %s: %w", drive.Name(), err)
	}
	m.drives = append(m.drives[:idx], m.drives[idx+1:]...)
	m.updateListItems()
	return nil
}

// PercentUsed reports the thin pool's fill percentage. The pool record going
// missing means the external state is broken, which is unrecoverable.
func (m *PISO) PercentUsed(ctx context.Context) (float64, error) {
	volumes, err := m.lvm.ListVolumes(ctx)
	if err != nil {
		return 0, fatalf("query pool usage: %w", err)
	}
	for _, v := range volumes {
		if v.Name == m.lvm.Pool() {
			pct, err := v.DataPercentValue()
			if err != nil {
				return 0, fatalf("query pool usage: %w", err)
			}
			return pct, nil
		}
	}
	return 0, fatalf("unable to locate thinpool %s", m.lvm.Pool())
}

// SizeBytes reports the thin pool's total capacity in bytes.
func (m *PISO) SizeBytes(ctx context.Context) (uint64, error) {
	volumes, err := m.lvm.ListVolumes(ctx)
	if err != nil {
		return 0, fatalf("query pool size: %w", err)
	}
	for _, v := range volumes {
		if v.Name == m.lvm.Pool() {
			size, err := v.SizeBytes()
			if err != nil {
				return 0, fatalf("query pool size: %w", err)
			}
			return size, nil
		}
	}
	return 0, fatalf("unable to locate thinpool %s", m.lvm.Pool())
}

// HandleEvent feeds one input event through the focus chain and surfaces any
// fatal error an item action raised.
func (m *PISO) HandleEvent(ev Event) error {
	switch ev {
	case EventSelect:
		m.OnSelect()
	case EventNext:
		m.OnNext()
	case EventPrev:
		m.OnPrev()
	}
	err := m.pending
	m.pending = nil
	return err
}

// OnSelect forwards activation to the focused item.
func (m *PISO) OnSelect() bool {
	if !m.hasSel {
		return false
	}
	return m.listItems[m.sel].OnSelect()
}

// OnNext lets the focused item consume the event, otherwise moves focus to
// the next sibling. At the end of the list the event is unconsumed.
func (m *PISO) OnNext() bool {
	if !m.hasSel {
		return false
	}
	if m.listItems[m.sel].OnNext() {
		return true
	}
	if m.sel < len(m.listItems)-1 {
		m.listItems[m.sel].OnLoseFocus()
		m.sel++
		m.listItems[m.sel].OnFocus()
		return true
	}
	return false
}

// OnPrev is the mirror of OnNext.
func (m *PISO) OnPrev() bool {
	if !m.hasSel {
		return false
	}
	if m.listItems[m.sel].OnPrev() {
		return true
	}
	if m.sel > 0 {
		m.listItems[m.sel].OnLoseFocus()
		m.sel--
		m.listItems[m.sel].OnFocus()
		return true
	}
	return false
}

// OnFocus satisfies ListItem; the root has no visual focus state of its own.
func (m *PISO) OnFocus() {}

// OnLoseFocus satisfies ListItem.
func (m *PISO) OnLoseFocus() {}

// Render composites every item in list order. A fullscreen child wins
// outright and its bitmap is returned verbatim. Otherwise each item bitmap
// is shifted right by the menu gutter and appended below its predecessor.
func (m *PISO) Render() (bitmap.Bitmap, RenderMode) {
	var out bitmap.Bitmap
	for _, item := range m.listItems {
		b, mode := item.Render()
		if mode == RenderFullscreen {
			return b, RenderFullscreen
		}
		shifted := indent(b, menuIndent)
		oldHeight := out.Height()
		out.ExpandHeight(shifted.Height())
		if shifted.Width() > out.Width() {
			out.ExpandWidth(shifted.Width() - out.Width())
		}
		out.Blit(shifted, bitmap.Point{Y: oldHeight})
	}
	return out, RenderNormal
}

// RenderFrame produces the final display-sized frame: the composite clipped
// to the panel dimensions with the capacity sidebar overlaid on the right
// edge. A fullscreen child bypasses both the clip and the sidebar.
func (m *PISO) RenderFrame(ctx context.Context) (bitmap.Bitmap, error) {
	composite, mode := m.Render()
	if mode == RenderFullscreen {
		return composite, nil
	}

	// No scrolling: a list taller than the panel clips at the bottom.
	out := bitmap.New(display.Width, display.Height)
	out.Blit(composite, bitmap.Point{})

	used, err := m.PercentUsed(ctx)
	if err != nil {
		return bitmap.Bitmap{}, err
	}
	free := 100 - int(used)
	text := font.Render(strconv.Itoa(free) + "% Free")
	sidebar := bitmap.New(text.Width(), text.Height()+sidebarGap)
	sidebar.FillRow(0) // separator border next to the menu
	sidebar.Blit(text, bitmap.Point{Y: sidebarGap})
	rotated := sidebar.Rotate(bitmap.Left)
	out.Blit(rotated, bitmap.Point{X: out.Width() - rotated.Width()})
	return out, nil
}

// mountExternal exposes a drive's volume as a mass-storage LUN. The gadget
// re-binds so the host re-enumerates the new function set.
func (m *PISO) mountExternal(name string) error {
	if err := m.gadget.Unbind(); err != nil {
		return fatalf("expose %s: %w", name, err)
	}
	if err := m.gadget.AddDrive(name, m.lvm.DevicePath(name)); err != nil {
		return fatalf("expose %s: %w", name, err)
	}
	if err := m.gadget.Bind(); err != nil {
		return fatalf("expose %s: %w", name, err)
	}
	return nil
}

func (m *PISO) unmountExternal(name string) error {
	if err := m.gadget.Unbind(); err != nil {
		return fatalf("hide %s: %w", name, err)
	}
	if err := m.gadget.RemoveDrive(name); err != nil {
		return fatalf("hide %s: %w", name, err)
	}
	if err := m.gadget.Bind(); err != nil {
		return fatalf("hide %s: %w", name, err)
	}
	return nil
}

func (m *PISO) toggleFlip() {
	m.flipped = !m.flipped
	if m.onFlip != nil {
		m.onFlip(m.flipped)
	}
}

// fail records a fatal error raised by an input handler for HandleEvent to
// return. The first error wins; later ones are logged only.
func (m *PISO) fail(err error) {
	m.log.Error("operation failed", "error", err)
	if m.pending == nil {
		m.pending = err
	}
}

// Ensure the root menu is itself a list item.
var _ ListItem = (*PISO)(nil)
