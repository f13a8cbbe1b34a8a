package menu

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/alschwalm/piso/internal/display"
	"github.com/alschwalm/piso/internal/font"
	"github.com/alschwalm/piso/internal/lvm"
	"github.com/alschwalm/piso/internal/vdrive"
)

// fakeLVM simulates the volume manager: lvcreate/lvremove mutate an
// in-memory inventory and lvs reports it, including pool consumption.
type fakeLVM struct {
	poolSize uint64
	used     uint64
	volumes  map[string]uint64
	calls    []string
	fail     map[string]error
	noPool   bool
}

func newFakeLVM() *fakeLVM {
	return &fakeLVM{
		poolSize: 4 << 30,
		volumes:  make(map[string]uint64),
		fail:     make(map[string]error),
	}
}

func (f *fakeLVM) Run(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	if err, ok := f.fail[name]; ok {
		return "", err
	}
	switch name {
	case "lvs":
		return f.report(), nil
	case "lvcreate":
		var size uint64
		var volume string
		for i := 0; i < len(args)-1; i++ {
			switch args[i] {
			case "-V":
				size, _ = strconv.ParseUint(strings.TrimSuffix(args[i+1], "B"), 10, 64)
			case "-n":
				volume = args[i+1]
			}
		}
		f.volumes[volume] = size
		f.used += size
		return "", nil
	case "lvremove":
		volume := args[0][strings.Index(args[0], "/")+1:]
		f.used -= f.volumes[volume]
		delete(f.volumes, volume)
		return "", nil
	case "sh":
		// vdrive.sh mount/unmount helper
		if len(args) >= 3 && args[1] == "mount-internal-basic" {
			return "/dev/mapper/" + args[2] + "p1\n", nil
		}
		return "", nil
	default:
		// parted, mkfs.*
		return "", nil
	}
}

func (f *fakeLVM) report() string {
	var records []string
	if !f.noPool {
		pct := float64(f.used) / float64(f.poolSize) * 100
		records = append(records, fmt.Sprintf(
			`{"lv_name":"thinpool","lv_attr":"twi-aotz--","lv_size":"%dB","data_percent":"%.2f"}`,
			f.poolSize, pct))
	}
	names := make([]string, 0, len(f.volumes))
	for name := range f.volumes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		records = append(records, fmt.Sprintf(
			`{"lv_name":"%s","lv_attr":"Vwi-a-tz--","lv_size":"%dB","data_percent":"0.00"}`,
			name, f.volumes[name]))
	}
	return `{"report":[{"lv":[` + strings.Join(records, ",") + `]}]}`
}

type fakeGadget struct {
	exposed map[string]bool
	bound   bool
}

func newFakeGadget() *fakeGadget {
	return &fakeGadget{exposed: make(map[string]bool)}
}

func (g *fakeGadget) AddDrive(name, _ string) error { g.exposed[name] = true; return nil }
func (g *fakeGadget) RemoveDrive(name string) error { delete(g.exposed, name); return nil }
func (g *fakeGadget) Exposed(name string) bool      { return g.exposed[name] }
func (g *fakeGadget) Bind() error                   { g.bound = true; return nil }
func (g *fakeGadget) Unbind() error                 { g.bound = false; return nil }

func newTestPISO(t *testing.T) (*PISO, *fakeLVM, *fakeGadget) {
	t.Helper()
	fake := newFakeLVM()
	gadget := newFakeGadget()
	client := lvm.NewClient("piso-vg", "thinpool", fake)
	prov := vdrive.NewProvisioner("/opt/piso/scripts", fake)
	m := New(client, prov, gadget, Options{
		Logger:  slog.New(slog.DiscardHandler),
		Version: "1.0.0",
	})
	return m, fake, gadget
}

func TestAddDriveNaming(t *testing.T) {
	m, _, _ := newTestPISO(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := m.AddDrive(ctx, 1<<30, vdrive.FormatLinux)
		if err != nil {
			t.Fatalf("AddDrive #%d returned error: %v", i, err)
		}
		if want := "Drive" + strconv.Itoa(i); d.Name() != want {
			t.Fatalf("drive name = %q, want %q", d.Name(), want)
		}
	}

	seen := make(map[string]bool)
	for _, d := range m.Drives() {
		if seen[d.Name()] {
			t.Fatalf("duplicate drive name %q", d.Name())
		}
		seen[d.Name()] = true
	}
}

func TestAddDriveCommandSequence(t *testing.T) {
	m, fake, gadget := newTestPISO(t)

	if _, err := m.AddDrive(context.Background(), 1<<30, vdrive.FormatWindows); err != nil {
		t.Fatalf("AddDrive returned error: %v", err)
	}

	want := []string{
		"lvcreate -V 1073741824B -T piso-vg/thinpool -n Drive1",
		"parted --script /dev/piso-vg/Drive1 mklabel msdos mkpart primary ntfs 0% 100%",
		"sh /opt/piso/scripts/vdrive.sh mount-internal-basic Drive1",
		"mkfs.ntfs -f /dev/mapper/Drive1p1",
		"sh /opt/piso/scripts/vdrive.sh unmount-internal-basic Drive1",
	}
	if len(fake.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", fake.calls, want)
	}
	for i := range want {
		if fake.calls[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, fake.calls[i], want[i])
		}
	}
	if !gadget.Exposed("Drive1") || !gadget.bound {
		t.Fatal("new drive not exposed over the gadget")
	}
}

func TestListRebuildAfterMutation(t *testing.T) {
	m, _, _ := newTestPISO(t)
	ctx := context.Background()

	if len(m.listItems) != 2 {
		t.Fatalf("initial list length = %d, want 2 (NewDrive, Options)", len(m.listItems))
	}

	d, err := m.AddDrive(ctx, 1<<30, vdrive.FormatLinux)
	if err != nil {
		t.Fatalf("AddDrive returned error: %v", err)
	}
	if len(m.listItems) != len(m.drives)+2 {
		t.Fatalf("list length = %d, want drives+2 = %d", len(m.listItems), len(m.drives)+2)
	}
	if m.sel != 0 {
		t.Fatalf("cursor = %d, want 0 after rebuild", m.sel)
	}
	if !d.focused {
		t.Fatal("first item did not gain focus after rebuild")
	}

	// Open the drive's sub-menu, then mutate: the rebuild must fire
	// lose-focus, collapsing transient state and clearing the highlight.
	d.OnSelect()
	if !d.expanded {
		t.Fatal("OnSelect did not expand the drive sub-menu")
	}
	if _, err := m.AddDrive(ctx, 1<<30, vdrive.FormatLinux); err != nil {
		t.Fatalf("AddDrive returned error: %v", err)
	}
	if d.expanded || d.confirming {
		t.Fatal("rebuild left stale sub-menu state on a previously focused item")
	}
	if !d.focused {
		t.Fatal("Drive1 should regain focus as the new first element")
	}
	for i, item := range m.listItems[1:] {
		if vd, ok := item.(*VirtualDrive); ok && vd.focused {
			t.Fatalf("item %d still focused after rebuild", i+1)
		}
	}
}

func TestRemoveDriveMissingIsNoop(t *testing.T) {
	m, fake, _ := newTestPISO(t)
	ctx := context.Background()

	if _, err := m.AddDrive(ctx, 1<<30, vdrive.FormatLinux); err != nil {
		t.Fatalf("AddDrive returned error: %v", err)
	}
	before := len(m.Drives())
	callsBefore := len(fake.calls)

	ghost := newVirtualDrive(m, "DriveX")
	if err := m.RemoveDrive(ctx, ghost); err != nil {
		t.Fatalf("RemoveDrive(unknown) = %v, want nil", err)
	}
	if len(m.Drives()) != before {
		t.Fatal("removing an unknown drive changed the collection")
	}
	if len(fake.calls) != callsBefore {
		t.Fatalf("removing an unknown drive invoked tools: %v", fake.calls[callsBefore:])
	}
}

func TestNavigationAcrossItems(t *testing.T) {
	m, _, _ := newTestPISO(t)
	ctx := context.Background()
	if _, err := m.AddDrive(ctx, 1<<30, vdrive.FormatLinux); err != nil {
		t.Fatalf("AddDrive returned error: %v", err)
	}

	// Drive1, NewDrive, Options
	if m.sel != 0 {
		t.Fatalf("cursor = %d, want 0", m.sel)
	}
	if !m.OnNext() || m.sel != 1 {
		t.Fatalf("OnNext: cursor = %d, want 1", m.sel)
	}
	if !m.OnNext() || m.sel != 2 {
		t.Fatalf("OnNext: cursor = %d, want 2", m.sel)
	}
	if m.OnNext() {
		t.Fatal("OnNext at the end of the list reported consumed")
	}
	if !m.OnPrev() || m.sel != 1 {
		t.Fatalf("OnPrev: cursor = %d, want 1", m.sel)
	}
}

func TestRenderCompositeDimensions(t *testing.T) {
	m, _, _ := newTestPISO(t)
	if _, err := m.AddDrive(context.Background(), 1<<30, vdrive.FormatLinux); err != nil {
		t.Fatalf("AddDrive returned error: %v", err)
	}

	var wantHeight, wantWidth int
	for _, item := range m.listItems {
		b, mode := item.Render()
		if mode != RenderNormal {
			t.Fatalf("unexpected fullscreen item in idle menu")
		}
		wantHeight += b.Height()
		if w := b.Width() + menuIndent; w > wantWidth {
			wantWidth = w
		}
	}

	composite, mode := m.Render()
	if mode != RenderNormal {
		t.Fatal("Render mode = fullscreen, want normal")
	}
	if composite.Height() != wantHeight {
		t.Fatalf("composite height = %d, want sum of items %d", composite.Height(), wantHeight)
	}
	if composite.Width() != wantWidth {
		t.Fatalf("composite width = %d, want max item width + indent = %d", composite.Width(), wantWidth)
	}
}

func TestRenderFullscreenShortCircuits(t *testing.T) {
	m, _, _ := newTestPISO(t)
	if _, err := m.AddDrive(context.Background(), 1<<30, vdrive.FormatLinux); err != nil {
		t.Fatalf("AddDrive returned error: %v", err)
	}

	// Walk focus to NewDrive (middle of the list) and start the wizard.
	m.OnNext()
	m.OnSelect()

	want, wantMode := m.newdrive.Render()
	if wantMode != RenderFullscreen {
		t.Fatal("wizard render mode = normal, want fullscreen")
	}
	got, mode := m.Render()
	if mode != RenderFullscreen {
		t.Fatal("Render mode = normal, want fullscreen short-circuit")
	}
	if !got.Equal(want) {
		t.Fatal("fullscreen frame differs from the wizard's own bitmap")
	}

	// The frame returns verbatim: no clip, no sidebar.
	frame, err := m.RenderFrame(context.Background())
	if err != nil {
		t.Fatalf("RenderFrame returned error: %v", err)
	}
	if !frame.Equal(want) {
		t.Fatal("RenderFrame modified a fullscreen child's bitmap")
	}
}

func TestRenderFrameClipsAndAddsSidebar(t *testing.T) {
	m, _, _ := newTestPISO(t)

	frame, err := m.RenderFrame(context.Background())
	if err != nil {
		t.Fatalf("RenderFrame returned error: %v", err)
	}
	if frame.Width() != display.Width || frame.Height() != display.Height {
		t.Fatalf("frame = %dx%d, want %dx%d", frame.Width(), frame.Height(), display.Width, display.Height)
	}

	// The rotated sidebar sits flush right: its border column spans the
	// text width, one sidebar-height in from the right edge.
	borderX := display.Width - (font.Height + sidebarGap)
	if !frame.Get(borderX, 0) || !frame.Get(borderX, 20) {
		t.Fatalf("sidebar border column missing at x=%d", borderX)
	}
	ink := false
	for y := 0; y < frame.Height() && !ink; y++ {
		for x := borderX + 1; x < display.Width; x++ {
			if frame.Get(x, y) {
				ink = true
				break
			}
		}
	}
	if !ink {
		t.Fatal("no sidebar text right of the border column")
	}
}

func TestPercentUsedMissingPoolIsFatal(t *testing.T) {
	m, fake, _ := newTestPISO(t)
	fake.noPool = true

	_, err := m.PercentUsed(context.Background())
	if err == nil {
		t.Fatal("PercentUsed succeeded without a pool record")
	}
	if !IsFatal(err) {
		t.Fatalf("PercentUsed error = %v, want fatal", err)
	}
}

func TestToolFailureIsFatal(t *testing.T) {
	m, fake, _ := newTestPISO(t)
	fake.fail["lvcreate"] = fmt.Errorf("pool exhausted")

	_, err := m.AddDrive(context.Background(), 1<<30, vdrive.FormatLinux)
	if err == nil || !IsFatal(err) {
		t.Fatalf("AddDrive error = %v, want fatal", err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	m, _, gadget := newTestPISO(t)
	ctx := context.Background()

	if got, _ := m.PercentUsed(ctx); got != 0 {
		t.Fatalf("initial PercentUsed = %v, want 0", got)
	}
	size, err := m.SizeBytes(ctx)
	if err != nil || size != 4<<30 {
		t.Fatalf("SizeBytes = %v, %v, want 4GiB pool", size, err)
	}

	d, err := m.AddDrive(ctx, 1<<30, vdrive.FormatLinux)
	if err != nil {
		t.Fatalf("AddDrive returned error: %v", err)
	}
	if len(m.listItems) != 3 {
		t.Fatalf("list length = %d, want 3 (Drive1, NewDrive, Options)", len(m.listItems))
	}

	used, err := m.PercentUsed(ctx)
	if err != nil {
		t.Fatalf("PercentUsed returned error: %v", err)
	}
	if used < 24 || used > 26 {
		t.Fatalf("PercentUsed = %v, want ~25 after provisioning 1GiB of 4GiB", used)
	}

	if err := m.RemoveDrive(ctx, d); err != nil {
		t.Fatalf("RemoveDrive returned error: %v", err)
	}
	if len(m.listItems) != 2 {
		t.Fatalf("list length = %d, want 2 after removal", len(m.listItems))
	}
	if gadget.Exposed("Drive1") {
		t.Fatal("removed drive still exposed over the gadget")
	}
	if used, _ := m.PercentUsed(ctx); used != 0 {
		t.Fatalf("PercentUsed = %v, want 0 after removal", used)
	}
}

func TestRebuildFromVolumesFiltersVirtual(t *testing.T) {
	m, fake, _ := newTestPISO(t)
	fake.volumes["Drive1"] = 1 << 30
	fake.volumes["Drive2"] = 2 << 30

	if err := m.RebuildDrivesFromVolumes(context.Background()); err != nil {
		t.Fatalf("RebuildDrivesFromVolumes returned error: %v", err)
	}
	drives := m.Drives()
	if len(drives) != 2 {
		t.Fatalf("len(drives) = %d, want 2 (thinpool record excluded)", len(drives))
	}
	if drives[0].Name() != "Drive1" || drives[1].Name() != "Drive2" {
		t.Fatalf("drives = [%s %s], want [Drive1 Drive2]", drives[0].Name(), drives[1].Name())
	}
}

func TestHandleEventSurfacesFatal(t *testing.T) {
	m, fake, _ := newTestPISO(t)
	fake.fail["lvcreate"] = fmt.Errorf("pool exhausted")

	// With no drives the cursor already sits on NewDrive; run the wizard.
	m.HandleEvent(EventSelect)        // start wizard (size step)
	m.HandleEvent(EventSelect)        // accept size (format step)
	err := m.HandleEvent(EventSelect) // provision
	if err == nil || !IsFatal(err) {
		t.Fatalf("HandleEvent error = %v, want fatal provisioning failure", err)
	}
}
