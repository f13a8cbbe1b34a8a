package bitmap

import "testing"

func checker(w, h int) Bitmap {
	b := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y, (x+y)%2 == 0)
		}
	}
	return b
}

func TestExpandHeightPreservesContent(t *testing.T) {
	b := checker(5, 3)
	orig := checker(5, 3)

	b.ExpandHeight(4)

	if b.Width() != 5 || b.Height() != 7 {
		t.Fatalf("dimensions = %dx%d, want 5x7", b.Width(), b.Height())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			if b.Get(x, y) != orig.Get(x, y) {
				t.Fatalf("pixel (%d,%d) changed after ExpandHeight", x, y)
			}
		}
	}
	for y := 3; y < 7; y++ {
		for x := 0; x < 5; x++ {
			if b.Get(x, y) {
				t.Fatalf("new pixel (%d,%d) set, want unset", x, y)
			}
		}
	}
}

func TestExpandWidthPreservesContent(t *testing.T) {
	b := checker(4, 4)
	orig := checker(4, 4)

	b.ExpandWidth(3)

	if b.Width() != 7 || b.Height() != 4 {
		t.Fatalf("dimensions = %dx%d, want 7x4", b.Width(), b.Height())
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if b.Get(x, y) != orig.Get(x, y) {
				t.Fatalf("pixel (%d,%d) changed after ExpandWidth", x, y)
			}
		}
		for x := 4; x < 7; x++ {
			if b.Get(x, y) {
				t.Fatalf("new pixel (%d,%d) set, want unset", x, y)
			}
		}
	}
}

func TestBlitOffset(t *testing.T) {
	dst := New(8, 8)
	src := New(2, 2)
	src.Set(0, 0, true)
	src.Set(1, 1, true)

	dst.Blit(src, Point{X: 3, Y: 4})

	if !dst.Get(3, 4) || !dst.Get(4, 5) {
		t.Fatal("blit did not copy set pixels to the offset position")
	}
	if dst.Get(4, 4) || dst.Get(3, 5) {
		t.Fatal("blit copied unset pixels")
	}
}

func TestBlitDoesNotClearDestination(t *testing.T) {
	dst := New(4, 4)
	dst.Set(1, 1, true)

	dst.Blit(New(4, 4), Point{})

	if !dst.Get(1, 1) {
		t.Fatal("blit of an empty bitmap cleared a destination pixel")
	}
}

func TestBlitClipsOutOfBounds(t *testing.T) {
	dst := New(4, 4)
	src := New(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, true)
		}
	}

	// Must not panic; only the overlapping quadrant lands.
	dst.Blit(src, Point{X: 2, Y: 2})

	if !dst.Get(2, 2) || !dst.Get(3, 3) {
		t.Fatal("in-bounds region missing after clipped blit")
	}
	if dst.Get(0, 0) || dst.Get(1, 1) {
		t.Fatal("pixels outside the blit region were touched")
	}
}

func TestRotateRoundTrip(t *testing.T) {
	b := checker(7, 3)
	b.Set(6, 0, true)

	if got := b.Rotate(Left).Rotate(Right); !got.Equal(b) {
		t.Fatal("Rotate(Left) then Rotate(Right) is not the identity")
	}
	if got := b.Rotate(Right).Rotate(Left); !got.Equal(b) {
		t.Fatal("Rotate(Right) then Rotate(Left) is not the identity")
	}
}

func TestRotateLeftMapsTopRowToLeftColumn(t *testing.T) {
	b := New(3, 2)
	b.FillRow(0)

	got := b.Rotate(Left)

	if got.Width() != 2 || got.Height() != 3 {
		t.Fatalf("rotated dimensions = %dx%d, want 2x3", got.Width(), got.Height())
	}
	for y := 0; y < 3; y++ {
		if !got.Get(0, y) {
			t.Fatalf("left column pixel (0,%d) unset after Rotate(Left)", y)
		}
		if got.Get(1, y) {
			t.Fatalf("right column pixel (1,%d) set after Rotate(Left)", y)
		}
	}
}

func TestMirrorIsInvolution(t *testing.T) {
	b := checker(6, 5)
	b.Set(0, 0, false)

	if got := b.Mirror().Mirror(); !got.Equal(b) {
		t.Fatal("Mirror twice is not the identity")
	}
}

func TestPack(t *testing.T) {
	b := New(10, 2)
	b.Set(0, 0, true)
	b.Set(9, 0, true)
	b.Set(7, 1, true)

	got := b.Pack()

	// 10 px rows pad to 2 bytes each.
	want := []byte{0x80, 0x40, 0x01, 0x00}
	if len(got) != len(want) {
		t.Fatalf("packed length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("packed[%d] = %#02x, want %#02x", i, got[i], want[i])
		}
	}
}

func TestZeroValueUsable(t *testing.T) {
	var b Bitmap
	b.ExpandHeight(2)
	b.ExpandWidth(3)
	b.Set(2, 1, true)
	if !b.Get(2, 1) {
		t.Fatal("zero-value bitmap did not accept writes after expansion")
	}
}
