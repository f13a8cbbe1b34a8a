// Package bitmap implements the 1-bit-per-pixel canvas the display pipeline
// composites into. Bitmaps grow on demand and are blitted into one another;
// the menu builds each frame bottom-up from per-item bitmaps.
package bitmap

// Point locates a pixel within a bitmap. The origin is the top-left corner.
type Point struct {
	X int
	Y int
}

// Direction selects a 90 degree rotation.
type Direction int

// Rotation directions. Left is counter-clockwise.
const (
	Left Direction = iota
	Right
)

// Bitmap is a width x height grid of on/off pixels.
// The zero value is an empty 0x0 bitmap ready for use.
type Bitmap struct {
	width  int
	height int
	pix    []bool // row-major, len = width*height
}

// New returns a cleared bitmap of the given dimensions.
func New(width, height int) Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Bitmap{width: width, height: height, pix: make([]bool, width*height)}
}

// Width returns the bitmap width in pixels.
func (b Bitmap) Width() int { return b.width }

// Height returns the bitmap height in pixels.
func (b Bitmap) Height() int { return b.height }

// Get reports whether the pixel at (x, y) is set. Out-of-bounds reads
// return false.
func (b Bitmap) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return false
	}
	return b.pix[y*b.width+x]
}

// Set switches the pixel at (x, y). Out-of-bounds writes are dropped.
func (b *Bitmap) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	b.pix[y*b.width+x] = on
}

// ExpandWidth grows the bitmap by n columns. Existing pixels keep their
// coordinates; the new columns are unset.
func (b *Bitmap) ExpandWidth(n int) {
	if n <= 0 {
		return
	}
	newWidth := b.width + n
	pix := make([]bool, newWidth*b.height)
	for y := 0; y < b.height; y++ {
		copy(pix[y*newWidth:y*newWidth+b.width], b.pix[y*b.width:(y+1)*b.width])
	}
	b.width = newWidth
	b.pix = pix
}

// ExpandHeight grows the bitmap by n rows. Existing pixels keep their
// coordinates; the new rows are unset.
func (b *Bitmap) ExpandHeight(n int) {
	if n <= 0 {
		return
	}
	b.height += n
	b.pix = append(b.pix, make([]bool, b.width*n)...)
}

// Blit copies every set pixel of src into b at the given offset. Pixels that
// would land outside b are clipped. Unset src pixels never clear destination
// pixels, so overlapping blits accumulate. The vertical list accumulator
// grows b first with ExpandHeight and then blits into the new region.
func (b *Bitmap) Blit(src Bitmap, at Point) {
	for y := 0; y < src.height; y++ {
		dy := at.Y + y
		if dy < 0 || dy >= b.height {
			continue
		}
		for x := 0; x < src.width; x++ {
			dx := at.X + x
			if dx < 0 || dx >= b.width {
				continue
			}
			if src.pix[y*src.width+x] {
				b.pix[dy*b.width+dx] = true
			}
		}
	}
}

// Rotate returns a copy of b rotated 90 degrees in the given direction.
// Rotating Left then Right (or Right then Left) yields the original bitmap.
func (b Bitmap) Rotate(dir Direction) Bitmap {
	out := New(b.height, b.width)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if !b.pix[y*b.width+x] {
				continue
			}
			switch dir {
			case Left:
				out.Set(y, b.width-1-x, true)
			case Right:
				out.Set(b.height-1-y, x, true)
			}
		}
	}
	return out
}

// Mirror returns a copy of b rotated 180 degrees, for the flipped display
// orientation.
func (b Bitmap) Mirror() Bitmap {
	out := New(b.width, b.height)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if b.pix[y*b.width+x] {
				out.Set(b.width-1-x, b.height-1-y, true)
			}
		}
	}
	return out
}

// FillRow sets every pixel in row y.
func (b *Bitmap) FillRow(y int) {
	if y < 0 || y >= b.height {
		return
	}
	for x := 0; x < b.width; x++ {
		b.pix[y*b.width+x] = true
	}
}

// Equal reports whether two bitmaps have identical dimensions and pixels.
func (b Bitmap) Equal(other Bitmap) bool {
	if b.width != other.width || b.height != other.height {
		return false
	}
	for i := range b.pix {
		if b.pix[i] != other.pix[i] {
			return false
		}
	}
	return true
}

// Pack serializes the bitmap into the row-major 1-bpp byte layout consumed
// by the display controller: each row is padded to a whole number of bytes,
// MSB first within each byte.
func (b Bitmap) Pack() []byte {
	stride := (b.width + 7) / 8
	out := make([]byte, stride*b.height)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if b.pix[y*b.width+x] {
				out[y*stride+x/8] |= 1 << (7 - uint(x)%8)
			}
		}
	}
	return out
}
