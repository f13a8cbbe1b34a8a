// Package font rasterizes text into 1-bpp bitmaps for the display pipeline.
package font

import (
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/alschwalm/piso/internal/bitmap"
)

var face = basicfont.Face7x13

// Height is the pixel height of a rendered line of text.
var Height = face.Ascent + face.Descent

// Render rasterizes a single line of text into a tightly-sized bitmap.
// An empty string yields an empty bitmap.
func Render(text string) bitmap.Bitmap {
	if text == "" {
		return bitmap.Bitmap{}
	}

	width := font.MeasureString(face, text).Ceil()
	img := image.NewGray(image.Rect(0, 0, width, Height))

	d := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	out := bitmap.New(width, Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < width; x++ {
			if img.GrayAt(x, y).Y >= 128 {
				out.Set(x, y, true)
			}
		}
	}
	return out
}
