package strip

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/cjeanneret/BoothGo/internal/logic/geometry"
)

// drawText renders lines centered horizontally in r, top-aligned, with a
// blurred drop shadow under them. Lines that would overflow r are dropped.
func drawText(dst *image.RGBA, face font.Face, text string, r geometry.Rect, fg, shadow color.Color, blur int, offset image.Point) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b := dst.Bounds()
	mask := image.NewAlpha(b)

	m := face.Metrics()
	bottom := fixed.Int26_6(math.Round((r.Y + r.H) * 64))
	baseline := fixed.Int26_6(math.Round(r.Y*64)) + m.Ascent

	for _, line := range strings.Split(text, "\n") {
		if baseline+m.Descent > bottom {
			break
		}
		if line != "" {
			w := font.MeasureString(face, line)
			x := fixed.Int26_6(math.Round(r.X*64)) + (fixed.Int26_6(math.Round(r.W*64))-w)/2
			d := font.Drawer{
				Dst:  mask,
				Src:  image.Opaque,
				Face: face,
				Dot:  fixed.Point26_6{X: x, Y: baseline},
			}
			d.DrawString(line)
		}
		baseline += m.Height
	}

	if shadow != nil {
		soft := blurAlpha(mask, blur)
		draw.DrawMask(dst, b, image.NewUniform(shadow), image.Point{}, soft, b.Min.Sub(offset), draw.Over)
	}
	draw.DrawMask(dst, b, image.NewUniform(fg), image.Point{}, mask, b.Min, draw.Over)
}

// blurAlpha approximates a gaussian of the given radius with three box
// blur passes in each direction.
func blurAlpha(src *image.Alpha, radius int) *image.Alpha {
	if radius <= 0 {
		return src
	}
	r := max(radius/2, 1)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		copy(pix[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
	tmp := make([]uint8, w*h)
	for pass := 0; pass < 3; pass++ {
		boxBlur(pix, tmp, w, h, r, 1, w)
		boxBlur(tmp, pix, h, w, r, w, 1)
	}

	out := image.NewAlpha(b)
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], pix[y*w:(y+1)*w])
	}
	return out
}

// boxBlur runs a sliding window of width 2r+1 along lines of n samples.
// step is the distance between samples of a line, next the distance
// between lines.
func boxBlur(src, dst []uint8, n, lines, r, step, next int) {
	div := 2*r + 1
	for l := 0; l < lines; l++ {
		base := l * next
		sum := 0
		for i := 0; i <= r && i < n; i++ {
			sum += int(src[base+i*step])
		}
		for i := 0; i < n; i++ {
			dst[base+i*step] = uint8(sum / div)
			if in := i + r + 1; in < n {
				sum += int(src[base+in*step])
			}
			if out := i - r; out >= 0 {
				sum -= int(src[base+out*step])
			}
		}
	}
}
