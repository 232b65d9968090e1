package camera

import (
	"image"
	"image/draw"
)

// Orientation describes the correction applied to raw sensor frames:
// a clockwise rotation followed by an optional horizontal mirror.
type Orientation struct {
	RotateDeg int
	Mirror    bool
}

// Orient returns a new RGBA image with o applied. RotateDeg values other
// than 90, 180 and 270 are treated as 0. The webcam orients its OpenCV
// frames itself; Orient serves the synthetic camera.
func Orient(src image.Image, o Orientation) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)

	out := rgba
	switch o.RotateDeg {
	case 90:
		out = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetRGBA(h-1-y, x, rgba.RGBAAt(x, y))
			}
		}
	case 180:
		out = image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetRGBA(w-1-x, h-1-y, rgba.RGBAAt(x, y))
			}
		}
	case 270:
		out = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetRGBA(y, w-1-x, rgba.RGBAAt(x, y))
			}
		}
	}

	if o.Mirror {
		ob := out.Bounds()
		for y := 0; y < ob.Dy(); y++ {
			for x := 0; x < ob.Dx()/2; x++ {
				l, r := out.RGBAAt(x, y), out.RGBAAt(ob.Dx()-1-x, y)
				out.SetRGBA(x, y, r)
				out.SetRGBA(ob.Dx()-1-x, y, l)
			}
		}
	}
	return out
}
