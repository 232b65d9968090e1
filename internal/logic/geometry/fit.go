package geometry

import (
	"image"
	"math"
)

// Size is a width/height pair in canvas units (pixels at the strip DPI).
type Size struct {
	W, H float64
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// SizeOf returns the pixel size of an image rectangle.
func SizeOf(r image.Rectangle) Size {
	return Size{W: float64(r.Dx()), H: float64(r.Dy())}
}

// Image rounds r to the pixel grid. Edges are rounded independently so
// adjacent rects never overlap or leave a gap.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)),
		int(math.Round(r.Y+r.H)),
	)
}

// Center returns the middle point of r.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// AspectFit scales src uniformly to the largest size that fits inside
// container and centers it there. Nothing is cropped or stretched.
// A degenerate src yields an empty rect at the container center.
func AspectFit(src Size, container Rect) Rect {
	if src.W <= 0 || src.H <= 0 || container.Empty() {
		cx, cy := container.Center()
		return Rect{X: cx, Y: cy}
	}

	scale := math.Min(container.W/src.W, container.H/src.H)
	w := src.W * scale
	h := src.H * scale

	return Rect{
		X: container.X + (container.W-w)/2,
		Y: container.Y + (container.H-h)/2,
		W: w,
		H: h,
	}
}
