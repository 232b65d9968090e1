package strip

import (
	"image"
	"image/color"

	"github.com/cjeanneret/BoothGo/internal/logic/geometry"
)

// Slots is the number of photos on a strip.
const Slots = 3

// Layout holds every presentation constant of a photostrip. Lengths
// expressed in inches are multiplied by DPI when the canvas is planned.
type Layout struct {
	DPI float64

	HeaderFraction float64 // share of the canvas height for the header band
	ImageFraction  float64 // share for all image slots
	FooterFraction float64 // share for the footer band

	TopPaddingIn  float64
	SlotPaddingIn float64
	SidePaddingIn float64
	FooterLiftIn  float64 // footer text is raised by this much

	HeaderText string
	FooterText string // one line per "\n"
	FontData   []byte // TrueType/OpenType data; nil uses Go Bold Italic

	TextColor    color.Color
	ShadowColor  color.Color
	ShadowBlur   int
	ShadowOffset image.Point

	Background      color.Color
	BackgroundImage image.Image // stretched over the whole canvas; may be nil
}

// DefaultLayout returns the 2x6 inch strip at 300 DPI.
func DefaultLayout() Layout {
	return Layout{
		DPI:            300,
		HeaderFraction: 1.0 / 16,
		ImageFraction:  3.0 / 4,
		FooterFraction: 3.0 / 16,
		TopPaddingIn:   0.08,
		SlotPaddingIn:  0.01,
		SidePaddingIn:  0.05,
		FooterLiftIn:   0.16,
		HeaderText:     "I & M",
		FooterText:     "Spouse 1 & Spouse 2\nJanuary 1, 2025\nCity, State",
		TextColor:      color.White,
		ShadowColor:    color.NRGBA{A: 0x80},
		ShadowBlur:     4,
		ShadowOffset:   image.Pt(2, 2),
		Background:     color.NRGBA{R: 0x1b, G: 0x2a, B: 0x41, A: 0xff},
	}
}

// Canvas returns the strip size: 2 x 6 inches.
func (l Layout) Canvas() geometry.Size {
	return geometry.Size{W: 2 * l.DPI, H: 6 * l.DPI}
}

// HeaderFontSize is DPI/4 pixels.
func (l Layout) HeaderFontSize() float64 {
	return l.DPI / 4
}

// FooterFontSize is DPI/7.5 pixels.
func (l Layout) FooterFontSize() float64 {
	return l.DPI / 7.5
}

// Bands partitions the canvas into header, image slots and footer.
func (l Layout) Bands() geometry.BandPlan {
	return geometry.CalculateBandPlan(geometry.BandSpec{
		Canvas:         l.Canvas(),
		Slots:          Slots,
		HeaderFraction: l.HeaderFraction,
		ImageFraction:  l.ImageFraction,
		FooterFraction: l.FooterFraction,
		TopPadding:     l.TopPaddingIn * l.DPI,
		SlotPadding:    l.SlotPaddingIn * l.DPI,
		SidePadding:    l.SidePaddingIn * l.DPI,
	})
}

// FooterTextRect is the box the footer lines are drawn into. Its top is
// H - footer + (footer - DPI/8)/2 - lift.
func (l Layout) FooterTextRect() geometry.Rect {
	c := l.Canvas()
	footer := c.H * l.FooterFraction
	side := l.SidePaddingIn * l.DPI
	return geometry.Rect{
		X: side,
		Y: c.H - footer + (footer-l.DPI/8)/2 - l.FooterLiftIn*l.DPI,
		W: c.W - 2*side,
		H: footer,
	}
}
