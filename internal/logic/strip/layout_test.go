package strip

import (
	"math"
	"testing"
)

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	if c := l.Canvas(); c.W != 600 || c.H != 1800 {
		t.Errorf("canvas = %vx%v, want 600x1800", c.W, c.H)
	}
	if got := l.HeaderFontSize(); got != 75 {
		t.Errorf("header font = %v, want 75", got)
	}
	if got := l.FooterFontSize(); got != 40 {
		t.Errorf("footer font = %v, want 40", got)
	}
	if got := len(l.Bands().Slots); got != Slots {
		t.Errorf("slots = %d, want %d", got, Slots)
	}
}

func TestFooterTextRect(t *testing.T) {
	r := DefaultLayout().FooterTextRect()
	// 1800 - 337.5 + (337.5 - 37.5)/2 - 48
	if math.Abs(r.Y-1564.5) > 1e-9 {
		t.Errorf("footer y = %v, want 1564.5", r.Y)
	}
	if math.Abs(r.X-15) > 1e-9 || math.Abs(r.W-570) > 1e-9 || r.H != 337.5 {
		t.Errorf("footer rect = %+v", r)
	}
}
