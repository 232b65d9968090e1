package geometry

// BandSpec is the proportional layout of a photostrip canvas. Fractions
// apply to the canvas height; paddings are absolute canvas units.
type BandSpec struct {
	Canvas         Size
	Slots          int
	HeaderFraction float64 // 1/16
	ImageFraction  float64 // 3/4, shared by all slots
	FooterFraction float64 // 3/16
	TopPadding     float64 // shifts header and image slots down
	SlotPadding    float64 // vertical gap between slots
	SidePadding    float64 // left and right margin
}

// BandPlan holds the rectangles every drawing step of the strip uses.
type BandPlan struct {
	Header Rect   // header text box
	Slots  []Rect // image containers, top to bottom
	Footer Rect   // footer band
	Slot   float64
}

// CalculateBandPlan partitions the canvas into header, image slots and
// footer. Slot i starts at TopPadding + header + i*(slot+SlotPadding) and
// is slot-SlotPadding tall, so consecutive containers are separated by the
// padding.
func CalculateBandPlan(s BandSpec) BandPlan {
	header := s.Canvas.H * s.HeaderFraction
	footer := s.Canvas.H * s.FooterFraction
	slots := s.Slots
	if slots < 1 {
		slots = 1
	}
	slot := s.Canvas.H * s.ImageFraction / float64(slots)
	innerW := s.Canvas.W - 2*s.SidePadding

	plan := BandPlan{
		Header: Rect{X: s.SidePadding, Y: s.TopPadding, W: innerW, H: header},
		Footer: Rect{X: s.SidePadding, Y: s.Canvas.H - footer, W: innerW, H: footer},
		Slot:   slot,
	}
	for i := 0; i < slots; i++ {
		plan.Slots = append(plan.Slots, Rect{
			X: s.SidePadding,
			Y: s.TopPadding + header + float64(i)*slot + float64(i)*s.SlotPadding,
			W: innerW,
			H: slot - s.SlotPadding,
		})
	}
	return plan
}
