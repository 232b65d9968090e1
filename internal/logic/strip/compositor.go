package strip

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/opentype"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/geometry"
)

// Compositor draws photostrips for one Layout. Render is safe for
// concurrent use; font faces are shared under a lock.
type Compositor struct {
	layout Layout

	mu     sync.Mutex
	header font.Face
	footer font.Face
}

// NewCompositor parses the layout font and prepares both faces.
func NewCompositor(l Layout) (*Compositor, error) {
	data := l.FontData
	if data == nil {
		data = gobolditalic.TTF
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	header, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    l.HeaderFontSize(),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("header face: %w", err)
	}
	footer, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    l.FooterFontSize(),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("footer face: %w", err)
	}
	return &Compositor{layout: l, header: header, footer: footer}, nil
}

// Layout returns the layout the compositor was built with.
func (c *Compositor) Layout() Layout {
	return c.layout
}

// Render composes the three images onto a new canvas: background, header,
// the images aspect-fitted into their slots, then the footer. Images are
// never cropped or stretched.
func (c *Compositor) Render(images []image.Image) (*image.RGBA, error) {
	if len(images) != Slots {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidInputCount, len(images))
	}
	for i, img := range images {
		if img == nil {
			return nil, fmt.Errorf("%w: image %d is nil", ErrRenderFailure, i+1)
		}
	}

	l := c.layout
	size := l.Canvas()
	bounds := image.Rect(0, 0, int(math.Round(size.W)), int(math.Round(size.H)))
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty canvas %vx%v", ErrRenderFailure, size.W, size.H)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dst := image.NewRGBA(bounds)
	if l.Background != nil {
		draw.Draw(dst, bounds, image.NewUniform(l.Background), image.Point{}, draw.Src)
	}
	if l.BackgroundImage != nil {
		xdraw.CatmullRom.Scale(dst, bounds, l.BackgroundImage, l.BackgroundImage.Bounds(), xdraw.Over, nil)
	}

	plan := l.Bands()
	drawText(dst, c.header, l.HeaderText, plan.Header, l.TextColor, l.ShadowColor, l.ShadowBlur, l.ShadowOffset)

	for i, img := range images {
		src := img.Bounds()
		target := geometry.AspectFit(geometry.SizeOf(src), plan.Slots[i]).Image()
		debug.Verbose("Slot %d: %dx%d -> %v", i+1, src.Dx(), src.Dy(), target)
		if target.Empty() {
			continue
		}
		xdraw.CatmullRom.Scale(dst, target, img, src, xdraw.Over, nil)
	}

	drawText(dst, c.footer, l.FooterText, l.FooterTextRect(), l.TextColor, l.ShadowColor, l.ShadowBlur, l.ShadowOffset)

	if dst.Bounds().Empty() {
		return nil, ErrRenderFailure
	}
	return dst, nil
}
