package camera

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// shotPalette tints successive mock frames so the three slots of a strip
// are easy to tell apart.
var shotPalette = []color.RGBA{
	{R: 0xe0, G: 0x6c, B: 0x75, A: 0xff},
	{R: 0x61, G: 0xaf, B: 0xef, A: 0xff},
	{R: 0x98, G: 0xc3, B: 0x79, A: 0xff},
}

// Mock produces deterministic synthetic frames. Used for development on a
// machine without a camera and in tests.
type Mock struct {
	width       int
	height      int
	orientation Orientation

	mu      sync.Mutex
	running bool
	shots   int
}

// NewMock returns a mock camera producing width x height raw frames.
func NewMock(width, height int, o Orientation) *Mock {
	return &Mock{width: width, height: height, orientation: o}
}

func (m *Mock) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		debug.Info("Using MOCK camera (%dx%d)", m.width, m.height)
	}
	m.running = true
	return nil
}

func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

func (m *Mock) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Mock) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil, ErrNotRunning
	}

	tint := shotPalette[m.shots%len(shotPalette)]
	m.shots++

	img := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	for y := 0; y < m.height; y++ {
		shade := uint8(255 * y / max(m.height-1, 1))
		for x := 0; x < m.width; x++ {
			c := tint
			if x < m.width/8 {
				// left marker band makes mirroring visible
				c = color.RGBA{A: 0xff}
			}
			c.R = uint8((int(c.R) + int(shade)) / 2)
			img.SetRGBA(x, y, c)
		}
	}
	return Orient(img, m.orientation), nil
}

// Probe always succeeds.
func (m *Mock) Probe(ctx context.Context) error {
	return nil
}
