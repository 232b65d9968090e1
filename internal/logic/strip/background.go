package strip

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math/rand/v2"
	"os"
)

// Snow returns a transparent overlay sprinkled with soft white flakes.
// The same size and seed always produce the same image.
func Snow(width, height int, seed uint64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	if width <= 0 || height <= 0 {
		return img
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	flakes := width * height / 900
	for i := 0; i < flakes; i++ {
		cx := rng.IntN(width)
		cy := rng.IntN(height)
		radius := 1 + rng.IntN(3)
		alpha := 0x40 + rng.IntN(0x80)
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy > radius*radius {
					continue
				}
				x, y := cx+dx, cy+dy
				if !(image.Point{X: x, Y: y}.In(img.Rect)) {
					continue
				}
				if cur := img.NRGBAAt(x, y); int(cur.A) >= alpha {
					continue
				}
				img.SetNRGBA(x, y, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: uint8(alpha)})
			}
		}
	}
	return img
}

// LoadBackground decodes a PNG or JPEG file used as strip background.
func LoadBackground(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open background: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode background %s: %w", path, err)
	}
	return img, nil
}
