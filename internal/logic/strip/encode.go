package strip

import (
	"image"
	"image/jpeg"
	"io"
)

// JPEGQuality is used for every strip and original written or shared.
const JPEGQuality = 100

// Encode writes img as a JPEG at full quality.
func Encode(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
}
