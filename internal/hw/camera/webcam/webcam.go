package webcam

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
)

// Webcam captures stills from a V4L2/AVFoundation device through OpenCV.
type Webcam struct {
	device      int
	width       int
	height      int
	orientation camera.Orientation

	mu  sync.Mutex
	cap *gocv.VideoCapture
}

// New prepares a webcam; the device is opened by Start.
func New(device, width, height int, o camera.Orientation) *Webcam {
	return &Webcam{
		device:      device,
		width:       width,
		height:      height,
		orientation: o,
	}
}

func (w *Webcam) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cap != nil {
		return nil
	}

	debug.Verbose("Camera: opening device %d (%dx%d)", w.device, w.width, w.height)
	vc, err := gocv.OpenVideoCapture(w.device)
	if err != nil {
		return fmt.Errorf("open video device %d: %w", w.device, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(w.width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(w.height))
	if !vc.IsOpened() {
		_ = vc.Close()
		return fmt.Errorf("video device %d did not open", w.device)
	}
	w.cap = vc
	debug.Live("Camera session started")
	return nil
}

func (w *Webcam) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cap == nil {
		return nil
	}
	err := w.cap.Close()
	w.cap = nil
	debug.Live("Camera session stopped")
	return err
}

func (w *Webcam) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cap != nil
}

func (w *Webcam) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cap == nil {
		return nil, camera.ErrNotRunning
	}

	mat := gocv.NewMat()
	defer mat.Close()

	// Drivers buffer a few frames; drop stale ones so the still matches
	// the moment the countdown reached zero.
	for i := 0; i < 3; i++ {
		if ok := w.cap.Read(&mat); !ok {
			return nil, fmt.Errorf("read frame from device %d", w.device)
		}
	}
	if mat.Empty() {
		return nil, fmt.Errorf("empty frame from device %d", w.device)
	}

	if flag, ok := rotateFlag(w.orientation.RotateDeg); ok {
		if err := gocv.Rotate(mat, &mat, flag); err != nil {
			return nil, fmt.Errorf("rotate frame: %w", err)
		}
	}
	if w.orientation.Mirror {
		// flipCode 1 mirrors around the vertical axis.
		if err := gocv.Flip(mat, &mat, 1); err != nil {
			return nil, fmt.Errorf("mirror frame: %w", err)
		}
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

// rotateFlag maps a clockwise rotation in degrees to OpenCV's flag.
// 0 and unsupported angles need no rotation.
func rotateFlag(deg int) (gocv.RotateFlag, bool) {
	switch deg {
	case 90:
		return gocv.Rotate90Clockwise, true
	case 180:
		return gocv.Rotate180Clockwise, true
	case 270:
		return gocv.Rotate90CounterClockwise, true
	default:
		return 0, false
	}
}

// Probe opens and immediately closes the device. It backs the camera
// permission check.
func (w *Webcam) Probe(ctx context.Context) error {
	if w.Running() {
		return nil
	}
	vc, err := gocv.OpenVideoCapture(w.device)
	if err != nil {
		return err
	}
	defer vc.Close()
	if !vc.IsOpened() {
		return fmt.Errorf("video device %d unavailable", w.device)
	}
	return nil
}

var _ camera.Camera = (*Webcam)(nil)
