package camera

import (
	"context"
	"errors"
	"image"
)

// ErrNotRunning is returned by Capture when the session was not started.
var ErrNotRunning = errors.New("camera session not running")

// Camera is the high-level interface used by the rest of the application.
// It represents a live capture session, regardless of how the device is
// reached (OpenCV webcam, synthetic frames, ...).
type Camera interface {
	// Start opens the device. Starting a running camera is a no-op.
	Start(ctx context.Context) error
	// Stop releases the device. Stopping a stopped camera is a no-op.
	Stop() error
	// Running reports whether the session is live.
	Running() bool
	// Capture grabs one still, already rotated/mirrored for display.
	Capture(ctx context.Context) (image.Image, error)
}
