package strip

import "errors"

var (
	// ErrInvalidInputCount is returned when Render does not get exactly three images.
	ErrInvalidInputCount = errors.New("photostrip needs exactly 3 images")
	// ErrRenderFailure is returned when the canvas could not be produced.
	ErrRenderFailure = errors.New("photostrip render failed")
	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid photostrip status transition")
)
