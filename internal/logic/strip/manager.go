package strip

import (
	"context"
	"image"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// Saver persists a finished strip.
type Saver interface {
	Save(ctx context.Context, img image.Image) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, img image.Image) error

func (f SaverFunc) Save(ctx context.Context, img image.Image) error {
	return f(ctx, img)
}

// LibraryPermission reports whether strips may be written to the library.
// *permission.Gate implements it.
type LibraryPermission interface {
	LibraryGranted() bool
}

// Manager renders strips and tracks their status.
type Manager struct {
	compositor *Compositor
	tracker    *Tracker
	saver      Saver
	permission LibraryPermission
}

// NewManager returns a manager. saver and perm may be nil, in which case
// strips are never saved.
func NewManager(c *Compositor, saver Saver, perm LibraryPermission) *Manager {
	return &Manager{
		compositor: c,
		tracker:    NewTracker(),
		saver:      saver,
		permission: perm,
	}
}

// Tracker exposes the status tracker for subscriptions.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// Status returns the current status.
func (m *Manager) Status() Status {
	return m.tracker.Status()
}

// Create renders a strip from images and returns the resulting status.
// The status goes to InProgress first, then to Success or Failed. A save
// failure is logged and recorded in the status without failing it.
// Create returns ErrInvalidTransition, leaving the status untouched, when
// a previous strip has not been Reset.
func (m *Manager) Create(ctx context.Context, images []image.Image) (Status, error) {
	if err := m.tracker.Begin(); err != nil {
		return m.tracker.Status(), err
	}
	debug.Live("Composing photostrip from %d images", len(images))

	img, err := m.compositor.Render(images)
	if err != nil {
		debug.Error(err)
		debug.Strip("failed", 0, 0)
		_ = m.tracker.Fail(err)
		return m.tracker.Status(), nil
	}

	saved, saveErr := m.save(ctx, img)
	_ = m.tracker.Succeed(img, saved, saveErr)
	b := img.Bounds()
	debug.Strip("created", b.Dx(), b.Dy())
	return m.tracker.Status(), nil
}

func (m *Manager) save(ctx context.Context, img image.Image) (bool, error) {
	if m.saver == nil || m.permission == nil || !m.permission.LibraryGranted() {
		debug.Verbose("Library write skipped (no permission)")
		return false, nil
	}
	if err := m.saver.Save(ctx, img); err != nil {
		debug.Warn("Saving photostrip failed: %v", err)
		return false, err
	}
	return true, nil
}

// Reset returns the status to NotStarted.
func (m *Manager) Reset() {
	m.tracker.Reset()
}
