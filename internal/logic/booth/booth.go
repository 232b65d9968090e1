package booth

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
	"github.com/cjeanneret/BoothGo/internal/share"
)

var (
	// ErrBusy is returned when a session is already running.
	ErrBusy = errors.New("photo session already in progress")
	// ErrNoStrip is returned when there is no successful strip to show or share.
	ErrNoStrip = errors.New("no photostrip available")
	// ErrPermissionDenied is returned when camera access is refused.
	ErrPermissionDenied = errors.New("camera permission denied")
)

// Phase is where the booth is in a session.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseShooting  Phase = "shooting"
	PhaseComposing Phase = "composing"
	PhaseViewing   Phase = "viewing"
)

// Gate answers permission questions. *permission.Gate implements it.
type Gate interface {
	CheckCamera(ctx context.Context) bool
	CheckLibrary(ctx context.Context) bool
}

// Library receives the session id of saved strips and the share log.
// *library.Library implements it.
type Library interface {
	SetSession(id string)
	RecordShare(ctx context.Context, sessionID, target, recipient string, sendErr error) error
}

// Options wires a Booth. Flash, Library, Shares and Publish may be nil.
type Options struct {
	Camera     camera.Camera
	Gate       Gate
	Flash      capture.Flasher
	Params     capture.Params
	Manager    *strip.Manager
	Library    Library
	Shares     *share.Registry
	FilePrefix string
	Publish    func(Event)
}

// Snapshot is the state shown by the kiosk UI.
type Snapshot struct {
	Phase     Phase            `json:"phase"`
	SessionID string           `json:"session_id,omitempty"`
	Shots     int              `json:"shots"`
	Total     int              `json:"total"`
	Strip     strip.StatusKind `json:"strip"`
	Saved     bool             `json:"saved"`
	Error     string           `json:"error,omitempty"`
	Targets   []string         `json:"targets,omitempty"`
}

// Booth runs photo sessions: shoot three photos, compose the strip, show
// and share it, then reset for the next guest.
type Booth struct {
	opts Options
	now  func() time.Time

	mu      sync.Mutex
	phase   Phase
	session string
	images  []image.Image
	cancel  context.CancelFunc
}

// New returns an idle booth.
func New(o Options) *Booth {
	if o.Params.Shots == 0 {
		o.Params = capture.DefaultParams()
	}
	if o.FilePrefix == "" {
		o.FilePrefix = "photobooth"
	}
	if o.Shares == nil {
		o.Shares = share.NewRegistry()
	}
	return &Booth{opts: o, now: time.Now, phase: PhaseIdle}
}

func (b *Booth) publish(e Event) {
	if b.opts.Publish != nil {
		b.opts.Publish(e)
	}
}

func (b *Booth) setPhase(p Phase) {
	b.mu.Lock()
	b.phase = p
	b.mu.Unlock()
	debug.Verbose("Booth phase: %s", p)
	b.publish(Event{Type: EventPhase, Phase: p})
}

// Run performs a whole session and blocks until the strip is composed. It
// returns ErrBusy when the booth is not idle. When shooting fails or is
// cancelled the booth returns to idle and the strip status is left alone.
func (b *Booth) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.phase != PhaseIdle {
		b.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.phase = PhaseShooting
	b.images = nil
	b.cancel = cancel
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.cancel = nil
		b.mu.Unlock()
	}()

	if !b.opts.Gate.CheckCamera(ctx) {
		b.abort(ErrPermissionDenied)
		return ErrPermissionDenied
	}
	// Refreshes the cached library answer used by the strip manager.
	b.opts.Gate.CheckLibrary(ctx)

	session := uuid.NewString()
	b.mu.Lock()
	b.session = session
	b.mu.Unlock()
	if b.opts.Library != nil {
		b.opts.Library.SetSession(session)
	}
	debug.Summary("Photo session " + session[:8])
	b.publish(Event{Type: EventPhase, Phase: PhaseShooting, SessionID: session})

	images, err := b.shoot(ctx)
	if err != nil {
		b.abort(err)
		return err
	}

	b.setPhase(PhaseComposing)
	st, err := b.opts.Manager.Create(ctx, images)
	if err != nil {
		b.abort(err)
		return err
	}

	evt := Event{Type: EventStrip, Strip: st.Kind, Saved: st.Saved}
	if st.Err != nil {
		evt.Message = st.Err.Error()
	}
	b.publish(evt)
	if st.SaveErr != nil {
		b.publish(Event{Type: EventWarning, Message: "photostrip not saved: " + st.SaveErr.Error()})
	}

	b.setPhase(PhaseViewing)
	return nil
}

func (b *Booth) shoot(ctx context.Context) ([]image.Image, error) {
	cam := b.opts.Camera
	if err := cam.Start(ctx); err != nil {
		return nil, fmt.Errorf("start camera: %w", err)
	}
	defer func() {
		if err := cam.Stop(); err != nil {
			debug.Warn("Stopping camera: %v", err)
		}
	}()

	seq := capture.NewSequence(cam, b.opts.Flash, b.onSequence)
	return seq.Run(ctx, b.opts.Params)
}

func (b *Booth) onSequence(e capture.Event) {
	if e.Kind == capture.EventCapture && e.Image != nil {
		b.mu.Lock()
		b.images = append(b.images, e.Image)
		b.mu.Unlock()
	}
	b.publish(Event{
		Type:      EventType(e.Kind),
		Shot:      e.Shot,
		Total:     e.Total,
		Remaining: e.Remaining,
	})
}

func (b *Booth) abort(err error) {
	debug.Error(err)
	b.mu.Lock()
	b.phase = PhaseIdle
	b.images = nil
	b.mu.Unlock()
	b.publish(Event{Type: EventError, Message: err.Error()})
	b.publish(Event{Type: EventPhase, Phase: PhaseIdle})
}

// Cancel interrupts a running session. It is a no-op when idle.
func (b *Booth) Cancel() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		debug.Live("Session cancelled")
		cancel()
	}
}

// Reset drops the photos and the strip and returns to idle. It returns
// ErrBusy while shooting or composing.
func (b *Booth) Reset() error {
	b.mu.Lock()
	if b.phase == PhaseShooting || b.phase == PhaseComposing {
		b.mu.Unlock()
		return ErrBusy
	}
	b.images = nil
	b.session = ""
	b.mu.Unlock()

	b.opts.Manager.Reset()
	b.setPhase(PhaseIdle)
	return nil
}

// Idle reports whether a new session can start.
func (b *Booth) Idle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase == PhaseIdle
}

// Snapshot returns the current state.
func (b *Booth) Snapshot() Snapshot {
	st := b.opts.Manager.Status()
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Snapshot{
		Phase:     b.phase,
		SessionID: b.session,
		Shots:     len(b.images),
		Total:     b.opts.Params.Shots,
		Strip:     st.Kind,
		Saved:     st.Saved,
		Targets:   b.opts.Shares.Available(),
	}
	if st.Err != nil {
		s.Error = st.Err.Error()
	}
	return s
}

// Strip returns the composed strip, or ErrNoStrip.
func (b *Booth) Strip() (*image.RGBA, error) {
	st := b.opts.Manager.Status()
	if st.Kind != strip.Success || st.Image == nil {
		return nil, ErrNoStrip
	}
	return st.Image, nil
}

// Original returns the i-th photo of the session (0-based).
func (b *Booth) Original(i int) (image.Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.images) {
		return nil, fmt.Errorf("photo %d out of range (have %d)", i, len(b.images))
	}
	return b.images[i], nil
}

// Attachments encodes the strip and the originals for sharing.
func (b *Booth) Attachments() ([]share.Attachment, error) {
	img, err := b.Strip()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	originals := append([]image.Image(nil), b.images...)
	b.mu.Unlock()
	return share.BuildAttachments(img, originals, b.opts.FilePrefix, b.now())
}

// Share sends the strip and originals to recipient through the named
// target and records the attempt in the library share log.
func (b *Booth) Share(ctx context.Context, target, recipient string) error {
	t, err := b.opts.Shares.Get(target)
	if err != nil {
		return err
	}
	atts, err := b.Attachments()
	if err != nil {
		return err
	}

	sendErr := t.Send(ctx, recipient, atts)

	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	if b.opts.Library != nil {
		if err := b.opts.Library.RecordShare(ctx, session, t.Name(), recipient, sendErr); err != nil {
			debug.Warn("Share log: %v", err)
		}
	}

	evt := Event{Type: EventShare, Target: t.Name()}
	if sendErr != nil {
		debug.Warn("Share via %s failed: %v", t.Name(), sendErr)
		evt.Message = sendErr.Error()
	}
	b.publish(evt)
	return sendErr
}
