package capture

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
)

// EventKind identifies a step of the shooting sequence.
type EventKind string

const (
	EventCountdown EventKind = "countdown"
	EventCapture   EventKind = "capture"
	EventFlash     EventKind = "flash"
	EventPreview   EventKind = "preview"
	EventDone      EventKind = "done"
)

// Event is emitted to the observer at every step. Shot is 1-based.
// Image is set on capture and preview events.
type Event struct {
	Kind      EventKind   `json:"kind"`
	Shot      int         `json:"shot"`
	Total     int         `json:"total"`
	Remaining int         `json:"remaining"`
	Image     image.Image `json:"-"`
}

// Flasher lights the scene for a short pulse. *light.Flash implements it.
type Flasher interface {
	Pulse(ctx context.Context, d time.Duration) error
}

// Params defines the timing of a shooting sequence.
type Params struct {
	Shots           int           // number of photos (3 for a strip)
	Countdown       time.Duration // countdown before each shot
	Tick            time.Duration // countdown granularity
	FlashDuration   time.Duration // flash pulse after each shot
	PreviewDuration time.Duration // how long the last shot stays on screen
}

// DefaultParams returns the standard booth timings.
func DefaultParams() Params {
	return Params{
		Shots:           3,
		Countdown:       3 * time.Second,
		Tick:            time.Second,
		FlashDuration:   200 * time.Millisecond,
		PreviewDuration: 500 * time.Millisecond,
	}
}

// Sequence drives the countdown/flash/capture cycle against a running camera.
type Sequence struct {
	camera  camera.Camera
	flash   Flasher
	observe func(Event)
}

// NewSequence returns a sequence. flash and observe may be nil.
func NewSequence(c camera.Camera, flash Flasher, observe func(Event)) *Sequence {
	return &Sequence{
		camera:  c,
		flash:   flash,
		observe: observe,
	}
}

func (s *Sequence) emit(e Event) {
	if s.observe != nil {
		s.observe(e)
	}
}

// Run takes p.Shots photos. For each shot it counts down from
// Countdown/Tick to 0 (one event per tick, zero included), captures, flashes, shows a
// preview and moves on. Images are returned in capture order.
// Cancelling ctx aborts between any two steps.
func (s *Sequence) Run(ctx context.Context, p Params) ([]image.Image, error) {
	if p.Shots <= 0 {
		return nil, fmt.Errorf("shots must be > 0, got %d", p.Shots)
	}
	if p.Tick <= 0 {
		p.Tick = time.Second
	}
	ticks := int(p.Countdown / p.Tick)

	debug.Section("Shooting sequence")
	debug.Verbose("Shots=%d countdown=%v tick=%v flash=%v preview=%v",
		p.Shots, p.Countdown, p.Tick, p.FlashDuration, p.PreviewDuration)

	images := make([]image.Image, 0, p.Shots)
	for shot := 1; shot <= p.Shots; shot++ {
		for remaining := ticks; remaining >= 0; remaining-- {
			if err := ctx.Err(); err != nil {
				return images, err
			}
			debug.Countdown(shot, p.Shots, remaining)
			s.emit(Event{Kind: EventCountdown, Shot: shot, Total: p.Shots, Remaining: remaining})
			// Zero stays on screen for one tick before the shutter fires.
			if ticks > 0 {
				if err := sleep(ctx, p.Tick); err != nil {
					return images, err
				}
			}
		}

		img, err := s.camera.Capture(ctx)
		if err != nil {
			return images, fmt.Errorf("capture shot %d: %w", shot, err)
		}
		images = append(images, img)
		b := img.Bounds()
		debug.Shot(shot, p.Shots, b.Dx(), b.Dy())
		s.emit(Event{Kind: EventCapture, Shot: shot, Total: p.Shots, Image: img})

		s.emit(Event{Kind: EventFlash, Shot: shot, Total: p.Shots})
		if s.flash != nil {
			if err := s.flash.Pulse(ctx, p.FlashDuration); err != nil {
				return images, err
			}
		} else if err := sleep(ctx, p.FlashDuration); err != nil {
			return images, err
		}

		s.emit(Event{Kind: EventPreview, Shot: shot, Total: p.Shots, Image: img})
		if err := sleep(ctx, p.PreviewDuration); err != nil {
			return images, err
		}
	}

	s.emit(Event{Kind: EventDone, Shot: p.Shots, Total: p.Shots})
	debug.Live("Sequence complete: %d photos", len(images))
	return images, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
