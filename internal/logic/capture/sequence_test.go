package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/BoothGo/internal/hw/camera"
)

// failingCamera fails on the n-th capture (1-based).
type failingCamera struct {
	camera.Camera
	failAt int
	calls  int
}

func (f *failingCamera) Capture(ctx context.Context) (image.Image, error) {
	f.calls++
	if f.calls == f.failAt {
		return nil, errors.New("sensor error")
	}
	return f.Camera.Capture(ctx)
}

type countingFlash struct {
	mu     sync.Mutex
	pulses int
}

func (c *countingFlash) Pulse(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.pulses++
	c.mu.Unlock()
	return nil
}

func fastParams() Params {
	return Params{
		Shots:           3,
		Countdown:       3 * time.Millisecond,
		Tick:            time.Millisecond,
		FlashDuration:   time.Millisecond,
		PreviewDuration: time.Millisecond,
	}
}

func startedMock(t *testing.T) *camera.Mock {
	t.Helper()
	cam := camera.NewMock(64, 48, camera.Orientation{})
	if err := cam.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return cam
}

func TestRun_ReturnsThreeImagesInOrder(t *testing.T) {
	cam := startedMock(t)
	flash := &countingFlash{}
	var events []Event
	seq := NewSequence(cam, flash, func(e Event) { events = append(events, e) })

	images, err := seq.Run(context.Background(), fastParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("got %d images, want 3", len(images))
	}
	if flash.pulses != 3 {
		t.Errorf("flash pulses = %d, want 3", flash.pulses)
	}

	var captured []image.Image
	for _, e := range events {
		if e.Kind == EventCapture {
			captured = append(captured, e.Image)
		}
	}
	for i := range images {
		if captured[i] != images[i] {
			t.Errorf("image %d does not match capture event order", i)
		}
	}
	if last := events[len(events)-1]; last.Kind != EventDone {
		t.Errorf("last event = %s, want done", last.Kind)
	}
}

func TestRun_CountdownEvents(t *testing.T) {
	cam := startedMock(t)
	var mu sync.Mutex
	countdown := map[int][]int{}
	seq := NewSequence(cam, nil, func(e Event) {
		if e.Kind == EventCountdown {
			mu.Lock()
			countdown[e.Shot] = append(countdown[e.Shot], e.Remaining)
			mu.Unlock()
		}
	})

	if _, err := seq.Run(context.Background(), fastParams()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for shot := 1; shot <= 3; shot++ {
		got := countdown[shot]
		want := []int{3, 2, 1, 0}
		if len(got) != len(want) {
			t.Fatalf("shot %d countdown = %v, want %v", shot, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("shot %d countdown = %v, want %v", shot, got, want)
				break
			}
		}
	}
}

func TestRun_StepOrderPerShot(t *testing.T) {
	cam := startedMock(t)
	var kinds []EventKind
	seq := NewSequence(cam, nil, func(e Event) {
		if e.Shot == 1 && e.Kind != EventCountdown {
			kinds = append(kinds, e.Kind)
		}
	})
	p := fastParams()
	p.Shots = 1
	if _, err := seq.Run(context.Background(), p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []EventKind{EventCapture, EventFlash, EventPreview, EventDone}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("events = %v, want %v", kinds, want)
			break
		}
	}
}

func TestRun_CaptureErrorAborts(t *testing.T) {
	cam := &failingCamera{Camera: startedMock(t), failAt: 2}
	seq := NewSequence(cam, nil, nil)

	images, err := seq.Run(context.Background(), fastParams())
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(images) != 1 {
		t.Errorf("got %d images before failure, want 1", len(images))
	}
}

func TestRun_NotRunningCamera(t *testing.T) {
	cam := camera.NewMock(64, 48, camera.Orientation{})
	seq := NewSequence(cam, nil, nil)
	_, err := seq.Run(context.Background(), fastParams())
	if !errors.Is(err, camera.ErrNotRunning) {
		t.Errorf("err = %v, want ErrNotRunning", err)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	cam := startedMock(t)
	seq := NewSequence(cam, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := seq.Run(ctx, fastParams())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRun_CancelDuringCountdown(t *testing.T) {
	cam := startedMock(t)
	ctx, cancel := context.WithCancel(context.Background())
	var cancelledAt time.Time
	seq := NewSequence(cam, nil, func(e Event) {
		if e.Kind == EventCountdown && e.Shot == 2 && cancelledAt.IsZero() {
			cancelledAt = time.Now()
			cancel()
		}
	})
	p := fastParams()
	p.Countdown = time.Second
	p.Tick = 500 * time.Millisecond

	images, err := seq.Run(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(images) != 1 {
		t.Errorf("got %d images, want 1", len(images))
	}
	if time.Since(cancelledAt) > 250*time.Millisecond {
		t.Error("cancellation did not interrupt the countdown")
	}
}

func TestRun_InvalidShots(t *testing.T) {
	seq := NewSequence(startedMock(t), nil, nil)
	p := fastParams()
	p.Shots = 0
	if _, err := seq.Run(context.Background(), p); err == nil {
		t.Error("expected error for zero shots")
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.Shots != 3 || p.Countdown != 3*time.Second || p.Tick != time.Second {
		t.Errorf("unexpected defaults: %+v", p)
	}
	if p.FlashDuration != 200*time.Millisecond || p.PreviewDuration != 500*time.Millisecond {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestRun_ZeroShownForOneTickBeforeCapture(t *testing.T) {
	cam := startedMock(t)
	const tick = 40 * time.Millisecond
	var zeroAt, capturedAt time.Time
	seq := NewSequence(cam, nil, func(e Event) {
		switch {
		case e.Kind == EventCountdown && e.Remaining == 0:
			zeroAt = time.Now()
		case e.Kind == EventCapture:
			capturedAt = time.Now()
		}
	})

	p := Params{Shots: 1, Countdown: tick, Tick: tick}
	if _, err := seq.Run(context.Background(), p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gap := capturedAt.Sub(zeroAt); gap < tick {
		t.Errorf("capture %v after the zero tick, want at least %v", gap, tick)
	}
}

func TestRun_NoCountdownCapturesImmediately(t *testing.T) {
	cam := startedMock(t)
	var countdowns int
	seq := NewSequence(cam, nil, func(e Event) {
		if e.Kind == EventCountdown {
			countdowns++
		}
	})

	start := time.Now()
	p := Params{Shots: 1, Countdown: 0, Tick: time.Hour}
	if _, err := seq.Run(context.Background(), p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if countdowns != 1 {
		t.Errorf("countdown events = %d, want a single zero", countdowns)
	}
	if time.Since(start) > time.Second {
		t.Error("a zero countdown should not wait a tick")
	}
}
