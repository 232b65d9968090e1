package button

import (
	"context"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// Button is a momentary push button wired between a GPIO pin and ground.
// The pin uses the internal pull-up, so it reads LOW while pressed.
type Button struct {
	gpio     gpio.Driver
	pin      int
	debounce time.Duration
	poll     time.Duration
}

// New configures pin as a pulled-up input. pin 0 disables the button:
// Wait then blocks until its context is done.
func New(g gpio.Driver, pin int, debounce, poll time.Duration) *Button {
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	if pin > 0 {
		_ = g.SetupPin(pin, gpio.InputPullUp)
	}
	return &Button{
		gpio:     g,
		pin:      pin,
		debounce: debounce,
		poll:     poll,
	}
}

// Enabled reports whether a pin is wired.
func (b *Button) Enabled() bool {
	return b.pin > 0
}

// Wait blocks until one full press (held LOW for at least the debounce
// interval, then released) or until ctx is done.
func (b *Button) Wait(ctx context.Context) error {
	if !b.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	var lowSince time.Time
	pressed := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		level, err := b.gpio.ReadPin(b.pin)
		if err != nil {
			return err
		}

		switch {
		case level == gpio.Low && lowSince.IsZero():
			lowSince = time.Now()
		case level == gpio.Low && !pressed && time.Since(lowSince) >= b.debounce:
			pressed = true
			debug.Verbose("Button: pin %d pressed", b.pin)
		case level == gpio.High && pressed:
			debug.Live("Button pressed")
			return nil
		case level == gpio.High:
			lowSince = time.Time{}
		}
	}
}

// Watch calls onPress for every press until ctx is done.
// onPress runs on the watching goroutine; a slow handler delays the next poll.
func (b *Button) Watch(ctx context.Context, onPress func()) error {
	for {
		if err := b.Wait(ctx); err != nil {
			return err
		}
		onPress()
	}
}
