package light

import (
	"context"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// Flash drives a flash light (LED panel relay) from one output pin.
// HIGH turns the light on.
type Flash struct {
	gpio gpio.Driver
	pin  int
}

// NewFlash configures pin as an output and switches the light off.
// pin 0 means no light is wired; Pulse then only waits.
func NewFlash(g gpio.Driver, pin int) *Flash {
	if pin > 0 {
		_ = g.SetupPin(pin, gpio.Output)
		_ = g.WritePin(pin, gpio.Low)
	}
	return &Flash{gpio: g, pin: pin}
}

// Pulse turns the light on for d. The light is switched off even when ctx
// is cancelled mid-pulse.
func (f *Flash) Pulse(ctx context.Context, d time.Duration) error {
	if f.pin > 0 {
		debug.Verbose("Flash: on (pin %d)", f.pin)
		if err := f.gpio.WritePin(f.pin, gpio.High); err != nil {
			return err
		}
		defer func() {
			_ = f.gpio.WritePin(f.pin, gpio.Low)
			debug.Verbose("Flash: off (pin %d)", f.pin)
		}()
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
