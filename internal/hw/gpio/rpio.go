package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// RPiDriver drives BCM pins through go-rpio (/dev/gpiomem).
type RPiDriver struct {
	mu    sync.Mutex
	modes map[int]PinMode
}

// NewRPiRealDriver maps GPIO memory. It fails off a Raspberry Pi or
// without access to /dev/gpiomem.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w (are you running on a Raspberry Pi?)", err)
	}
	debug.Verbose("GPIO memory mapped")
	return &RPiDriver{modes: make(map[int]PinMode)}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	p := rpio.Pin(pin)
	switch mode {
	case Input:
		p.Input()
		p.PullOff()
	case InputPullUp:
		p.Input()
		p.PullUp()
	case Output:
		p.Output()
		p.Low()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}

	r.mu.Lock()
	r.modes[pin] = mode
	r.mu.Unlock()
	return nil
}

func (r *RPiDriver) mode(pin int) (PinMode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modes[pin]
	return m, ok
}

// WritePin refuses pins that were not set up as outputs, so a wiring
// mistake in the config cannot drive the button input.
func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	if m, ok := r.mode(pin); !ok || m != Output {
		return fmt.Errorf("pin %d is not an output", pin)
	}
	if level == High {
		rpio.Pin(pin).High()
	} else {
		rpio.Pin(pin).Low()
	}
	return nil
}

func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	if _, ok := r.mode(pin); !ok {
		return Low, fmt.Errorf("pin %d is not set up", pin)
	}
	state := rpio.Pin(pin).Read()
	debug.GPIO("ReadPin", pin, state)
	return Level(state == rpio.High), nil
}

// Close switches outputs off, returns every pin used to a floating input
// and unmaps GPIO memory.
func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")
	r.mu.Lock()
	defer r.mu.Unlock()
	for pin, mode := range r.modes {
		p := rpio.Pin(pin)
		if mode == Output {
			p.Low()
		}
		p.Input()
		p.PullOff()
		delete(r.modes, pin)
	}
	return rpio.Close()
}
