// Package gpio abstracts the few BCM pins the booth uses: the start button
// input and the flash light output.
package gpio

import (
	"sync"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// Level is the logical state of a pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// PinMode is how a pin is configured.
type PinMode int

const (
	Input PinMode = iota
	InputPullUp
	Output
)

func (m PinMode) String() string {
	switch m {
	case Input:
		return "input"
	case InputPullUp:
		return "input+pullup"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// Driver controls GPIO pins. RPiDriver talks to the hardware; MockDriver
// keeps levels in memory for development on a PC and for tests.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// NewDriver returns a MockDriver when mock is true, the go-rpio driver
// otherwise.
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return &MockDriver{}, nil
	}
	return NewRPiRealDriver()
}

// MockDriver logs every call and remembers pin levels. A pulled-up input
// reads HIGH until Set pulls it LOW, like a released button.
type MockDriver struct {
	mu     sync.Mutex
	levels map[int]Level
	writes int
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	if mode == InputPullUp {
		m.Set(pin, High)
	}
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.Set(pin, level)
	m.mu.Lock()
	m.writes++
	m.mu.Unlock()
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	m.mu.Lock()
	level := m.levels[pin]
	m.mu.Unlock()
	debug.GPIO("ReadPin", pin, level)
	return level, nil
}

// Set forces a pin level, e.g. to simulate a button press.
func (m *MockDriver) Set(pin int, level Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.levels == nil {
		m.levels = make(map[int]Level)
	}
	m.levels[pin] = level
}

// Writes returns how many times WritePin was called.
func (m *MockDriver) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}
