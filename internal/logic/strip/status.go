package strip

import (
	"fmt"
	"image"
	"sync"
)

// StatusKind is the processing state of the current photostrip.
type StatusKind int

const (
	NotStarted StatusKind = iota
	InProgress
	Success
	Failed
)

func (k StatusKind) String() string {
	switch k {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MarshalText makes the kind readable in JSON payloads.
func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the names produced by MarshalText.
func (k *StatusKind) UnmarshalText(b []byte) error {
	for _, c := range []StatusKind{NotStarted, InProgress, Success, Failed} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown photostrip status %q", b)
}

// Status is a snapshot of the photostrip state. Image is only set on
// Success and Err only on Failed. Saved and SaveErr report the library
// write; they never change Kind.
type Status struct {
	Kind    StatusKind
	Image   *image.RGBA
	Err     error
	Saved   bool
	SaveErr error
}

const subscriberBuffer = 16

// Tracker guards the status and enforces
// NotStarted -> InProgress -> {Success, Failed}. Reset returns to
// NotStarted from anywhere. Every change is published to subscribers in
// order; a subscriber that falls behind misses updates.
type Tracker struct {
	mu     sync.Mutex
	status Status
	subs   map[int]chan Status
	nextID int
}

// NewTracker returns a tracker in NotStarted.
func NewTracker() *Tracker {
	return &Tracker{subs: make(map[int]chan Status)}
}

// Status returns the current status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Subscribe returns a channel receiving every subsequent status and a
// function that closes it.
func (t *Tracker) Subscribe() (<-chan Status, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	ch := make(chan Status, subscriberBuffer)
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}

// Begin moves NotStarted to InProgress.
func (t *Tracker) Begin() error {
	return t.transition(NotStarted, Status{Kind: InProgress})
}

// Succeed moves InProgress to Success with the rendered strip.
func (t *Tracker) Succeed(img *image.RGBA, saved bool, saveErr error) error {
	return t.transition(InProgress, Status{Kind: Success, Image: img, Saved: saved, SaveErr: saveErr})
}

// Fail moves InProgress to Failed.
func (t *Tracker) Fail(err error) error {
	return t.transition(InProgress, Status{Kind: Failed, Err: err})
}

// Reset returns to NotStarted and drops the strip.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setLocked(Status{Kind: NotStarted})
}

func (t *Tracker) transition(from StatusKind, to Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Kind != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.status.Kind, to.Kind)
	}
	t.setLocked(to)
	return nil
}

func (t *Tracker) setLocked(s Status) {
	t.status = s
	for _, ch := range t.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
