package booth

import (
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
)

// EventType names a booth event pushed to the kiosk UI.
type EventType string

const (
	EventPhase     EventType = "phase"
	EventCountdown           = EventType(capture.EventCountdown)
	EventCapture             = EventType(capture.EventCapture)
	EventFlash               = EventType(capture.EventFlash)
	EventPreview             = EventType(capture.EventPreview)
	EventDone                = EventType(capture.EventDone)
	EventStrip     EventType = "strip"
	EventShare     EventType = "share"
	EventWarning   EventType = "warning"
	EventError     EventType = "error"
)

// Event is one step of a session, serialized as JSON for SSE and websocket
// clients.
type Event struct {
	Type      EventType        `json:"type"`
	Phase     Phase            `json:"phase,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Shot      int              `json:"shot,omitempty"`
	Total     int              `json:"total,omitempty"`
	Remaining int              `json:"remaining"`
	Strip     strip.StatusKind `json:"strip,omitempty"`
	Saved     bool             `json:"saved,omitempty"`
	Target    string           `json:"target,omitempty"`
	Message   string           `json:"message,omitempty"`
}
