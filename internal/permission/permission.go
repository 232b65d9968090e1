package permission

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// State is the authorization state of one resource.
type State int

const (
	NotDetermined State = iota
	Granted
	Denied
)

func (s State) String() string {
	switch s {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "not_determined"
	}
}

// Oracle answers and requests authorization for the camera and the photo
// library.
type Oracle interface {
	Camera(ctx context.Context) State
	Library(ctx context.Context) State
	RequestCamera(ctx context.Context) State
	RequestLibrary(ctx context.Context) State
}

// Gate turns oracle states into the granted/denied answers the rest of the
// booth needs. The last library answer is cached so the compositor can ask
// without a context.
type Gate struct {
	oracle Oracle

	mu      sync.RWMutex
	library State
}

// NewGate wraps oracle.
func NewGate(oracle Oracle) *Gate {
	return &Gate{oracle: oracle}
}

// CheckCamera returns true when camera access is granted, requesting it
// first if the state is not determined yet.
func (g *Gate) CheckCamera(ctx context.Context) bool {
	state := g.oracle.Camera(ctx)
	if state == NotDetermined {
		state = g.oracle.RequestCamera(ctx)
	}
	debug.Verbose("Permission: camera %s", state)
	return state == Granted
}

// CheckLibrary is CheckCamera for the photo library.
func (g *Gate) CheckLibrary(ctx context.Context) bool {
	state := g.oracle.Library(ctx)
	if state == NotDetermined {
		state = g.oracle.RequestLibrary(ctx)
	}
	g.mu.Lock()
	g.library = state
	g.mu.Unlock()
	debug.Verbose("Permission: library %s", state)
	return state == Granted
}

// LibraryGranted reports the last library answer seen by CheckLibrary.
func (g *Gate) LibraryGranted() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.library == Granted
}

// AllGranted checks both resources.
func (g *Gate) AllGranted(ctx context.Context) bool {
	camera := g.CheckCamera(ctx)
	library := g.CheckLibrary(ctx)
	return camera && library
}

// Static is an Oracle with fixed answers. Requests resolve NotDetermined
// to Granted.
type Static struct {
	CameraState  State
	LibraryState State
}

func (s Static) Camera(context.Context) State  { return s.CameraState }
func (s Static) Library(context.Context) State { return s.LibraryState }

func (s Static) RequestCamera(context.Context) State {
	return resolve(s.CameraState)
}

func (s Static) RequestLibrary(context.Context) State {
	return resolve(s.LibraryState)
}

func resolve(s State) State {
	if s == NotDetermined {
		return Granted
	}
	return s
}

// Probe asks the hardware and the filesystem. The camera is granted when
// the opener succeeds; the library when its directory exists and accepts
// writes. Requesting the library creates the directory.
type Probe struct {
	OpenCamera func(ctx context.Context) error
	LibraryDir string
}

func (p Probe) Camera(ctx context.Context) State {
	if p.OpenCamera == nil {
		return Denied
	}
	if err := p.OpenCamera(ctx); err != nil {
		debug.Warn("camera unavailable: %v", err)
		return Denied
	}
	return Granted
}

func (p Probe) RequestCamera(ctx context.Context) State {
	return p.Camera(ctx)
}

func (p Probe) Library(ctx context.Context) State {
	info, err := os.Stat(p.LibraryDir)
	if os.IsNotExist(err) {
		return NotDetermined
	}
	if err != nil || !info.IsDir() {
		return Denied
	}
	if err := checkWritable(p.LibraryDir); err != nil {
		debug.Warn("library not writable: %v", err)
		return Denied
	}
	return Granted
}

func (p Probe) RequestLibrary(ctx context.Context) State {
	if err := os.MkdirAll(p.LibraryDir, 0o755); err != nil {
		debug.Warn("create library dir: %v", err)
		return Denied
	}
	return p.Library(ctx)
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("write probe in %s: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}
