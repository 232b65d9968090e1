package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/cjeanneret/BoothGo/internal/logic/strip"
)

// MIMEType of every attachment.
const MIMEType = "image/jpeg"

var (
	// ErrNotConfigured is returned by a target whose transport is not set up.
	ErrNotConfigured = errors.New("share target not configured")
	// ErrInvalidRecipient is returned for a malformed address or number.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrUnknownTarget is returned by Registry.Get for an unregistered name.
	ErrUnknownTarget = errors.New("unknown share target")
)

// Attachment is an encoded image ready to be sent.
type Attachment struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Target sends attachments to a recipient (email address, phone number).
type Target interface {
	Name() string
	// Configured reports whether Send can work at all.
	Configured() bool
	Send(ctx context.Context, recipient string, atts []Attachment) error
}

// FileName returns "<prefix>-<index+1>-<yyyy-MM-dd-HH-mm>.jpg".
func FileName(prefix string, index int, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s.jpg", prefix, index+1, now.Format("2006-01-02-15-04"))
}

// BuildAttachments encodes the strip followed by the originals as full
// quality JPEGs. Nil images are skipped; the kept attachments are
// numbered from 1 without gaps.
func BuildAttachments(stripImg image.Image, originals []image.Image, prefix string, now time.Time) ([]Attachment, error) {
	images := make([]image.Image, 0, len(originals)+1)
	if stripImg != nil {
		images = append(images, stripImg)
	}
	images = append(images, originals...)

	atts := make([]Attachment, 0, len(images))
	for _, img := range images {
		if img == nil {
			continue
		}
		n := len(atts)
		var buf bytes.Buffer
		if err := strip.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode attachment %d: %w", n+1, err)
		}
		atts = append(atts, Attachment{
			Filename: FileName(prefix, n, now),
			MIMEType: MIMEType,
			Data:     buf.Bytes(),
		})
	}
	return atts, nil
}

// Registry looks targets up by name.
type Registry struct {
	targets map[string]Target
}

// NewRegistry registers targets under their Name.
func NewRegistry(targets ...Target) *Registry {
	r := &Registry{targets: make(map[string]Target)}
	for _, t := range targets {
		r.targets[t.Name()] = t
	}
	return r
}

// Get returns the target called name.
func (r *Registry) Get(name string) (Target, error) {
	t, ok := r.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	return t, nil
}

// Names lists registered targets in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.targets))
	for n := range r.targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Available lists the names of configured targets.
func (r *Registry) Available() []string {
	var names []string
	for _, n := range r.Names() {
		if r.targets[n].Configured() {
			names = append(names, n)
		}
	}
	return names
}
