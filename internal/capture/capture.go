// Package capture acquires a media input device and records one contiguous
// segment per question. A Capturer owns the device stream exclusively between
// Start and Stop; Stop releases every track on all exit paths so the
// camera/microphone indicator never stays lit.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/careerboost/interviewlab/internal/model"
)

var (
	// ErrDeviceUnavailable reports that device permission was denied or no
	// device exists. Non-fatal: the caller may retry.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrCaptureActive reports an attempt to start a second capture while one
	// is already running.
	ErrCaptureActive = errors.New("capture already active")
)

// Track is a single device track (one microphone or camera feed).
type Track interface {
	Kind() string
	Stop()
}

// Stream is an acquired device stream.
type Stream interface {
	Tracks() []Track
}

// Device grants access to a platform audio/video input.
type Device interface {
	Acquire(ctx context.Context, kind model.MediaKind) (Stream, error)
}

// PreviewSink receives the live stream for display while a video capture is
// running.
type PreviewSink interface {
	Attach(Stream)
	Detach()
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithPreview attaches a preview sink used for video captures.
func WithPreview(p PreviewSink) Option {
	return func(c *Capturer) { c.preview = p }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Capturer) { c.clock = clock }
}

// Capturer records one answer segment at a time. At most one capture is
// active; the stream handle is owned exclusively between Start and Stop.
type Capturer struct {
	device  Device
	preview PreviewSink

	mu     sync.Mutex
	stream Stream
	kind   model.MediaKind
	chunks [][]byte
	clock  func() time.Time
}

// New creates a Capturer backed by the given device.
func New(device Device, opts ...Option) *Capturer {
	c := &Capturer{
		device: device,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start acquires the device and begins a new recording. It fails with
// ErrCaptureActive if a capture is already running and with
// ErrDeviceUnavailable if the device cannot be acquired.
func (c *Capturer) Start(ctx context.Context, kind model.MediaKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return ErrCaptureActive
	}

	stream, err := c.device.Acquire(ctx, kind)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	if kind == model.MediaVideo && c.preview != nil {
		c.preview.Attach(stream)
	}

	c.stream = stream
	c.kind = kind
	c.chunks = nil
	slog.Debug("capture started", "kind", kind, "tracks", len(stream.Tracks()))
	return nil
}

// Push appends recorded data to the active capture. Empty chunks and chunks
// arriving while no capture is active are dropped.
func (c *Capturer) Push(data []byte) {
	if len(data) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.chunks = append(c.chunks, buf)
}

// Stop finalizes the active recording into a single segment, stops every
// device track, and detaches the preview. Idempotent: with no active capture
// it returns ok=false and does nothing.
func (c *Capturer) Stop() (model.RecordingSegment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return model.RecordingSegment{}, false
	}

	total := 0
	for _, ch := range c.chunks {
		total += len(ch)
	}
	blob := make([]byte, 0, total)
	for _, ch := range c.chunks {
		blob = append(blob, ch...)
	}

	for _, t := range c.stream.Tracks() {
		t.Stop()
	}
	if c.kind == model.MediaVideo && c.preview != nil {
		c.preview.Detach()
	}

	seg := model.RecordingSegment{
		Data:       blob,
		Kind:       c.kind,
		CapturedAt: c.clock(),
	}

	c.stream = nil
	c.chunks = nil
	slog.Debug("capture stopped", "kind", seg.Kind, "bytes", len(seg.Data))
	return seg, true
}

// Active reports whether a capture is currently running.
func (c *Capturer) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}
