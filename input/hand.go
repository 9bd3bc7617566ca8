package input

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"go-instrument/music"
)

// Landmark indices of the 21-point hand skeleton
const (
	LandmarkWrist     = 0
	LandmarkThumbTip  = 4
	LandmarkIndexTip  = 8
	LandmarkMiddleTip = 12
	LandmarkRingTip   = 16
	LandmarkPinkyTip  = 20
	NumLandmarks      = 21
)

// HandFrame is one tracker result: up to one hand of 21 points, normalized
// to 0-1 and mirrored horizontally (selfie view).
type HandFrame struct {
	Hands [][]Point
}

// HandTracker produces frames at its own cadence until closed
type HandTracker interface {
	Start(onFrame func(HandFrame)) error
	Close() error
}

// Camera is the frame source feeding a tracker
type Camera interface {
	Start(ctx context.Context) error
	Stop() error
}

// Surface is a drawable area owned by the hand adapter
type Surface interface {
	Draw(frame HandFrame, lineY float64)
	Remove()
}

// Display creates surfaces. Invisible surfaces back the video capture.
type Display interface {
	NewSurface(name string, visible bool) (Surface, error)
}

// HandHost bundles the hand-tracking collaborators. NewTracker receives the
// started camera so trackers that read the camera's output can find it.
type HandHost struct {
	NewCamera  func() (Camera, error)
	NewTracker func(cam Camera) (HandTracker, error)
	Display    Display
}

// HandMode selects the firing rule
type HandMode string

const (
	// HandCross fires once when a fingertip moves from above to at/below the line
	HandCross HandMode = "cross"
	// HandContinuous fires every frame a fingertip is at/below the line
	HandContinuous HandMode = "continuous"
)

func ParseHandMode(s string) (HandMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cross", "":
		return HandCross, nil
	case "continuous":
		return HandContinuous, nil
	}
	return "", fmt.Errorf("%w: hand mode %q", ErrInvalidConfig, s)
}

const handVelocity = 0.7

// HandConfig tunes the crossing detector. Zero fields take the defaults:
// LineY must lie strictly inside (0, 1) to count, since a line on the frame
// edge can never be crossed, and a range with both ends zero means 48-84.
type HandConfig struct {
	LineY      float64
	Fingertips []int
	Mode       HandMode
	MinNote    int
	MaxNote    int
}

func (HandConfig) Kind() Kind { return KindHand }

func DefaultHandConfig() HandConfig {
	return HandConfig{
		LineY:      0.5,
		Fingertips: []int{LandmarkIndexTip},
		Mode:       HandCross,
		MinNote:    defaultMinNote,
		MaxNote:    defaultMaxNote,
	}
}

// HandAdapter fires notes when fingertips cross a horizontal trigger line
type HandAdapter struct {
	cfg    HandConfig
	emit   func(Event)
	logger *zap.Logger

	// life is held shared by onFrame from the closed check until the frame
	// is drawn and its events are out, and exclusively by Close
	life sync.RWMutex

	mu      sync.Mutex
	closed  bool
	lastY   map[int]float64 // fingertip landmark -> previous y
	camera  Camera
	tracker HandTracker
	video   Surface
	overlay Surface
}

func newHandAdapter(ctx context.Context, env Env, cfg AdapterConfig) (Adapter, error) {
	hc := DefaultHandConfig()
	if cfg != nil {
		c, ok := cfg.(HandConfig)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrInvalidConfig, cfg)
		}
		hc = mergeHandConfig(hc, c)
	}
	if env.Hand == nil || env.Hand.NewTracker == nil {
		return nil, fmt.Errorf("%w: no hand tracker", ErrUnsupportedHardware)
	}
	return NewHandAdapter(ctx, *env.Hand, hc, env.Emit, env.Logger)
}

func mergeHandConfig(base, c HandConfig) HandConfig {
	if c.LineY > 0 && c.LineY < 1 {
		base.LineY = c.LineY
	}
	if len(c.Fingertips) > 0 {
		base.Fingertips = c.Fingertips
	}
	if c.Mode != "" {
		base.Mode = c.Mode
	}
	if c.MinNote != 0 || c.MaxNote != 0 {
		base.MinNote, base.MaxNote = c.MinNote, c.MaxNote
	}
	return base
}

// NewHandAdapter creates the surfaces, starts the camera and the tracker.
// If any step fails everything acquired so far is released.
func NewHandAdapter(ctx context.Context, host HandHost, cfg HandConfig, emit func(Event), logger *zap.Logger) (a *HandAdapter, err error) {
	mode, err := ParseHandMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	if logger == nil {
		logger = zap.NewNop()
	}
	a = &HandAdapter{
		cfg:    cfg,
		emit:   emit,
		logger: logger,
		lastY:  make(map[int]float64),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if host.Display != nil {
		if a.video, err = host.Display.NewSurface("hand-video", false); err != nil {
			return a, fmt.Errorf("video surface: %w", err)
		}
		if a.overlay, err = host.Display.NewSurface("hand-overlay", true); err != nil {
			return a, fmt.Errorf("overlay surface: %w", err)
		}
	}

	if host.NewCamera != nil {
		if a.camera, err = host.NewCamera(); err != nil {
			return a, classify("camera", err, ErrUnsupportedHardware)
		}
		if err = a.camera.Start(ctx); err != nil {
			return a, classify("camera start", err, ErrPermissionDenied)
		}
	}

	if host.NewTracker == nil {
		return a, fmt.Errorf("%w: no hand tracker", ErrUnsupportedHardware)
	}
	if a.tracker, err = host.NewTracker(a.camera); err != nil {
		return a, classify("tracker", err, ErrUnsupportedHardware)
	}
	if err = a.tracker.Start(a.onFrame); err != nil {
		return a, classify("tracker start", err, ErrUnsupportedHardware)
	}
	return a, nil
}

// classify keeps taxonomy errors and files anything else under fallback
func classify(what string, err, fallback error) error {
	for _, known := range []error{ErrUnsupportedHardware, ErrPermissionDenied, ErrNoDeviceFound} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", what, err)
		}
	}
	return fmt.Errorf("%s: %w: %v", what, fallback, err)
}

func (a *HandAdapter) Kind() Kind { return KindHand }

func (a *HandAdapter) LineY() float64 { return a.cfg.LineY }

// ProcessFrame runs the crossing detector over one frame. Trackers call it
// through the callback given to Start.
func (a *HandAdapter) ProcessFrame(frame HandFrame) {
	a.onFrame(frame)
}

func (a *HandAdapter) onFrame(frame HandFrame) {
	a.life.RLock()
	defer a.life.RUnlock()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	var out []Event
	if len(frame.Hands) == 0 {
		// hand left the view; start fresh when it returns
		a.lastY = make(map[int]float64)
	} else {
		out = a.detect(frame.Hands[0])
	}
	overlay := a.overlay
	a.mu.Unlock()

	if overlay != nil {
		overlay.Draw(frame, a.cfg.LineY)
	}
	for _, ev := range out {
		a.emit(ev)
	}
}

func (a *HandAdapter) detect(hand []Point) []Event {
	var out []Event
	line := a.cfg.LineY
	for _, idx := range a.cfg.Fingertips {
		if idx < 0 || idx >= len(hand) {
			continue
		}
		p := hand[idx]
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		x := music.Clamp01(1 - p.X) // un-mirror
		y := music.Clamp01(p.Y)

		prev, had := a.lastY[idx]
		a.lastY[idx] = y

		var fire bool
		switch a.cfg.Mode {
		case HandCross:
			fire = had && prev < line && y >= line
		case HandContinuous:
			fire = y >= line
		}
		if !fire {
			continue
		}
		note := music.NoteFromFraction(x, a.cfg.MinNote, a.cfg.MaxNote)
		a.logger.Debug("line crossed", zap.Int("landmark", idx), zap.Int("note", note))
		out = append(out, NewNoteOnAt(note, handVelocity, x, y))
	}
	return out
}

// Close stops the camera, closes the tracker and removes both surfaces.
// A frame already being processed finishes first; none is acted on after
// Close returns. It is safe after a partial construction and safe to
// repeat, but must not be called from inside the adapter's emit.
func (a *HandAdapter) Close() error {
	a.life.Lock()
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.life.Unlock()
		return nil
	}
	a.closed = true
	camera, tracker := a.camera, a.tracker
	video, overlay := a.video, a.overlay
	a.camera, a.tracker, a.video, a.overlay = nil, nil, nil, nil
	a.lastY = make(map[int]float64)
	a.mu.Unlock()
	a.life.Unlock()

	var err error
	if camera != nil {
		err = multierr.Append(err, camera.Stop())
	}
	if tracker != nil {
		err = multierr.Append(err, tracker.Close())
	}
	if video != nil {
		video.Remove()
	}
	if overlay != nil {
		overlay.Remove()
	}
	return err
}
