package input

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"go-instrument/music"
)

// PointerEventType is press, move or release
type PointerEventType int

const (
	PointerDown PointerEventType = iota
	PointerMove
	PointerUp
)

// PointerEvent is a raw mouse or touch event in surface units. Touches, if
// any, win over Mouse. Width and Height give the surface size used to
// normalize positions.
type PointerEvent struct {
	Type    PointerEventType
	Mouse   Point
	Touches []Point
	Width   float64
	Height  float64
}

// position coalesces touch and mouse into one normalized point
func (e PointerEvent) position() Point {
	p := e.Mouse
	if len(e.Touches) > 0 {
		p = e.Touches[0]
	}
	return Point{
		X: music.Clamp01(music.MapRange(p.X, 0, e.Width, 0, 1)),
		Y: music.Clamp01(music.MapRange(p.Y, 0, e.Height, 0, 1)),
	}
}

// PointerSource delivers pointer events until cancel is called
type PointerSource interface {
	SubscribePointer(fn func(PointerEvent)) (cancel func())
}

// PointerMode selects how presses and moves become events
type PointerMode string

const (
	PointerTrigger    PointerMode = "trigger"
	PointerContinuous PointerMode = "continuous"
	PointerXYPad      PointerMode = "xy-pad"
)

// ParsePointerMode accepts "trigger", "continuous" and "xy-pad" ("xypad")
func ParsePointerMode(s string) (PointerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trigger":
		return PointerTrigger, nil
	case "continuous":
		return PointerContinuous, nil
	case "xy-pad", "xypad", "xy":
		return PointerXYPad, nil
	}
	return "", fmt.Errorf("%w: pointer mode %q", ErrInvalidConfig, s)
}

const (
	defaultMinNote = 48
	defaultMaxNote = 84

	continuousVelocity = 0.7
	continuousPressure = 0.7
	xyPressed          = 1.0
	xyReleased         = 0.5
	minTriggerVelocity = 0.2
	maxTriggerVelocity = 1.0
)

// PointerConfig selects the mode and note range. An empty Mode and a range
// with both ends zero take the defaults; MinNote 0 is honoured when MaxNote
// is set.
type PointerConfig struct {
	Mode    PointerMode
	MinNote int
	MaxNote int
}

func (PointerConfig) Kind() Kind { return KindPointer }

func DefaultPointerConfig() PointerConfig {
	return PointerConfig{Mode: PointerTrigger, MinNote: defaultMinNote, MaxNote: defaultMaxNote}
}

// PointerAdapter turns mouse/touch presses and moves into events
type PointerAdapter struct {
	cfg    PointerConfig
	emit   func(Event)
	logger *zap.Logger

	life sync.RWMutex // shared by handle through emit, exclusive in Close

	mu      sync.Mutex
	pressed bool
	cancel  func()
	closed  bool
}

func newPointerAdapter(_ context.Context, env Env, cfg AdapterConfig) (Adapter, error) {
	pc := DefaultPointerConfig()
	if cfg != nil {
		c, ok := cfg.(PointerConfig)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrInvalidConfig, cfg)
		}
		pc = mergePointerConfig(pc, c)
	}
	if env.Pointer == nil {
		return nil, fmt.Errorf("%w: no pointer source", ErrUnsupportedHardware)
	}
	return NewPointerAdapter(env.Pointer, pc, env.Emit, env.Logger)
}

func mergePointerConfig(base, c PointerConfig) PointerConfig {
	if c.Mode != "" {
		base.Mode = c.Mode
	}
	if c.MinNote != 0 || c.MaxNote != 0 {
		base.MinNote, base.MaxNote = c.MinNote, c.MaxNote
	}
	return base
}

func NewPointerAdapter(src PointerSource, cfg PointerConfig, emit func(Event), logger *zap.Logger) (*PointerAdapter, error) {
	mode, err := ParsePointerMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PointerAdapter{cfg: cfg, emit: emit, logger: logger}
	cancel := src.SubscribePointer(p.handle)

	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	return p, nil
}

func (p *PointerAdapter) Kind() Kind { return KindPointer }

func (p *PointerAdapter) Mode() PointerMode { return p.cfg.Mode }

// Pressed reports whether the pointer is currently held down
func (p *PointerAdapter) Pressed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pressed
}

func (p *PointerAdapter) handle(ev PointerEvent) {
	p.life.RLock()
	defer p.life.RUnlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	pos := ev.position()
	var out Event
	switch p.cfg.Mode {
	case PointerTrigger:
		out = p.trigger(ev.Type, pos)
	case PointerContinuous:
		out = p.continuous(ev.Type, pos)
	case PointerXYPad:
		out = p.xyPad(ev.Type, pos)
	}
	p.mu.Unlock()

	if out != nil {
		p.emit(out)
	}
}

func (p *PointerAdapter) note(x float64) int {
	return music.NoteFromFraction(x, p.cfg.MinNote, p.cfg.MaxNote)
}

// trigger: one NoteOn per press, louder towards the top
func (p *PointerAdapter) trigger(t PointerEventType, pos Point) Event {
	if t != PointerDown {
		return nil
	}
	vel := music.Clamp(music.MapRange(pos.Y, 0, 1, maxTriggerVelocity, minTriggerVelocity),
		minTriggerVelocity, maxTriggerVelocity)
	return NewNoteOnAt(p.note(pos.X), vel, pos.X, pos.Y)
}

func (p *PointerAdapter) continuous(t PointerEventType, pos Point) Event {
	switch t {
	case PointerDown:
		p.pressed = true
		return NewNoteOnAt(p.note(pos.X), continuousVelocity, pos.X, pos.Y)
	case PointerMove:
		if !p.pressed {
			return nil
		}
		return NewContinuous(pos.X, pos.Y, continuousPressure)
	case PointerUp:
		if !p.pressed {
			return nil
		}
		p.pressed = false
		return NewAnonymousNoteOff()
	}
	return nil
}

func (p *PointerAdapter) xyPad(t PointerEventType, pos Point) Event {
	switch t {
	case PointerDown:
		p.pressed = true
	case PointerUp:
		p.pressed = false
	case PointerMove:
		pressure := xyReleased
		if p.pressed {
			pressure = xyPressed
		}
		return NewContinuous(pos.X, pos.Y, pressure)
	}
	return nil
}

// Close waits for an event being handled; nothing is emitted after it
// returns.
func (p *PointerAdapter) Close() error {
	p.life.Lock()
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.closed = true
	p.pressed = false
	p.mu.Unlock()
	p.life.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}
