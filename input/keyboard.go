package input

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// KeyEventType is down, up or focus loss
type KeyEventType int

const (
	KeyDown KeyEventType = iota
	KeyUp
	Blur
)

// KeyEvent is one raw key event from a KeySource. Key is the printable key
// name ("q", "1", "`"); modifier flags mark chords.
type KeyEvent struct {
	Type KeyEventType
	Key  string
	Ctrl bool
	Alt  bool
	Meta bool
}

func (e KeyEvent) modified() bool {
	return e.Ctrl || e.Alt || e.Meta
}

// KeySource delivers key events until the returned cancel func is called
type KeySource interface {
	SubscribeKeys(fn func(KeyEvent)) (cancel func())
}

// KeyboardConfig selects the layout. BaseNote is added to the values of
// relative layouts (chromatic). Zero fields take the defaults when the
// manager builds the adapter, so a chromatic base of note 0 cannot be
// selected that way.
type KeyboardConfig struct {
	Layout   string
	BaseNote int
}

func (KeyboardConfig) Kind() Kind { return KindKeyboard }

// DefaultKeyboardConfig is the piano layout, base note C4
func DefaultKeyboardConfig() KeyboardConfig {
	return KeyboardConfig{Layout: PianoLayout.Name, BaseNote: 60}
}

// KeyboardAdapter maps keys of one layout to notes or triggers
type KeyboardAdapter struct {
	layout   *Layout
	baseNote int
	emit     func(Event)
	logger   *zap.Logger

	// life is held shared by handle from the closed check until its
	// events are out, and exclusively by Close
	life sync.RWMutex

	mu     sync.Mutex
	held   map[string]int // key -> emitted value
	cancel func()
	closed bool
}

func newKeyboardAdapter(_ context.Context, env Env, cfg AdapterConfig) (Adapter, error) {
	kc := DefaultKeyboardConfig()
	if cfg != nil {
		c, ok := cfg.(KeyboardConfig)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrInvalidConfig, cfg)
		}
		kc = mergeKeyboardConfig(kc, c)
	}
	if env.Keys == nil {
		return nil, fmt.Errorf("%w: no key source", ErrUnsupportedHardware)
	}
	return NewKeyboardAdapter(env.Keys, kc, env.Emit, env.Logger)
}

func mergeKeyboardConfig(base, c KeyboardConfig) KeyboardConfig {
	if c.Layout != "" {
		base.Layout = c.Layout
	}
	if c.BaseNote != 0 {
		base.BaseNote = c.BaseNote
	}
	return base
}

// NewKeyboardAdapter subscribes to src; events go to emit
func NewKeyboardAdapter(src KeySource, cfg KeyboardConfig, emit func(Event), logger *zap.Logger) (*KeyboardAdapter, error) {
	layout, err := LayoutByName(cfg.Layout)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	k := &KeyboardAdapter{
		layout:   layout,
		baseNote: cfg.BaseNote,
		emit:     emit,
		logger:   logger,
		held:     make(map[string]int),
	}
	cancel := src.SubscribeKeys(k.handle)

	k.mu.Lock()
	k.cancel = cancel
	k.mu.Unlock()
	return k, nil
}

func (k *KeyboardAdapter) Kind() Kind { return KindKeyboard }

// Layout returns the layout fixed at construction
func (k *KeyboardAdapter) Layout() *Layout { return k.layout }

// Held returns a copy of the held key set
func (k *KeyboardAdapter) Held() map[string]int {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make(map[string]int, len(k.held))
	for key, v := range k.held {
		out[key] = v
	}
	return out
}

func (k *KeyboardAdapter) handle(ev KeyEvent) {
	// Emitting happens outside the lock; collect first.
	var out []Event
	ev.Key = strings.ToLower(ev.Key)

	k.life.RLock()
	defer k.life.RUnlock()

	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return
	}
	switch ev.Type {
	case KeyDown:
		out = k.keyDown(ev)
	case KeyUp:
		out = k.keyUp(ev)
	case Blur:
		out = k.blur()
	}
	k.mu.Unlock()

	for _, e := range out {
		k.emit(e)
	}
}

func (k *KeyboardAdapter) keyDown(ev KeyEvent) []Event {
	if ev.modified() {
		return nil
	}
	v, ok := k.layout.Lookup(ev.Key)
	if !ok {
		return nil
	}
	if _, down := k.held[ev.Key]; down {
		return nil // auto-repeat
	}

	switch k.layout.Kind {
	case LayoutTrigger:
		k.held[ev.Key] = v
		t := NewTrigger(v, 1)
		t.Key = ev.Key
		return []Event{t}
	default:
		note := k.noteFor(v)
		k.held[ev.Key] = note
		on := NewNoteOn(note, 1)
		on.Key = ev.Key
		k.logger.Debug("key down", zap.String("key", ev.Key), zap.Int("note", on.Note))
		return []Event{on}
	}
}

func (k *KeyboardAdapter) keyUp(ev KeyEvent) []Event {
	note, ok := k.held[ev.Key]
	if !ok {
		return nil
	}
	delete(k.held, ev.Key)
	if k.layout.Kind == LayoutTrigger {
		return nil
	}
	off := NewNoteOff(note)
	off.Key = ev.Key
	return []Event{off}
}

func (k *KeyboardAdapter) blur() []Event {
	var out []Event
	if k.layout.Kind != LayoutTrigger {
		for key, note := range k.held {
			off := NewNoteOff(note)
			off.Key = key
			out = append(out, off)
		}
	}
	if len(k.held) > 0 {
		k.logger.Debug("focus lost, releasing keys", zap.Int("held", len(k.held)))
	}
	k.held = make(map[string]int)
	return out
}

func (k *KeyboardAdapter) noteFor(v int) int {
	if k.layout.Kind == LayoutRelative {
		return k.baseNote + v
	}
	return v
}

// Close unsubscribes from the source and clears held keys. It waits for a
// key event being handled, so nothing is emitted once it returns; it must
// not be called from inside this adapter's emit.
func (k *KeyboardAdapter) Close() error {
	k.life.Lock()
	k.mu.Lock()
	cancel := k.cancel
	k.cancel = nil
	k.closed = true
	k.held = make(map[string]int)
	k.mu.Unlock()
	k.life.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}
