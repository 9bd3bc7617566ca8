// Package input turns keyboard, pointer, MIDI and hand-tracking input into
// a small vocabulary of musical events and relays them to subscribers.
package input

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Kind identifies an input adapter type
type Kind int

const (
	KindKeyboard Kind = iota
	KindPointer
	KindMIDI
	KindHand
)

// Kinds lists every adapter kind in enable/disable order
var Kinds = []Kind{KindKeyboard, KindPointer, KindMIDI, KindHand}

func (k Kind) String() string {
	switch k {
	case KindKeyboard:
		return "keyboard"
	case KindPointer:
		return "pointer"
	case KindMIDI:
		return "midi"
	case KindHand:
		return "hand"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the String() names plus the old browser-era aliases
// ("mouse", "touch", "handtracking").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keyboard":
		return KindKeyboard, nil
	case "pointer", "mouse", "touch":
		return KindPointer, nil
	case "midi":
		return KindMIDI, nil
	case "hand", "handtracking", "hand-tracking":
		return KindHand, nil
	}
	return 0, fmt.Errorf("%w: input %q", ErrUnknownKind, s)
}

func (k Kind) valid() bool {
	return k >= KindKeyboard && k <= KindHand
}

// Adapter owns the hooks of one input source. Close releases all of them;
// it is idempotent and no event is emitted once it returns.
type Adapter interface {
	Kind() Kind
	Close() error
}

// AdapterConfig is implemented by KeyboardConfig, PointerConfig,
// MIDIConfig and HandConfig.
type AdapterConfig interface {
	Kind() Kind
}

// Env is what a Factory gets to build an adapter with
type Env struct {
	Emit    func(Event)
	Logger  *zap.Logger
	Keys    KeySource
	Pointer PointerSource
	MIDI    MIDIHost
	Hand    *HandHost
}

// Factory constructs an adapter. On error it must release anything it acquired.
type Factory func(ctx context.Context, env Env, cfg AdapterConfig) (Adapter, error)

// Option configures a Manager
type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithKeySource(src KeySource) Option {
	return func(m *Manager) { m.env.Keys = src }
}

func WithPointerSource(src PointerSource) Option {
	return func(m *Manager) { m.env.Pointer = src }
}

func WithMIDIHost(h MIDIHost) Option {
	return func(m *Manager) { m.env.MIDI = h }
}

func WithHandTracking(h *HandHost) Option {
	return func(m *Manager) { m.env.Hand = h }
}

// WithFactory replaces the constructor used for kind
func WithFactory(kind Kind, f Factory) Option {
	return func(m *Manager) { m.factories[kind] = f }
}

type listener struct {
	id int
	fn func(Event)
}

// Manager is the input event bus. It holds at most one live adapter per
// kind and fans events out to subscribers synchronously.
type Manager struct {
	logger    *zap.Logger
	env       Env
	factories map[Kind]Factory

	mu       sync.Mutex // adapter lifecycle
	adapters map[Kind]Adapter

	lmu       sync.RWMutex
	listeners []listener
	nextID    int
}

// NewManager creates a manager with the built-in adapter factories
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger: zap.NewNop(),
		factories: map[Kind]Factory{
			KindKeyboard: newKeyboardAdapter,
			KindPointer:  newPointerAdapter,
			KindMIDI:     newMIDIAdapter,
			KindHand:     newHandAdapter,
		},
		adapters: make(map[Kind]Adapter),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.env.Emit = m.Emit
	m.env.Logger = m.logger
	return m
}

// Enable starts the adapter for kind. A nil cfg selects defaults. Enabling
// a kind that is already live reuses the running adapter. On failure the
// kind stays disabled and the error wraps one of the Err* sentinels.
func (m *Manager) Enable(ctx context.Context, kind Kind, cfg AdapterConfig) error {
	if !kind.valid() {
		return fmt.Errorf("%w: input %d", ErrUnknownKind, int(kind))
	}
	if cfg != nil && cfg.Kind() != kind {
		return fmt.Errorf("%w: %s config passed for %s", ErrInvalidConfig, cfg.Kind(), kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.adapters[kind]; ok {
		m.logger.Debug("input already active, reusing", zap.Stringer("kind", kind))
		return nil
	}

	factory, ok := m.factories[kind]
	if !ok || factory == nil {
		return fmt.Errorf("%w: input %s", ErrUnknownKind, kind)
	}

	env := m.env
	env.Logger = m.logger.With(zap.Stringer("input", kind))
	a, err := factory(ctx, env, cfg)
	if err != nil {
		m.logger.Warn("enable input failed", zap.Stringer("kind", kind), zap.Error(err))
		return fmt.Errorf("enable %s: %w", kind, err)
	}
	m.adapters[kind] = a
	m.logger.Info("input enabled", zap.Stringer("kind", kind))
	return nil
}

// Disable tears down the adapter for kind; no-op if it is not live
func (m *Manager) Disable(kind Kind) {
	m.mu.Lock()
	a, ok := m.adapters[kind]
	delete(m.adapters, kind)
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := a.Close(); err != nil {
		m.logger.Warn("input close", zap.Stringer("kind", kind), zap.Error(err))
	}
	m.logger.Info("input disabled", zap.Stringer("kind", kind))
}

// DisableAll disables every live adapter in Kinds order
func (m *Manager) DisableAll() {
	for _, k := range Kinds {
		m.Disable(k)
	}
}

func (m *Manager) IsActive(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.adapters[kind]
	return ok
}

// ListActive returns the live kinds, sorted
func (m *Manager) ListActive() []Kind {
	m.mu.Lock()
	out := make([]Kind, 0, len(m.adapters))
	for k := range m.adapters {
		out = append(out, k)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Subscribe registers fn for every emitted event. The returned func
// removes it; calling it more than once is harmless.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.lmu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	m.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.lmu.Lock()
			defer m.lmu.Unlock()
			for i, l := range m.listeners {
				if l.id == id {
					// fresh slice so in-flight snapshots stay intact
					next := make([]listener, 0, len(m.listeners)-1)
					next = append(next, m.listeners[:i]...)
					m.listeners = append(next, m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit delivers ev to the listeners registered when the call starts, in
// registration order. Listeners may subscribe or unsubscribe from inside
// a callback; that affects the next Emit, not this one.
func (m *Manager) Emit(ev Event) {
	if ev == nil {
		return
	}
	m.lmu.RLock()
	snapshot := m.listeners
	m.lmu.RUnlock()

	for _, l := range snapshot {
		l.fn(ev)
	}
}
