package output

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"go-instrument/input"
)

// fallbackDuration is how long TriggerNote sounds on engines that cannot sustain
const fallbackDuration = time.Second

// Factory builds an engine. On error it must release anything it acquired.
type Factory func(ctx context.Context, env Env, cfg Config) (Engine, error)

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithFactory replaces the constructor used for kind
func WithFactory(kind Kind, f Factory) Option {
	return func(m *Manager) { m.factories[kind] = f }
}

func WithMIDIOutHost(h MIDIOutHost) Option {
	return func(m *Manager) { m.env.MIDIOut = h }
}

// Manager owns the loaded engines and routes notes to the active one
type Manager struct {
	logger    *zap.Logger
	env       Env
	factories map[Kind]Factory

	mu         sync.Mutex
	engines    map[Kind]Engine
	current    Kind
	hasCurrent bool
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger: zap.NewNop(),
		factories: map[Kind]Factory{
			KindSynth:     newSynthEngine,
			KindSoundFont: newSoundFontEngine,
			KindMIDI:      newMIDIOutEngine,
			KindSampler:   newSamplerEngine,
		},
		engines: make(map[Kind]Engine),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.env.Logger = m.logger
	return m
}

// LoadOutput builds the engine for kind and keeps it idle. Loading a kind
// that is already loaded replaces it once the new engine is up.
func (m *Manager) LoadOutput(ctx context.Context, kind Kind, cfg Config) error {
	if !kind.valid() {
		return fmt.Errorf("%w: output %d", input.ErrUnknownKind, int(kind))
	}
	factory, ok := m.factories[kind]
	if !ok || factory == nil {
		return fmt.Errorf("%w: output %s", input.ErrUnknownKind, kind)
	}

	env := m.env
	env.Logger = m.logger.With(zap.Stringer("output", kind))
	e, err := factory(ctx, env, cfg)
	if err != nil {
		m.logger.Warn("load output failed", zap.Stringer("kind", kind), zap.Error(err))
		return fmt.Errorf("load %s: %w", kind, err)
	}

	m.mu.Lock()
	old := m.engines[kind]
	m.engines[kind] = e
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			m.logger.Warn("close replaced output", zap.Stringer("kind", kind), zap.Error(err))
		}
	}
	m.logger.Info("output loaded", zap.Stringer("kind", kind))
	return nil
}

// SetOutput makes kind the active output, loading it first if needed. An
// already loaded engine keeps running; only its instrument follows cfg.
func (m *Manager) SetOutput(ctx context.Context, kind Kind, cfg Config) error {
	if !kind.valid() {
		return fmt.Errorf("%w: output %d", input.ErrUnknownKind, int(kind))
	}

	m.mu.Lock()
	e, loaded := m.engines[kind]
	m.mu.Unlock()

	if !loaded {
		if err := m.LoadOutput(ctx, kind, cfg); err != nil {
			return err
		}
	} else if cfg.Instrument != "" {
		if inst, ok := e.(Instrumented); ok {
			if err := inst.SetInstrument(cfg.Instrument); err != nil {
				return fmt.Errorf("set %s instrument: %w", kind, err)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.engines[kind]; !ok {
		// closed between load and switch
		return fmt.Errorf("%w: output %s was closed", input.ErrNoDeviceFound, kind)
	}
	m.current, m.hasCurrent = kind, true
	m.logger.Info("output selected", zap.Stringer("kind", kind))
	return nil
}

// Current returns the active output kind
func (m *Manager) Current() (Kind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.hasCurrent
}

// Loaded returns the loaded kinds, sorted
func (m *Manager) Loaded() []Kind {
	m.mu.Lock()
	out := make([]Kind, 0, len(m.engines))
	for k := range m.engines {
		out = append(out, k)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Manager) active() Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasCurrent {
		return nil
	}
	return m.engines[m.current]
}

// PlayNote sounds note for dur on the active output
func (m *Manager) PlayNote(note int, dur time.Duration, velocity float64) {
	e := m.active()
	if e == nil {
		m.logger.Debug("play with no active output", zap.Int("note", note))
		return
	}
	e.PlayNote(note, dur, velocity)
}

// TriggerNote starts a sustained note. Engines that cannot sustain get a
// fixed one-second note instead.
func (m *Manager) TriggerNote(note int, velocity float64) {
	e := m.active()
	if e == nil {
		m.logger.Debug("trigger with no active output", zap.Int("note", note))
		return
	}
	if s, ok := e.(Sustainer); ok {
		s.NoteOn(note, velocity)
		return
	}
	e.PlayNote(note, fallbackDuration, velocity)
}

// ReleaseNote ends a note started by TriggerNote
func (m *Manager) ReleaseNote(note int) {
	e := m.active()
	if e == nil {
		return
	}
	if s, ok := e.(Sustainer); ok {
		s.NoteOff(note)
	}
}

// StopAll silences the active output if it supports it
func (m *Manager) StopAll() {
	e := m.active()
	if e == nil {
		return
	}
	if s, ok := e.(Stopper); ok {
		s.StopAll()
	}
}

// MIDIOutputDevices lists the output ports of the MIDI host
func (m *Manager) MIDIOutputDevices() []string {
	if m.env.MIDIOut == nil {
		return nil
	}
	return m.env.MIDIOut.OutPorts()
}

// Close unloads every engine. The manager can be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[Kind]Engine)
	m.hasCurrent = false
	m.mu.Unlock()

	var err error
	for _, k := range Kinds {
		if e, ok := engines[k]; ok {
			err = multierr.Append(err, e.Close())
		}
	}
	return err
}

func newSamplerEngine(context.Context, Env, Config) (Engine, error) {
	return nil, fmt.Errorf("%w: sampler output is reserved", input.ErrUnsupportedHardware)
}
