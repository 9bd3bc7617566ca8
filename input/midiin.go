package input

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

// MIDIInPort is one hardware input port
type MIDIInPort interface {
	Name() string
	// Listen attaches fn to the port; stop detaches it.
	Listen(fn func(msg []byte)) (stop func(), err error)
}

// MIDIHost enumerates input ports. Errors wrap ErrUnsupportedHardware when
// no MIDI facility exists and ErrPermissionDenied when enumeration fails.
type MIDIHost interface {
	InPorts(ctx context.Context) ([]MIDIInPort, error)
}

type MIDIConfig struct {
	// RequireDevice makes Enable fail with ErrNoDeviceFound when no port is
	// present; otherwise the adapter waits for one to be plugged in.
	RequireDevice bool
	// PollInterval is the hot-plug rescan period
	PollInterval time.Duration
	// PortFilter, if set, only attaches ports whose name contains it
	// (case-insensitive).
	PortFilter string
}

func (MIDIConfig) Kind() Kind { return KindMIDI }

func DefaultMIDIConfig() MIDIConfig {
	return MIDIConfig{PollInterval: time.Second}
}

// DecodeMIDI turns one raw channel message into an event. Only note on,
// note off and control change are understood; anything else, including
// truncated messages, reports false.
func DecodeMIDI(raw []byte) (Event, bool) {
	if len(raw) < 3 || raw[0] < 0x80 || raw[0] >= 0xF0 {
		return nil, false
	}
	msg := gomidi.Message(raw[:3])
	var ch, key, vel uint8
	switch raw[0] & 0xF0 {
	case 0x90:
		if !msg.GetNoteOn(&ch, &key, &vel) {
			// some decoders already report a zero-velocity note on as off
			if msg.GetNoteOff(&ch, &key, &vel) {
				off := NewNoteOff(int(key))
				off.Channel = int(ch)
				return off, true
			}
			return nil, false
		}
		if vel == 0 {
			off := NewNoteOff(int(key))
			off.Channel = int(ch)
			return off, true
		}
		on := NewNoteOn(int(key), float64(vel)/127)
		on.Channel = int(ch)
		return on, true
	case 0x80:
		if !msg.GetNoteOff(&ch, &key, &vel) {
			return nil, false
		}
		off := NewNoteOff(int(key))
		off.Channel = int(ch)
		return off, true
	case 0xB0:
		var cc, val uint8
		if !msg.GetControlChange(&ch, &cc, &val) {
			return nil, false
		}
		return NewControlChange(int(cc), float64(val)/127, int(ch)), true
	}
	return nil, false
}

// MIDIAdapter listens on every input port and follows hot-plug
type MIDIAdapter struct {
	host   MIDIHost
	cfg    MIDIConfig
	emit   func(Event)
	logger *zap.Logger

	mu    sync.Mutex
	ports map[string]func() // port name -> stop

	// life is held shared by onMessage through emit and exclusively by
	// Close while it marks the adapter closed
	life sync.RWMutex

	closed    atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newMIDIAdapter(ctx context.Context, env Env, cfg AdapterConfig) (Adapter, error) {
	mc := DefaultMIDIConfig()
	if cfg != nil {
		c, ok := cfg.(MIDIConfig)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrInvalidConfig, cfg)
		}
		if c.PollInterval <= 0 {
			c.PollInterval = mc.PollInterval
		}
		mc = c
	}
	if env.MIDI == nil {
		return nil, fmt.Errorf("%w: no MIDI host", ErrUnsupportedHardware)
	}
	return NewMIDIAdapter(ctx, env.MIDI, mc, env.Emit, env.Logger)
}

// NewMIDIAdapter requests port access, attaches to the present ports and
// starts the hot-plug watcher.
func NewMIDIAdapter(ctx context.Context, host MIDIHost, cfg MIDIConfig, emit func(Event), logger *zap.Logger) (*MIDIAdapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	a := &MIDIAdapter{
		host:   host,
		cfg:    cfg,
		emit:   emit,
		logger: logger,
		ports:  make(map[string]func()),
	}

	ports, err := host.InPorts(ctx)
	if err != nil {
		return nil, fmt.Errorf("midi access: %w", err)
	}
	ports = a.filter(ports)
	if len(ports) == 0 {
		if cfg.RequireDevice {
			return nil, fmt.Errorf("midi: %w", ErrNoDeviceFound)
		}
		logger.Warn("no MIDI input ports yet, waiting for hot-plug")
	}
	a.sync(ports)

	// the watcher outlives the Enable call; only Close ends it
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.wg.Add(1)
	go a.watch(watchCtx)
	return a, nil
}

func (a *MIDIAdapter) Kind() Kind { return KindMIDI }

// Ports returns the names of the attached ports
func (a *MIDIAdapter) Ports() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.ports))
	for name := range a.ports {
		out = append(out, name)
	}
	return out
}

func (a *MIDIAdapter) filter(ports []MIDIInPort) []MIDIInPort {
	if a.cfg.PortFilter == "" {
		return ports
	}
	want := strings.ToLower(a.cfg.PortFilter)
	var out []MIDIInPort
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.Name()), want) {
			out = append(out, p)
		}
	}
	return out
}

func (a *MIDIAdapter) watch(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Rescan(ctx)
		}
	}
}

// Rescan enumerates ports once, attaching new ones and detaching the ones
// that disappeared. The watcher calls it every PollInterval.
func (a *MIDIAdapter) Rescan(ctx context.Context) {
	if a.closed.Load() {
		return
	}
	ports, err := a.host.InPorts(ctx)
	if err != nil {
		a.logger.Debug("midi rescan failed", zap.Error(err))
		return
	}
	a.sync(a.filter(ports))
}

func (a *MIDIAdapter) sync(ports []MIDIInPort) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return
	}

	seen := make(map[string]bool, len(ports))
	for _, p := range ports {
		name := p.Name()
		seen[name] = true
		if _, ok := a.ports[name]; ok {
			continue
		}
		stop, err := p.Listen(a.onMessage)
		if err != nil {
			a.logger.Warn("midi port listen failed", zap.String("port", name), zap.Error(err))
			continue
		}
		a.ports[name] = stop
		a.logger.Info("midi port attached", zap.String("port", name))
	}

	for name, stop := range a.ports {
		if seen[name] {
			continue
		}
		stop()
		delete(a.ports, name)
		a.logger.Info("midi port detached", zap.String("port", name))
	}
}

func (a *MIDIAdapter) onMessage(msg []byte) {
	a.life.RLock()
	defer a.life.RUnlock()
	if a.closed.Load() {
		return
	}
	ev, ok := DecodeMIDI(msg)
	if !ok {
		return
	}
	a.emit(ev)
}

// Close stops the watcher and detaches every port handler. No MIDI
// traffic is sent, and a message being delivered finishes before Close
// returns.
func (a *MIDIAdapter) Close() error {
	a.closeOnce.Do(func() {
		a.life.Lock()
		a.closed.Store(true)
		a.life.Unlock()
		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()

		a.mu.Lock()
		for name, stop := range a.ports {
			stop()
			delete(a.ports, name)
		}
		a.mu.Unlock()
	})
	return nil
}
