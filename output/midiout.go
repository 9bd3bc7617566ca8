package output

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"go-instrument/input"
	"go-instrument/music"
)

const ccAllNotesOff = 123

// MIDIOut sends notes to an external device. PlayNote schedules its
// NoteOff in a goroutine; an earlier ReleaseNote does not cancel it.
type MIDIOut struct {
	logger  *zap.Logger
	channel uint8

	mu     sync.Mutex
	port   MIDISender
	closed bool
}

func newMIDIOutEngine(_ context.Context, env Env, cfg Config) (Engine, error) {
	if env.MIDIOut == nil {
		return nil, fmt.Errorf("%w: no MIDI output host", input.ErrUnsupportedHardware)
	}
	return NewMIDIOut(env.MIDIOut, cfg, env.Logger)
}

func NewMIDIOut(host MIDIOutHost, cfg Config, logger *zap.Logger) (*MIDIOut, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	port, err := host.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("midi out: %w", err)
	}
	logger.Info("midi output opened", zap.String("port", port.Name()))
	return &MIDIOut{
		logger:  logger,
		channel: uint8(music.ClampInt(cfg.Channel, 0, 15)),
		port:    port,
	}, nil
}

// Port returns the opened port name
func (o *MIDIOut) Port() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.port == nil {
		return ""
	}
	return o.port.Name()
}

func (o *MIDIOut) send(msg gomidi.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if err := o.port.Send(msg); err != nil {
		o.logger.Warn("midi send failed", zap.Stringer("msg", msg), zap.Error(err))
	}
}

func midiKey(note int) uint8 {
	return uint8(music.ClampInt(note, music.MinNote, music.MaxNote))
}

func (o *MIDIOut) NoteOn(note int, velocity float64) {
	vel := uint8(music.ClampInt(int(math.Round(music.Clamp01(velocity)*127)), 1, 127))
	o.send(gomidi.NoteOn(o.channel, midiKey(note), vel))
}

func (o *MIDIOut) NoteOff(note int) {
	o.send(gomidi.NoteOff(o.channel, midiKey(note)))
}

func (o *MIDIOut) PlayNote(note int, dur time.Duration, velocity float64) {
	o.NoteOn(note, velocity)
	go func() {
		time.Sleep(dur)
		o.NoteOff(note)
	}()
}

// StopAll sends All Notes Off on the output channel
func (o *MIDIOut) StopAll() {
	o.send(gomidi.ControlChange(o.channel, ccAllNotesOff, 0))
}

// Close closes the port. Pending auto note-offs are dropped.
func (o *MIDIOut) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	return o.port.Close()
}
