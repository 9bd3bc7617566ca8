// Package output drives the sound backends: an oscillator synth, a
// SoundFont sampler and an external MIDI device. One output is active at
// a time; others may stay loaded and idle.
package output

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-instrument/input"
)

type Kind int

const (
	KindSynth Kind = iota
	KindSoundFont
	KindMIDI
	KindSampler
)

// Kinds lists every output kind in load/close order
var Kinds = []Kind{KindSynth, KindSoundFont, KindMIDI, KindSampler}

func (k Kind) String() string {
	switch k {
	case KindSynth:
		return "synth"
	case KindSoundFont:
		return "soundfont"
	case KindMIDI:
		return "midi"
	case KindSampler:
		return "sampler"
	}
	return fmt.Sprintf("output(%d)", int(k))
}

// ParseKind accepts the String() names and the browser engine names
// ("tonejs", "webaudiofont").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "synth", "tonejs", "tone":
		return KindSynth, nil
	case "soundfont", "webaudiofont", "sf2":
		return KindSoundFont, nil
	case "midi", "midi-out", "midiout":
		return KindMIDI, nil
	case "sampler":
		return KindSampler, nil
	}
	return 0, fmt.Errorf("%w: output %q", input.ErrUnknownKind, s)
}

func (k Kind) valid() bool {
	return k >= KindSynth && k <= KindSampler
}

// Config is shared by all engines; each reads the fields it knows.
type Config struct {
	// Instrument is a General MIDI name ("organ", "acoustic_grand_piano")
	// or program number for the SoundFont engine.
	Instrument string `json:"instrument,omitempty"`
	// Waveform is the synth oscillator: sine, square, saw, triangle, piano.
	Waveform string `json:"waveform,omitempty"`
	// SoundFont is the path of the .sf2 file.
	SoundFont string `json:"soundfont,omitempty"`
	// Port selects a MIDI output port by case-insensitive substring.
	// Empty picks the first port.
	Port    string  `json:"port,omitempty"`
	Channel int     `json:"channel,omitempty"`
	Volume  float64 `json:"volume,omitempty"`
}

// Engine is one loaded output. PlayNote is fire-and-forget: the engine
// releases the note by itself after dur.
type Engine interface {
	PlayNote(note int, dur time.Duration, velocity float64)
	Close() error
}

// Sustainer engines hold a note until released
type Sustainer interface {
	NoteOn(note int, velocity float64)
	NoteOff(note int)
}

// Stopper engines can silence everything in flight
type Stopper interface {
	StopAll()
}

// Instrumented engines can switch instrument without reloading
type Instrumented interface {
	SetInstrument(name string) error
}

// Env is what a Factory gets to build an engine with
type Env struct {
	Logger  *zap.Logger
	MIDIOut MIDIOutHost
}

// MIDIOutHost enumerates and opens MIDI output ports
type MIDIOutHost interface {
	OutPorts() []string
	Open(port string) (MIDISender, error)
}

// MIDISender writes raw MIDI messages to an opened port
type MIDISender interface {
	Name() string
	Send(msg []byte) error
	Close() error
}
