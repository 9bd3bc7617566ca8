package input

import (
	"fmt"

	"go-instrument/music"
)

// EventType identifies the kind of normalized musical event
type EventType int

const (
	EventNoteOn EventType = iota
	EventNoteOff
	EventContinuous
	EventTrigger
	EventControlChange
)

func (t EventType) String() string {
	switch t {
	case EventNoteOn:
		return "note-on"
	case EventNoteOff:
		return "note-off"
	case EventContinuous:
		return "continuous"
	case EventTrigger:
		return "trigger"
	case EventControlChange:
		return "control-change"
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event is one of NoteOn, NoteOff, Continuous, Trigger or ControlChange.
// The set is closed; build values with the New* constructors so fields
// are always inside their documented ranges.
type Event interface {
	Type() EventType
	isEvent()
}

// Point is a normalized (0-1) position
type Point struct {
	X, Y float64
}

// NoteOn starts a note. Position is set by positional adapters (pointer),
// Key by the keyboard adapter, Channel by MIDI-in (0-15).
type NoteOn struct {
	Note     int
	Velocity float64
	Position *Point
	Key      string
	Channel  int
}

// NoteOff ends a note. HasNote is false when the adapter does not know
// which note is sounding (pointer continuous mode); consumers then release
// whatever they last started.
type NoteOff struct {
	Note    int
	HasNote bool
	Key     string
	Channel int
}

// Continuous carries a normalized position and pressure
type Continuous struct {
	X, Y     float64
	Pressure float64
}

// Trigger is a percussive pad hit; Index selects the pad.
type Trigger struct {
	Index    int
	Velocity float64
	Key      string
}

// ControlChange is a MIDI CC with its value normalized to 0-1
type ControlChange struct {
	Control int
	Value   float64
	Channel int
}

func (NoteOn) Type() EventType        { return EventNoteOn }
func (NoteOff) Type() EventType       { return EventNoteOff }
func (Continuous) Type() EventType    { return EventContinuous }
func (Trigger) Type() EventType       { return EventTrigger }
func (ControlChange) Type() EventType { return EventControlChange }

func (NoteOn) isEvent()        {}
func (NoteOff) isEvent()       {}
func (Continuous) isEvent()    {}
func (Trigger) isEvent()       {}
func (ControlChange) isEvent() {}

func clampNote(n int) int {
	return music.ClampInt(n, music.MinNote, music.MaxNote)
}

func NewNoteOn(note int, velocity float64) NoteOn {
	return NoteOn{Note: clampNote(note), Velocity: music.Clamp01(velocity)}
}

// NewNoteOnAt is NewNoteOn with a source position attached
func NewNoteOnAt(note int, velocity float64, x, y float64) NoteOn {
	ev := NewNoteOn(note, velocity)
	ev.Position = &Point{X: music.Clamp01(x), Y: music.Clamp01(y)}
	return ev
}

func NewNoteOff(note int) NoteOff {
	return NoteOff{Note: clampNote(note), HasNote: true}
}

// NewAnonymousNoteOff releases "the" current note without naming it
func NewAnonymousNoteOff() NoteOff {
	return NoteOff{}
}

func NewContinuous(x, y, pressure float64) Continuous {
	return Continuous{X: music.Clamp01(x), Y: music.Clamp01(y), Pressure: music.Clamp01(pressure)}
}

func NewTrigger(index int, velocity float64) Trigger {
	if index < 0 {
		index = 0
	}
	return Trigger{Index: index, Velocity: music.Clamp01(velocity)}
}

func NewControlChange(control int, value float64, channel int) ControlChange {
	return ControlChange{
		Control: music.ClampInt(control, 0, 127),
		Value:   music.Clamp01(value),
		Channel: music.ClampInt(channel, 0, 15),
	}
}
