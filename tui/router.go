package tui

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-instrument/input"
	"go-instrument/music"
)

// Player is the part of the output manager the router drives
type Player interface {
	PlayNote(note int, dur time.Duration, velocity float64)
	TriggerNote(note int, velocity float64)
	ReleaseNote(note int)
	StopAll()
}

const (
	drumBase       = 36 // GM kick; pads count up from here
	ccAllNotesOff  = 123
	ccAllSoundsOff = 120
	padDecay       = 4.0 // pad brightness lost per second
	hoverPressure  = 0.5 // xy-pad pressure while not pressed
)

// Router turns input events into output calls and keeps the display state.
// Keyboard and MIDI notes sustain until their NoteOff; positional notes
// from the pointer and hand tracker are one-shots, and pointer glides
// retrigger a one-shot whenever the note under the pointer changes.
type Router struct {
	Out     Player
	OneShot time.Duration
	MinNote int
	MaxNote int
	logger  *zap.Logger

	// UpdateChan is poked after every handled event
	UpdateChan chan struct{}

	mu       sync.Mutex
	held     map[int]float64
	pads     [16]float64
	slide    int
	pos      *input.Point
	pressure float64
	last     string
}

func NewRouter(out Player, minNote, maxNote int, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		Out:        out,
		OneShot:    600 * time.Millisecond,
		MinNote:    minNote,
		MaxNote:    maxNote,
		logger:     logger,
		UpdateChan: make(chan struct{}, 1),
		held:       make(map[int]float64),
		slide:      -1,
	}
}

// Handle is an input.Manager subscriber
func (r *Router) Handle(ev input.Event) {
	r.mu.Lock()
	calls := r.route(ev)
	r.last = describe(ev)
	last := r.last
	r.mu.Unlock()
	r.logger.Debug("event", zap.String("event", last), zap.Int("calls", len(calls)))

	// output calls outside the lock; engines may block briefly
	for _, call := range calls {
		call()
	}

	select {
	case r.UpdateChan <- struct{}{}:
	default:
	}
}

func (r *Router) route(ev input.Event) []func() {
	out := r.Out
	switch ev := ev.(type) {
	case input.NoteOn:
		if ev.Position == nil {
			r.held[ev.Note] = ev.Velocity
			return []func(){func() { out.TriggerNote(ev.Note, ev.Velocity) }}
		}
		p := *ev.Position
		r.pos = &p
		r.slide = ev.Note
		dur := r.OneShot
		return []func(){func() { out.PlayNote(ev.Note, dur, ev.Velocity) }}

	case input.NoteOff:
		if !ev.HasNote {
			r.slide = -1
			return nil
		}
		delete(r.held, ev.Note)
		return []func(){func() { out.ReleaseNote(ev.Note) }}

	case input.Continuous:
		r.pos = &input.Point{X: ev.X, Y: ev.Y}
		r.pressure = ev.Pressure
		// an xy-pad hover ends a slide; pointer drags only continue one
		if ev.Pressure <= hoverPressure {
			r.slide = -1
			return nil
		}
		if ev.Pressure < 1 && r.slide < 0 {
			return nil
		}
		note := music.NoteFromFraction(ev.X, r.MinNote, r.MaxNote)
		if note == r.slide {
			return nil
		}
		r.slide = note
		dur := r.OneShot
		return []func(){func() { out.PlayNote(note, dur, ev.Pressure) }}

	case input.Trigger:
		if ev.Index >= 0 && ev.Index < len(r.pads) {
			r.pads[ev.Index] = 1
		}
		note := drumBase + ev.Index
		dur := r.OneShot / 2
		return []func(){func() { out.PlayNote(note, dur, ev.Velocity) }}

	case input.ControlChange:
		if ev.Control == ccAllNotesOff || ev.Control == ccAllSoundsOff {
			r.held = make(map[int]float64)
			r.slide = -1
			return []func(){out.StopAll}
		}
	}
	return nil
}

// Panic stops the output and forgets every held note
func (r *Router) Panic() {
	r.mu.Lock()
	r.held = make(map[int]float64)
	r.slide = -1
	r.mu.Unlock()
	r.Out.StopAll()
}

// Decay fades pad hits by dt
func (r *Router) Decay(dt time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.pads {
		r.pads[i] -= padDecay * dt.Seconds()
		if r.pads[i] < 0 {
			r.pads[i] = 0
		}
	}
}

// State is a copy of the router's display state
type State struct {
	Held     map[int]float64
	Pads     [16]float64
	Pos      *input.Point
	Pressed  bool
	Sliding  int
	Pressure float64
	Last     string
}

func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	held := make(map[int]float64, len(r.held))
	for n, v := range r.held {
		held[n] = v
	}
	var pos *input.Point
	if r.pos != nil {
		p := *r.pos
		pos = &p
	}
	return State{
		Held:     held,
		Pads:     r.pads,
		Pos:      pos,
		Pressed:  r.slide >= 0,
		Sliding:  r.slide,
		Pressure: r.pressure,
		Last:     r.last,
	}
}

func describe(ev input.Event) string {
	switch ev := ev.(type) {
	case input.NoteOn:
		s := fmt.Sprintf("note-on %s vel %.2f", music.NoteName(ev.Note), ev.Velocity)
		if ev.Key != "" {
			s += " key " + ev.Key
		}
		return s
	case input.NoteOff:
		if !ev.HasNote {
			return "note-off"
		}
		return "note-off " + music.NoteName(ev.Note)
	case input.Continuous:
		return fmt.Sprintf("continuous x %.2f y %.2f p %.2f", ev.X, ev.Y, ev.Pressure)
	case input.Trigger:
		return fmt.Sprintf("trigger pad %d vel %.2f", ev.Index, ev.Velocity)
	case input.ControlChange:
		return fmt.Sprintf("cc %d = %.2f ch %d", ev.Control, ev.Value, ev.Channel+1)
	}
	return ev.Type().String()
}
