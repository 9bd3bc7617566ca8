package tui

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"go-instrument/input"
)

type fakePlayer struct {
	mu    sync.Mutex
	calls []string
}

func (p *fakePlayer) record(s string) {
	p.mu.Lock()
	p.calls = append(p.calls, s)
	p.mu.Unlock()
}

func (p *fakePlayer) PlayNote(note int, dur time.Duration, velocity float64) {
	p.record(fmt.Sprintf("play %d %v %.1f", note, dur, velocity))
}

func (p *fakePlayer) TriggerNote(note int, velocity float64) {
	p.record(fmt.Sprintf("on %d %.1f", note, velocity))
}

func (p *fakePlayer) ReleaseNote(note int) {
	p.record(fmt.Sprintf("off %d", note))
}

func (p *fakePlayer) StopAll() {
	p.record("stop")
}

func (p *fakePlayer) take() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.calls
	p.calls = nil
	return out
}

func newTestRouter() (*Router, *fakePlayer) {
	p := &fakePlayer{}
	r := NewRouter(p, 48, 84, nil)
	r.OneShot = 500 * time.Millisecond
	return r, p
}

func TestRouterSustainsKeyboardNotes(t *testing.T) {
	r, p := newTestRouter()

	r.Handle(input.NewNoteOn(60, 0.8))
	if got := r.State().Held; got[60] != 0.8 {
		t.Fatalf("held=%v", got)
	}
	r.Handle(input.NewNoteOff(60))

	want := []string{"on 60 0.8", "off 60"}
	if got := p.take(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls=%v want %v", got, want)
	}
	if len(r.State().Held) != 0 {
		t.Fatalf("note still held")
	}
}

func TestRouterPositionalOneShot(t *testing.T) {
	r, p := newTestRouter()

	r.Handle(input.NewNoteOnAt(66, 0.6, 0.5, 0.5))
	st := r.State()
	if st.Pos == nil || st.Pos.X != 0.5 || !st.Pressed || st.Sliding != 66 {
		t.Fatalf("state=%+v", st)
	}
	if len(st.Held) != 0 {
		t.Fatalf("one-shot should not be held: %v", st.Held)
	}
	r.Handle(input.NewAnonymousNoteOff())

	want := []string{"play 66 500ms 0.6"}
	if got := p.take(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls=%v want %v", got, want)
	}
	if r.State().Pressed {
		t.Fatalf("anonymous note-off should end the slide")
	}
}

func TestRouterContinuous(t *testing.T) {
	tests := []struct {
		name   string
		events []input.Event
		want   []string
	}{
		{
			name: "drag retriggers on note change only",
			events: []input.Event{
				input.NewNoteOnAt(48, 0.7, 0, 0.5),
				input.NewContinuous(0.01, 0.5, 0.7),
				input.NewContinuous(0.5, 0.5, 0.7),
				input.NewContinuous(0.5, 0.6, 0.7),
			},
			want: []string{"play 48 500ms 0.7", "play 66 500ms 0.7"},
		},
		{
			name: "drag without press is ignored",
			events: []input.Event{
				input.NewContinuous(0.5, 0.5, 0.7),
			},
		},
		{
			name: "xy-pad press plays, hover ends",
			events: []input.Event{
				input.NewContinuous(0.5, 0.5, 0.5),
				input.NewContinuous(0.5, 0.5, 1),
				input.NewContinuous(0.5, 0.4, 1),
				input.NewContinuous(0.5, 0.4, 0.5),
				input.NewContinuous(0.5, 0.4, 1),
			},
			want: []string{"play 66 500ms 1.0", "play 66 500ms 1.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, p := newTestRouter()
			for _, ev := range tt.events {
				r.Handle(ev)
			}
			if got := p.take(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("calls=%v want %v", got, tt.want)
			}
		})
	}
}

func TestRouterTriggerAndDecay(t *testing.T) {
	r, p := newTestRouter()

	r.Handle(input.NewTrigger(3, 0.9))
	want := []string{"play 39 250ms 0.9"}
	if got := p.take(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls=%v want %v", got, want)
	}
	if lvl := r.State().Pads[3]; lvl != 1 {
		t.Fatalf("pad level=%v", lvl)
	}

	r.Decay(100 * time.Millisecond)
	if lvl := r.State().Pads[3]; lvl < 0.59 || lvl > 0.61 {
		t.Fatalf("pad level after decay=%v", lvl)
	}
	r.Decay(time.Second)
	if lvl := r.State().Pads[3]; lvl != 0 {
		t.Fatalf("pad level should bottom out, got %v", lvl)
	}
}

func TestRouterAllNotesOff(t *testing.T) {
	for _, cc := range []int{ccAllNotesOff, ccAllSoundsOff} {
		r, p := newTestRouter()
		r.Handle(input.NewNoteOn(60, 1))
		r.Handle(input.NewNoteOn(64, 1))
		p.take()

		r.Handle(input.NewControlChange(cc, 0, 0))
		if got := p.take(); !reflect.DeepEqual(got, []string{"stop"}) {
			t.Fatalf("cc %d: calls=%v", cc, got)
		}
		if len(r.State().Held) != 0 {
			t.Fatalf("cc %d: held notes survived", cc)
		}
	}

	r, p := newTestRouter()
	r.Handle(input.NewControlChange(1, 0.5, 0))
	if got := p.take(); len(got) != 0 {
		t.Fatalf("mod wheel should not reach the output: %v", got)
	}
}

func TestRouterPanic(t *testing.T) {
	r, p := newTestRouter()
	r.Handle(input.NewNoteOn(60, 1))
	p.take()

	r.Panic()
	if got := p.take(); !reflect.DeepEqual(got, []string{"stop"}) {
		t.Fatalf("calls=%v", got)
	}
	if len(r.State().Held) != 0 {
		t.Fatalf("held notes survived panic")
	}
}

func TestRouterNotifies(t *testing.T) {
	r, _ := newTestRouter()
	r.Handle(input.NewNoteOn(60, 1))
	r.Handle(input.NewNoteOff(60))

	select {
	case <-r.UpdateChan:
	default:
		t.Fatalf("expected an update notification")
	}
	select {
	case <-r.UpdateChan:
		t.Fatalf("notifications should coalesce")
	default:
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		ev   input.Event
		want string
	}{
		{input.NewNoteOff(60), "note-off C4"},
		{input.NewAnonymousNoteOff(), "note-off"},
		{input.NewTrigger(2, 0.5), "trigger pad 2 vel 0.50"},
		{input.NewControlChange(7, 1, 0), "cc 7 = 1.00 ch 1"},
	}
	for _, tt := range tests {
		if got := describe(tt.ev); got != tt.want {
			t.Fatalf("describe(%v)=%q want %q", tt.ev, got, tt.want)
		}
	}
}
