package input

import (
	"math"
	"testing"
)

func newTestPointer(t *testing.T, mode PointerMode) (*PointerHub, *recorder, *PointerAdapter) {
	t.Helper()
	hub := &PointerHub{}
	rec := &recorder{}
	cfg := DefaultPointerConfig()
	cfg.Mode = mode
	p, err := NewPointerAdapter(hub, cfg, rec.emit, nil)
	if err != nil {
		t.Fatalf("NewPointerAdapter: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return hub, rec, p
}

func at(t PointerEventType, x, y float64) PointerEvent {
	return PointerEvent{Type: t, Mouse: Point{X: x, Y: y}, Width: 100, Height: 100}
}

func TestPointerTrigger(t *testing.T) {
	tests := []struct {
		x, y float64
		note int
		vel  float64
	}{
		{50, 50, 66, 0.6},
		{0, 0, 48, 1.0},
		{100, 100, 84, 0.2},
		{-20, 150, 48, 0.2},
	}
	for _, tt := range tests {
		hub, rec, _ := newTestPointer(t, PointerTrigger)
		hub.Publish(at(PointerDown, tt.x, tt.y))
		hub.Publish(at(PointerMove, tt.x, tt.y))
		hub.Publish(at(PointerUp, tt.x, tt.y))

		evs := rec.all()
		if len(evs) != 1 {
			t.Fatalf("(%v,%v): got %v", tt.x, tt.y, evs)
		}
		on := evs[0].(NoteOn)
		if on.Note != tt.note || math.Abs(on.Velocity-tt.vel) > 1e-9 {
			t.Fatalf("(%v,%v): note=%d vel=%v; want %d %v", tt.x, tt.y, on.Note, on.Velocity, tt.note, tt.vel)
		}
		if on.Position == nil {
			t.Fatalf("trigger NoteOn has no position")
		}
	}
}

func TestPointerContinuous(t *testing.T) {
	hub, rec, p := newTestPointer(t, PointerContinuous)

	hub.Publish(at(PointerMove, 10, 10)) // not pressed: ignored
	hub.Publish(at(PointerDown, 50, 20))
	hub.Publish(at(PointerMove, 60, 30))
	hub.Publish(at(PointerMove, 70, 40))
	if !p.Pressed() {
		t.Fatalf("expected pressed")
	}
	hub.Publish(at(PointerUp, 70, 40))
	hub.Publish(at(PointerUp, 70, 40))

	want := []EventType{EventNoteOn, EventContinuous, EventContinuous, EventNoteOff}
	evs := rec.all()
	if len(evs) != len(want) {
		t.Fatalf("got %v", evs)
	}
	for i, w := range want {
		if evs[i].Type() != w {
			t.Fatalf("event %d is %s; want %s", i, evs[i].Type(), w)
		}
	}
	on := evs[0].(NoteOn)
	if on.Note != 66 || on.Velocity != 0.7 {
		t.Fatalf("NoteOn=%+v", on)
	}
	c := evs[1].(Continuous)
	if c.X != 0.6 || c.Y != 0.3 || c.Pressure != 0.7 {
		t.Fatalf("Continuous=%+v", c)
	}
	if evs[3].(NoteOff).HasNote {
		t.Fatalf("continuous NoteOff should not carry a note")
	}
}

func TestPointerXYPad(t *testing.T) {
	hub, rec, _ := newTestPointer(t, "xypad")

	hub.Publish(at(PointerMove, 25, 75))
	hub.Publish(at(PointerDown, 25, 75))
	hub.Publish(at(PointerMove, 30, 70))
	hub.Publish(at(PointerUp, 30, 70))
	hub.Publish(at(PointerMove, 35, 65))

	evs := rec.all()
	if len(evs) != 3 {
		t.Fatalf("got %v", evs)
	}
	pressures := []float64{0.5, 1.0, 0.5}
	for i, ev := range evs {
		c, ok := ev.(Continuous)
		if !ok {
			t.Fatalf("xy-pad emitted %s", ev.Type())
		}
		if c.Pressure != pressures[i] {
			t.Fatalf("event %d pressure=%v; want %v", i, c.Pressure, pressures[i])
		}
	}
}

func TestPointerTouchWinsOverMouse(t *testing.T) {
	hub, rec, _ := newTestPointer(t, PointerTrigger)
	hub.Publish(PointerEvent{
		Type:    PointerDown,
		Mouse:   Point{X: 0, Y: 0},
		Touches: []Point{{X: 100, Y: 50}, {X: 0, Y: 0}},
		Width:   100,
		Height:  100,
	})
	on := rec.all()[0].(NoteOn)
	if on.Note != 84 {
		t.Fatalf("note=%d; want 84 from first touch", on.Note)
	}
}

func TestParsePointerModeRejectsUnknown(t *testing.T) {
	if _, err := ParsePointerMode("theremin"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMergePointerConfig(t *testing.T) {
	tests := []struct {
		name string
		in   PointerConfig
		want PointerConfig
	}{
		{"empty takes defaults", PointerConfig{}, PointerConfig{Mode: PointerTrigger, MinNote: 48, MaxNote: 84}},
		{"mode only", PointerConfig{Mode: PointerXYPad}, PointerConfig{Mode: PointerXYPad, MinNote: 48, MaxNote: 84}},
		{"range from note 0", PointerConfig{MinNote: 0, MaxNote: 24}, PointerConfig{Mode: PointerTrigger, MinNote: 0, MaxNote: 24}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergePointerConfig(DefaultPointerConfig(), tt.in); got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}
