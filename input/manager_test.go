package input

import (
	"context"
	"errors"
	"testing"
)

type stubAdapter struct {
	kind   Kind
	closed int
}

func (s *stubAdapter) Kind() Kind   { return s.kind }
func (s *stubAdapter) Close() error { s.closed++; return nil }

func stubFactory(built *[]*stubAdapter) Factory {
	return func(_ context.Context, env Env, cfg AdapterConfig) (Adapter, error) {
		a := &stubAdapter{kind: KindPointer}
		*built = append(*built, a)
		return a, nil
	}
}

func TestManagerEnableIsIdempotent(t *testing.T) {
	var built []*stubAdapter
	m := NewManager(WithFactory(KindPointer, stubFactory(&built)))
	ctx := context.Background()

	if err := m.Enable(ctx, KindPointer, nil); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := m.Enable(ctx, KindPointer, nil); err != nil {
		t.Fatalf("second enable: %v", err)
	}
	if len(built) != 1 {
		t.Fatalf("expected one adapter, built %d", len(built))
	}
	if !m.IsActive(KindPointer) {
		t.Fatalf("pointer should be active")
	}

	m.Disable(KindPointer)
	m.Disable(KindPointer)
	if built[0].closed != 1 {
		t.Fatalf("adapter closed %d times", built[0].closed)
	}
	if m.IsActive(KindPointer) {
		t.Fatalf("pointer still active")
	}
}

func TestManagerEnableFailureLeavesKindDisabled(t *testing.T) {
	boom := func(context.Context, Env, AdapterConfig) (Adapter, error) {
		return nil, ErrPermissionDenied
	}
	m := NewManager(WithFactory(KindMIDI, boom))
	err := m.Enable(context.Background(), KindMIDI, nil)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err=%v; want ErrPermissionDenied", err)
	}
	if m.IsActive(KindMIDI) {
		t.Fatalf("failed enable left MIDI active")
	}
}

func TestManagerErrors(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	if err := m.Enable(ctx, Kind(42), nil); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("unknown kind err=%v", err)
	}
	if err := m.Enable(ctx, KindKeyboard, PointerConfig{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("mismatched config err=%v", err)
	}
	// no sources wired
	for _, k := range Kinds {
		if err := m.Enable(ctx, k, nil); !errors.Is(err, ErrUnsupportedHardware) {
			t.Fatalf("%s without host err=%v", k, err)
		}
	}
	if _, err := ParseKind("theremin"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("ParseKind err=%v", err)
	}
	if k, err := ParseKind("Mouse"); err != nil || k != KindPointer {
		t.Fatalf("ParseKind(Mouse)=%v,%v", k, err)
	}
}

func TestManagerDisableAll(t *testing.T) {
	keys := &KeyHub{}
	ptr := &PointerHub{}
	combos := [][]Kind{
		nil,
		{KindKeyboard},
		{KindPointer},
		{KindKeyboard, KindPointer},
	}
	for _, combo := range combos {
		m := NewManager(WithKeySource(keys), WithPointerSource(ptr))
		for _, k := range combo {
			if err := m.Enable(context.Background(), k, nil); err != nil {
				t.Fatalf("enable %s: %v", k, err)
			}
		}
		if got := len(m.ListActive()); got != len(combo) {
			t.Fatalf("ListActive=%d; want %d", got, len(combo))
		}
		m.DisableAll()
		m.DisableAll()
		if got := m.ListActive(); len(got) != 0 {
			t.Fatalf("after DisableAll ListActive=%v", got)
		}
		if keys.Subscribers() != 0 || ptr.Subscribers() != 0 {
			t.Fatalf("listeners leaked: keys=%d pointer=%d", keys.Subscribers(), ptr.Subscribers())
		}
	}
}

func TestManagerEmitOrderAndSnapshot(t *testing.T) {
	m := NewManager()
	var order []string
	var unsubB func()

	m.Subscribe(func(Event) {
		order = append(order, "a")
		// added mid-dispatch: must not see this event
		m.Subscribe(func(Event) { order = append(order, "late") })
		// removed mid-dispatch: must still see this event
		unsubB()
	})
	unsubB = m.Subscribe(func(Event) { order = append(order, "b") })
	m.Subscribe(func(Event) { order = append(order, "c") })

	m.Emit(NewNoteOn(60, 1))
	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("order=%v; want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order=%v; want %v", order, want)
		}
	}

	order = nil
	m.Emit(NewNoteOff(60))
	// a, c, late (b gone, one "late" registered by the first emit)
	if len(order) != 3 || order[0] != "a" || order[1] != "c" || order[2] != "late" {
		t.Fatalf("second emit order=%v", order)
	}
}

func TestManagerNoEventAfterDisable(t *testing.T) {
	keys := &KeyHub{}
	m := NewManager(WithKeySource(keys))
	rec := &recorder{}
	m.Subscribe(rec.emit)

	if err := m.Enable(context.Background(), KindKeyboard, KeyboardConfig{Layout: "piano"}); err != nil {
		t.Fatal(err)
	}
	keys.Publish(KeyEvent{Type: KeyDown, Key: "q"})
	if len(rec.all()) != 1 {
		t.Fatalf("expected one event, got %v", rec.all())
	}

	m.Disable(KindKeyboard)
	rec.reset()
	keys.Publish(KeyEvent{Type: KeyUp, Key: "q"})
	keys.Publish(KeyEvent{Type: KeyDown, Key: "w"})
	keys.Publish(KeyEvent{Type: Blur})
	if got := rec.all(); len(got) != 0 {
		t.Fatalf("events after disable: %v", got)
	}
}

func TestEventConstructorsClamp(t *testing.T) {
	on := NewNoteOn(300, 4)
	if on.Note != 127 || on.Velocity != 1 {
		t.Fatalf("NewNoteOn clamp: %+v", on)
	}
	off := NewNoteOff(-5)
	if off.Note != 0 || !off.HasNote {
		t.Fatalf("NewNoteOff clamp: %+v", off)
	}
	c := NewContinuous(-1, 2, 0.5)
	if c.X != 0 || c.Y != 1 || c.Pressure != 0.5 {
		t.Fatalf("NewContinuous clamp: %+v", c)
	}
	cc := NewControlChange(7, 1.5, 20)
	if cc.Value != 1 || cc.Channel != 15 {
		t.Fatalf("NewControlChange clamp: %+v", cc)
	}
	if NewAnonymousNoteOff().HasNote {
		t.Fatalf("anonymous note off has a note")
	}
}
