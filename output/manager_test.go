package output

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-instrument/input"
)

type call struct {
	op   string
	note int
	dur  time.Duration
}

// fakeEngine records calls; sustain toggles the Sustainer methods
type fakeEngine struct {
	mu         sync.Mutex
	calls      []call
	instrument string
	closed     int
}

func (e *fakeEngine) record(c call) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, c)
}

func (e *fakeEngine) PlayNote(note int, dur time.Duration, _ float64) {
	e.record(call{op: "play", note: note, dur: dur})
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed++
	return nil
}

func (e *fakeEngine) SetInstrument(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instrument = name
	return nil
}

func (e *fakeEngine) all() []call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]call(nil), e.calls...)
}

type sustainEngine struct{ fakeEngine }

func (e *sustainEngine) NoteOn(note int, _ float64) { e.record(call{op: "on", note: note}) }
func (e *sustainEngine) NoteOff(note int)           { e.record(call{op: "off", note: note}) }
func (e *sustainEngine) StopAll()                   { e.record(call{op: "stop"}) }

func factoryFor(e Engine, built *int, gotCfg *Config) Factory {
	return func(_ context.Context, _ Env, cfg Config) (Engine, error) {
		if built != nil {
			*built++
		}
		if gotCfg != nil {
			*gotCfg = cfg
		}
		return e, nil
	}
}

func TestSetOutputRoutesToLatest(t *testing.T) {
	tone := &sustainEngine{}
	font := &fakeEngine{}
	var fontCfg Config
	m := NewManager(
		WithFactory(KindSynth, factoryFor(tone, nil, nil)),
		WithFactory(KindSoundFont, factoryFor(font, nil, &fontCfg)),
	)
	ctx := context.Background()

	webaudiofont, _ := ParseKind("webaudiofont")
	tonejs, _ := ParseKind("tonejs")

	if err := m.SetOutput(ctx, webaudiofont, Config{Instrument: "organ"}); err != nil {
		t.Fatal(err)
	}
	if fontCfg.Instrument != "organ" {
		t.Fatalf("soundfont built with %+v", fontCfg)
	}
	if err := m.SetOutput(ctx, tonejs, Config{}); err != nil {
		t.Fatal(err)
	}
	m.PlayNote(60, 500*time.Millisecond, 0.8)

	if got := font.all(); len(got) != 0 {
		t.Fatalf("soundfont received %v", got)
	}
	got := tone.all()
	if len(got) != 1 || got[0].op != "play" || got[0].note != 60 {
		t.Fatalf("synth received %v", got)
	}
	if k, ok := m.Current(); !ok || k != KindSynth {
		t.Fatalf("Current=%v,%v", k, ok)
	}
	if loaded := m.Loaded(); len(loaded) != 2 || loaded[0] != KindSynth || loaded[1] != KindSoundFont {
		t.Fatalf("Loaded=%v", loaded)
	}
}

func TestSetOutputLoadsLazilyOnce(t *testing.T) {
	e := &fakeEngine{}
	built := 0
	m := NewManager(WithFactory(KindSoundFont, factoryFor(e, &built, nil)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := m.SetOutput(ctx, KindSoundFont, Config{}); err != nil {
			t.Fatal(err)
		}
	}
	if built != 1 {
		t.Fatalf("built %d engines; want 1", built)
	}
	if err := m.SetOutput(ctx, KindSoundFont, Config{Instrument: "cello"}); err != nil {
		t.Fatal(err)
	}
	if built != 1 || e.instrument != "cello" {
		t.Fatalf("built=%d instrument=%q", built, e.instrument)
	}
}

func TestTriggerNoteFallsBackToPlay(t *testing.T) {
	plain := &fakeEngine{}
	m := NewManager(WithFactory(KindSoundFont, factoryFor(plain, nil, nil)))
	if err := m.SetOutput(context.Background(), KindSoundFont, Config{}); err != nil {
		t.Fatal(err)
	}
	m.TriggerNote(64, 1)
	m.ReleaseNote(64)
	m.StopAll()

	got := plain.all()
	if len(got) != 1 || got[0].op != "play" || got[0].dur != time.Second {
		t.Fatalf("calls=%v; want one 1s play", got)
	}
}

func TestTriggerNoteSustains(t *testing.T) {
	e := &sustainEngine{}
	m := NewManager(WithFactory(KindSynth, factoryFor(e, nil, nil)))
	if err := m.SetOutput(context.Background(), KindSynth, Config{}); err != nil {
		t.Fatal(err)
	}
	m.TriggerNote(64, 1)
	m.ReleaseNote(64)
	m.StopAll()

	want := []string{"on", "off", "stop"}
	got := e.all()
	if len(got) != len(want) {
		t.Fatalf("calls=%v", got)
	}
	for i := range want {
		if got[i].op != want[i] {
			t.Fatalf("calls=%v; want %v", got, want)
		}
	}
}

func TestManagerWithoutActiveOutput(t *testing.T) {
	m := NewManager()
	m.PlayNote(60, time.Second, 1)
	m.TriggerNote(60, 1)
	m.ReleaseNote(60)
	m.StopAll()
	if _, ok := m.Current(); ok {
		t.Fatalf("no output should be active")
	}
	if m.MIDIOutputDevices() != nil {
		t.Fatalf("devices without a host")
	}
}

func TestLoadOutputErrors(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	if err := m.LoadOutput(ctx, Kind(9), Config{}); !errors.Is(err, input.ErrUnknownKind) {
		t.Fatalf("unknown kind err=%v", err)
	}
	if err := m.SetOutput(ctx, KindSampler, Config{}); !errors.Is(err, input.ErrUnsupportedHardware) {
		t.Fatalf("sampler err=%v", err)
	}
	if err := m.SetOutput(ctx, KindMIDI, Config{}); !errors.Is(err, input.ErrUnsupportedHardware) {
		t.Fatalf("midi without host err=%v", err)
	}
	if err := m.LoadOutput(ctx, KindSoundFont, Config{}); !errors.Is(err, input.ErrInvalidConfig) {
		t.Fatalf("soundfont without file err=%v", err)
	}
	if _, ok := m.Current(); ok {
		t.Fatalf("failed loads left an active output")
	}
	if len(m.Loaded()) != 0 {
		t.Fatalf("failed loads left engines: %v", m.Loaded())
	}
	if _, err := ParseKind("theremin"); !errors.Is(err, input.ErrUnknownKind) {
		t.Fatalf("ParseKind err=%v", err)
	}
}

func TestLoadOutputReplacesAndClose(t *testing.T) {
	first, second := &fakeEngine{}, &fakeEngine{}
	engines := []Engine{first, second}
	m := NewManager(WithFactory(KindSynth, func(context.Context, Env, Config) (Engine, error) {
		e := engines[0]
		engines = engines[1:]
		return e, nil
	}))
	ctx := context.Background()

	if err := m.LoadOutput(ctx, KindSynth, Config{}); err != nil {
		t.Fatal(err)
	}
	if err := m.LoadOutput(ctx, KindSynth, Config{}); err != nil {
		t.Fatal(err)
	}
	if first.closed != 1 {
		t.Fatalf("replaced engine not closed")
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if second.closed != 1 || len(m.Loaded()) != 0 {
		t.Fatalf("Close left engines: closed=%d loaded=%v", second.closed, m.Loaded())
	}
}
