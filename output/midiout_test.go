package output

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-instrument/input"
)

type fakeSender struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (s *fakeSender) Name() string { return "Fake Synth" }

func (s *fakeSender) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, append([]byte(nil), msg...))
	return nil
}

func (s *fakeSender) Close() error { s.closed = true; return nil }

func (s *fakeSender) sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.msgs...)
}

type fakeOutHost struct {
	ports  []string
	sender *fakeSender
	asked  string
}

func (h *fakeOutHost) OutPorts() []string { return h.ports }

func (h *fakeOutHost) Open(port string) (MIDISender, error) {
	h.asked = port
	if len(h.ports) == 0 {
		return nil, input.ErrNoDeviceFound
	}
	return h.sender, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMIDIOutPlayNoteAutoOff(t *testing.T) {
	sender := &fakeSender{}
	host := &fakeOutHost{ports: []string{"Fake Synth"}, sender: sender}
	m := NewManager(WithMIDIOutHost(host))

	if err := m.SetOutput(context.Background(), KindMIDI, Config{Port: "fake", Channel: 2}); err != nil {
		t.Fatal(err)
	}
	if host.asked != "fake" {
		t.Fatalf("opened %q", host.asked)
	}
	m.PlayNote(60, 20*time.Millisecond, 1)
	// an early release does not cancel the pending auto note-off
	m.ReleaseNote(60)

	waitFor(t, func() bool { return len(sender.sent()) == 3 })
	msgs := sender.sent()
	want := [][]byte{
		{0x92, 60, 127},
		{0x82, 60, 0},
		{0x82, 60, 0},
	}
	for i := range want {
		if !bytes.Equal(msgs[i], want[i]) {
			t.Fatalf("msg %d = % X; want % X", i, msgs[i], want[i])
		}
	}
	if got := m.MIDIOutputDevices(); len(got) != 1 || got[0] != "Fake Synth" {
		t.Fatalf("devices=%v", got)
	}
}

func TestMIDIOutStopAllAndClose(t *testing.T) {
	sender := &fakeSender{}
	o, err := NewMIDIOut(&fakeOutHost{ports: []string{"x"}, sender: sender}, Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	o.StopAll()
	if msgs := sender.sent(); len(msgs) != 1 || !bytes.Equal(msgs[0], []byte{0xB0, 123, 0}) {
		t.Fatalf("StopAll sent % X", msgs)
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}
	o.NoteOn(60, 1)
	if !sender.closed || len(sender.sent()) != 1 {
		t.Fatalf("sent after Close")
	}
}

func TestMIDIOutNoPorts(t *testing.T) {
	m := NewManager(WithMIDIOutHost(&fakeOutHost{}))
	err := m.SetOutput(context.Background(), KindMIDI, Config{})
	if !errors.Is(err, input.ErrNoDeviceFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestMIDIOutVelocityScaling(t *testing.T) {
	sender := &fakeSender{}
	o, err := NewMIDIOut(&fakeOutHost{ports: []string{"x"}, sender: sender}, Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	o.NoteOn(60, 0)
	o.NoteOn(61, 0.5)
	o.NoteOn(200, 1)
	msgs := sender.sent()
	if msgs[0][2] != 1 || msgs[1][2] != 64 || msgs[2][1] != 127 {
		t.Fatalf("msgs=% X", msgs)
	}
}
