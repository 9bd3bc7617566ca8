package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go-instrument/input"
)

// Rect is a screen region in cells
type Rect struct {
	X, Y, W, H int
}

func (r Rect) contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// TerminalInput feeds bubbletea key, mouse and focus messages into the
// input hubs. Terminals report no key releases, so a key counts as
// released once its auto-repeat stops for ReleaseAfter.
type TerminalInput struct {
	Keys         *input.KeyHub
	Pointer      *input.PointerHub
	ReleaseAfter time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
	pressed  bool
	now      func() time.Time
}

func NewTerminalInput(keys *input.KeyHub, pointer *input.PointerHub, releaseAfter time.Duration) *TerminalInput {
	return &TerminalInput{
		Keys:         keys,
		Pointer:      pointer,
		ReleaseAfter: releaseAfter,
		lastSeen:     make(map[string]time.Time),
		now:          time.Now,
	}
}

// Key publishes a key down for single printable keys. It reports whether
// the message was one.
func (t *TerminalInput) Key(msg tea.KeyMsg) bool {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 || msg.Paste {
		return false
	}
	key := string(msg.Runes[0])

	t.mu.Lock()
	t.lastSeen[key] = t.now()
	t.mu.Unlock()

	t.Keys.Publish(input.KeyEvent{Type: input.KeyDown, Key: key, Alt: msg.Alt})
	return true
}

// Expire releases keys whose repeats stopped
func (t *TerminalInput) Expire() {
	now := t.now()
	var released []string

	t.mu.Lock()
	for key, seen := range t.lastSeen {
		if now.Sub(seen) >= t.ReleaseAfter {
			released = append(released, key)
			delete(t.lastSeen, key)
		}
	}
	t.mu.Unlock()

	for _, key := range released {
		t.Keys.Publish(input.KeyEvent{Type: input.KeyUp, Key: key})
	}
}

// Held returns the number of keys still considered down
func (t *TerminalInput) Held() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}

// Blur forwards focus loss; the keyboard adapter releases its own keys
func (t *TerminalInput) Blur() {
	t.mu.Lock()
	t.lastSeen = make(map[string]time.Time)
	pressed := t.pressed
	t.pressed = false
	t.mu.Unlock()

	t.Keys.Publish(input.KeyEvent{Type: input.Blur})
	if pressed {
		t.Pointer.Publish(input.PointerEvent{Type: input.PointerUp})
	}
}

// Mouse forwards a mouse message over area, the pointer play surface.
// Presses outside area are ignored; a drag that leaves it keeps going.
func (t *TerminalInput) Mouse(msg tea.MouseMsg, area Rect) bool {
	if area.W <= 0 || area.H <= 0 {
		return false
	}
	ev := input.PointerEvent{
		// cell centres
		Mouse:  input.Point{X: float64(msg.X-area.X) + 0.5, Y: float64(msg.Y-area.Y) + 0.5},
		Width:  float64(area.W),
		Height: float64(area.H),
	}
	inside := area.contains(msg.X, msg.Y)

	t.mu.Lock()
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inside {
			t.mu.Unlock()
			return false
		}
		t.pressed = true
		ev.Type = input.PointerDown
	case tea.MouseActionRelease:
		if !t.pressed {
			t.mu.Unlock()
			return false
		}
		t.pressed = false
		ev.Type = input.PointerUp
	case tea.MouseActionMotion:
		if !inside && !t.pressed {
			t.mu.Unlock()
			return false
		}
		ev.Type = input.PointerMove
	default:
		t.mu.Unlock()
		return false
	}
	t.mu.Unlock()

	t.Pointer.Publish(ev)
	return true
}
