//go:build linux

package input

import (
	"fmt"
	"os"
	"sync"

	"github.com/holoplot/go-evdev"
)

const (
	evKeyRelease = 0
	evKeyPress   = 1
	evKeyRepeat  = 2
)

var evdevKeyNames = map[evdev.EvCode]string{
	evdev.KEY_GRAVE: "`", evdev.KEY_1: "1", evdev.KEY_2: "2", evdev.KEY_3: "3",
	evdev.KEY_4: "4", evdev.KEY_5: "5", evdev.KEY_6: "6", evdev.KEY_7: "7",
	evdev.KEY_8: "8", evdev.KEY_9: "9", evdev.KEY_0: "0", evdev.KEY_MINUS: "-",
	evdev.KEY_EQUAL: "=",

	evdev.KEY_Q: "q", evdev.KEY_W: "w", evdev.KEY_E: "e", evdev.KEY_R: "r",
	evdev.KEY_T: "t", evdev.KEY_Y: "y", evdev.KEY_U: "u", evdev.KEY_I: "i",
	evdev.KEY_O: "o", evdev.KEY_P: "p",

	evdev.KEY_A: "a", evdev.KEY_S: "s", evdev.KEY_D: "d", evdev.KEY_F: "f",
	evdev.KEY_G: "g", evdev.KEY_H: "h", evdev.KEY_J: "j", evdev.KEY_K: "k",
	evdev.KEY_L: "l", evdev.KEY_SEMICOLON: ";",

	evdev.KEY_Z: "z", evdev.KEY_X: "x", evdev.KEY_C: "c", evdev.KEY_V: "v",
	evdev.KEY_B: "b", evdev.KEY_N: "n", evdev.KEY_M: "m",
}

// EvdevKeySource reads a Linux input device directly, which unlike a
// terminal reports real key releases.
type EvdevKeySource struct {
	KeyHub

	dev *evdev.InputDevice

	mu              sync.Mutex
	ctrl, alt, meta int
	closeOnce       sync.Once
	done            chan struct{}
}

// OpenEvdevKeySource opens path (e.g. /dev/input/event3) and starts reading
func OpenEvdevKeySource(path string) (*EvdevKeySource, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %v", ErrNoDeviceFound, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedHardware, err)
	}
	s := &EvdevKeySource{dev: dev, done: make(chan struct{})}
	go s.run()
	return s, nil
}

func (s *EvdevKeySource) run() {
	defer close(s.done)
	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			return
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		if s.modifier(ev.Code, ev.Value) {
			continue
		}
		name, ok := evdevKeyNames[ev.Code]
		if !ok {
			continue
		}

		s.mu.Lock()
		ke := KeyEvent{Key: name, Ctrl: s.ctrl > 0, Alt: s.alt > 0, Meta: s.meta > 0}
		s.mu.Unlock()

		switch ev.Value {
		case evKeyPress, evKeyRepeat:
			ke.Type = KeyDown
		case evKeyRelease:
			ke.Type = KeyUp
		default:
			continue
		}
		s.Publish(ke)
	}
}

// modifier tracks ctrl/alt/meta; it reports whether code was one of them
func (s *EvdevKeySource) modifier(code evdev.EvCode, value int32) bool {
	var counter *int
	switch code {
	case evdev.KEY_LEFTCTRL, evdev.KEY_RIGHTCTRL:
		counter = &s.ctrl
	case evdev.KEY_LEFTALT, evdev.KEY_RIGHTALT:
		counter = &s.alt
	case evdev.KEY_LEFTMETA, evdev.KEY_RIGHTMETA:
		counter = &s.meta
	default:
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch value {
	case evKeyPress:
		*counter++
	case evKeyRelease:
		if *counter > 0 {
			*counter--
		}
	}
	return true
}

// Close releases the device; the reader goroutine exits on the next read
func (s *EvdevKeySource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.dev.Close()
	})
	return err
}
