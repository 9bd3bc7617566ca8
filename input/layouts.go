package input

import (
	"fmt"
	"strings"
)

// LayoutKind says what a layout's values mean
type LayoutKind int

const (
	// LayoutAbsolute values are MIDI note numbers
	LayoutAbsolute LayoutKind = iota
	// LayoutRelative values are semitone offsets from the adapter's base note
	LayoutRelative
	// LayoutTrigger values are pad indices; press only, never released
	LayoutTrigger
)

// Layout is a static key -> value table
type Layout struct {
	Name string
	Kind LayoutKind
	Keys map[string]int
}

// Lookup returns the value for key; keys are matched case-insensitively.
func (l *Layout) Lookup(key string) (int, bool) {
	v, ok := l.Keys[strings.ToLower(key)]
	return v, ok
}

// Piano: two interleaved rows, z-row is C3..B3 and q-row is C4..C5.
//
//	 s d   g h j       2 3   5 6 7
//	z x c v b n m     q w e r t y u i
var PianoLayout = Layout{
	Name: "piano",
	Kind: LayoutAbsolute,
	Keys: map[string]int{
		"z": 48, "s": 49, "x": 50, "d": 51, "c": 52, "v": 53,
		"g": 54, "b": 55, "h": 56, "n": 57, "j": 58, "m": 59,

		"q": 60, "2": 61, "w": 62, "3": 63, "e": 64, "r": 65,
		"5": 66, "t": 67, "6": 68, "y": 69, "7": 70, "u": 71,
		"i": 72,
	},
}

// Drumpad: 4x4 grid, top-left pad is 0.
var DrumpadLayout = Layout{
	Name: "drumpad",
	Kind: LayoutTrigger,
	Keys: map[string]int{
		"1": 0, "2": 1, "3": 2, "4": 3,
		"q": 4, "w": 5, "e": 6, "r": 7,
		"a": 8, "s": 9, "d": 10, "f": 11,
		"z": 12, "x": 13, "c": 14, "v": 15,
	},
}

// Chromatic: the number row, one semitone per key.
var ChromaticLayout = Layout{
	Name: "chromatic",
	Kind: LayoutRelative,
	Keys: map[string]int{
		"`": 0, "1": 1, "2": 2, "3": 3, "4": 4, "5": 5, "6": 6,
		"7": 7, "8": 8, "9": 9, "0": 10, "-": 11, "=": 12,
	},
}

var layouts = map[string]*Layout{
	PianoLayout.Name:     &PianoLayout,
	DrumpadLayout.Name:   &DrumpadLayout,
	ChromaticLayout.Name: &ChromaticLayout,
}

// LayoutByName returns a built-in layout
func LayoutByName(name string) (*Layout, error) {
	l, ok := layouts[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: layout %q", ErrInvalidConfig, name)
	}
	return l, nil
}

// LayoutNames lists the built-in layouts
func LayoutNames() []string {
	return []string{PianoLayout.Name, DrumpadLayout.Name, ChromaticLayout.Name}
}
