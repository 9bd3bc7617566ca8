// Package music holds the small numeric helpers shared by the input
// adapters and output engines: range mapping, clamping and conversions
// between MIDI note numbers, frequencies and note names.
package music

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MIDI note range
const (
	MinNote = 0
	MaxNote = 127
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// MapRange linearly maps v from [inMin,inMax] to [outMin,outMax].
// A zero-width input range maps everything to outMin.
func MapRange(v, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	return outMin + (v-inMin)*(outMax-outMin)/(inMax-inMin)
}

// Clamp limits v to [lo,hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 is Clamp(v, 0, 1)
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// InverseLerp returns where v sits between a and b (0 at a, 1 at b).
func InverseLerp(a, b, v float64) float64 {
	return MapRange(v, a, b, 0, 1)
}

// MIDIToFreq converts a note number to Hz (A4 = 69 = 440Hz).
func MIDIToFreq(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}

// FreqToMIDI is the inverse of MIDIToFreq. Non-positive frequencies return 0.
func FreqToMIDI(freq float64) float64 {
	if freq <= 0 {
		return 0
	}
	return 69 + 12*math.Log2(freq/440)
}

// NoteFromFraction maps a 0-1 fraction onto [minNote,maxNote] and floors it.
func NoteFromFraction(frac float64, minNote, maxNote int) int {
	n := int(math.Floor(MapRange(Clamp01(frac), 0, 1, float64(minNote), float64(maxNote))))
	lo, hi := minNote, maxNote
	if lo > hi {
		lo, hi = hi, lo
	}
	return ClampInt(ClampInt(n, lo, hi), MinNote, MaxNote)
}

// NoteName returns scientific pitch notation, e.g. 60 -> "C4".
func NoteName(note int) string {
	if note < MinNote || note > MaxNote {
		return fmt.Sprintf("?%d", note)
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

// ParseNote accepts a note number ("60") or a note name ("C4", "c#4", "Db3").
func ParseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty note")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < MinNote || n > MaxNote {
			return 0, fmt.Errorf("note %d out of range", n)
		}
		return n, nil
	}

	letter := strings.ToUpper(s[:1])
	base := -1
	for i, name := range noteNames {
		if name == letter {
			base = i
			break
		}
	}
	if base < 0 {
		return 0, fmt.Errorf("bad note name %q", s)
	}
	rest := s[1:]
	for len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		if rest[0] == '#' {
			base++
		} else {
			base--
		}
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("bad octave in %q", s)
	}
	n := (octave+1)*12 + base
	if n < MinNote || n > MaxNote {
		return 0, fmt.Errorf("note %q out of range", s)
	}
	return n, nil
}
