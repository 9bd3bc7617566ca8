package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-instrument/music"
	"go-instrument/theme"
)

// Keyboard draws a one-row piano, one column per note. Labels optionally
// name the computer key playing each note.
type Keyboard struct {
	Theme   *theme.Theme
	MinNote int
	MaxNote int
	Labels  map[int]string
}

func isBlack(note int) bool {
	switch note % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// View renders the keys, held notes lit by velocity, then the labels and
// the octave markers (C notes).
func (k Keyboard) View(held map[int]float64) string {
	t := k.Theme
	sym := t.Symbols
	var keys, labels, octaves strings.Builder

	for n := k.MinNote; n <= k.MaxNote; n++ {
		if v, ok := held[n]; ok {
			keys.WriteString(RenderCell(t.Velocity(v), sym.KeyHeld))
		} else if isBlack(n) {
			keys.WriteString(RenderCell(t.Muted(), sym.BlackKey))
		} else {
			keys.WriteString(RenderCell(t.FG(), sym.WhiteKey))
		}

		label := " "
		if l, ok := k.Labels[n]; ok && l != "" {
			label = l[:1]
		}
		labels.WriteString(label)
	}

	// octave markers may be wider than a column; skip when they would overlap
	col := 0
	for n := k.MinNote; n <= k.MaxNote; n++ {
		idx := n - k.MinNote
		if n%12 != 0 || idx < col {
			continue
		}
		octaves.WriteString(strings.Repeat(" ", idx-col))
		name := music.NoteName(n)
		octaves.WriteString(name)
		col = idx + len(name)
	}

	dim := lipgloss.NewStyle().Foreground(t.Muted())
	rows := []string{keys.String()}
	if len(k.Labels) > 0 {
		rows = append(rows, dim.Render(labels.String()))
	}
	rows = append(rows, dim.Render(octaves.String()))
	return strings.Join(rows, "\n")
}
