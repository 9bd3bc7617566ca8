package widgets

import (
	"strings"

	"go-instrument/theme"
)

// Pads draws a 4x4 drum pad grid. Levels holds the fading hit brightness
// per pad, 0 when idle; Labels the key that hits each pad.
type Pads struct {
	Theme  *theme.Theme
	Labels []string
}

func (p Pads) View(levels [16]float64) string {
	t := p.Theme
	var lines []string
	for row := 0; row < 4; row++ {
		var line strings.Builder
		for col := 0; col < 4; col++ {
			i := row*4 + col
			if col > 0 {
				line.WriteString(" ")
			}
			if levels[i] > 0 {
				line.WriteString(RenderCell(t.Fade(t.Velocity(1), 1-levels[i]), t.Symbols.PadHit))
			} else {
				line.WriteString(RenderCell(t.Muted(), t.Symbols.PadIdle))
			}
			label := " "
			if i < len(p.Labels) {
				label = p.Labels[i]
			}
			line.WriteString(label)
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
