package widgets

import (
	"strings"

	"go-instrument/input"
	"go-instrument/theme"
)

// XYPad is the pointer play surface. Mouse positions inside its bounds
// map to 0-1 on both axes.
type XYPad struct {
	Theme  *theme.Theme
	Width  int
	Height int
}

// Cell returns the grid cell of a normalized point
func (p XYPad) Cell(pt input.Point) (col, row int) {
	col = int(pt.X * float64(p.Width))
	row = int(pt.Y * float64(p.Height))
	if col >= p.Width {
		col = p.Width - 1
	}
	if row >= p.Height {
		row = p.Height - 1
	}
	return col, row
}

// View draws the surface with the cursor at pos, if any
func (p XYPad) View(pos *input.Point, pressed bool) string {
	t := p.Theme
	cc, cr := -1, -1
	if pos != nil {
		cc, cr = p.Cell(*pos)
	}

	var lines []string
	for row := 0; row < p.Height; row++ {
		var line strings.Builder
		for col := 0; col < p.Width; col++ {
			switch {
			case col == cc && row == cr && pressed:
				line.WriteString(RenderCell(t.Cursor(), t.Symbols.Cursor))
			case col == cc && row == cr:
				line.WriteString(RenderCell(t.Cursor(), t.Symbols.CursorOff))
			default:
				line.WriteString(RenderCell(t.Surface(), t.Symbols.Joint))
			}
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
