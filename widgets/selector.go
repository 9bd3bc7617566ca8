package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-instrument/theme"
)

// Choice is one entry of a selector row
type Choice struct {
	Name    string
	Active  bool // selected
	Enabled bool // loaded / running
}

// RenderSelector renders "label: [a] b c" with the active choice bracketed
// and idle-but-enabled choices in the accent colour.
func RenderSelector(t *theme.Theme, label string, choices []Choice) string {
	dim := lipgloss.NewStyle().Foreground(t.Muted())
	on := lipgloss.NewStyle().Foreground(t.Accent())
	active := lipgloss.NewStyle().Foreground(t.Success())

	parts := make([]string, 0, len(choices))
	for _, c := range choices {
		switch {
		case c.Active:
			parts = append(parts, active.Render("["+c.Name+"]"))
		case c.Enabled:
			parts = append(parts, on.Render(c.Name))
		default:
			parts = append(parts, dim.Render(c.Name))
		}
	}
	return dim.Render(label+":") + " " + strings.Join(parts, " ")
}
