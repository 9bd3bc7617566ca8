package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-instrument/theme"
)

// RenderCell renders one symbol in a colour
func RenderCell(color lipgloss.Color, symbol rune) string {
	return lipgloss.NewStyle().Foreground(color).Render(string(symbol))
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

// Help is the full-screen help panel: key bindings followed by a legend
// of the symbols the play views use.
type Help struct {
	Theme    *theme.Theme
	Sections []KeySection
}

func (h Help) View() string {
	t := h.Theme
	title := lipgloss.NewStyle().Foreground(t.Accent())
	key := lipgloss.NewStyle().Foreground(t.FG()).Width(8)
	desc := lipgloss.NewStyle().Foreground(t.Muted())

	var lines []string
	for _, sec := range h.Sections {
		if sec.Title != "" {
			lines = append(lines, title.Render(sec.Title))
		}
		for _, k := range sec.Keys {
			lines = append(lines, "  "+key.Render(k.Key)+desc.Render(k.Desc))
		}
		lines = append(lines, "")
	}

	lines = append(lines, title.Render("Legend"))
	sym := t.Symbols
	legend := []struct {
		color  lipgloss.Color
		symbol rune
		desc   string
	}{
		{t.Velocity(1), sym.KeyHeld, "sounding note, brighter is louder"},
		{t.Velocity(1), sym.PadHit, "pad hit"},
		{t.Cursor(), sym.Cursor, "pointer pressed"},
		{t.Cursor(), sym.CursorOff, "pointer hovering"},
		{t.Warning(), sym.Line, "hand trigger line"},
	}
	for _, l := range legend {
		lines = append(lines, "  "+RenderCell(l.color, l.symbol)+" "+desc.Render(l.desc))
	}
	return strings.Join(lines, "\n")
}
