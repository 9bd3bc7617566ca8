package widgets

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"go-instrument/input"
	"go-instrument/theme"
)

func init() {
	// plain text so tests can look at the glyphs
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestKeyboardView(t *testing.T) {
	k := Keyboard{Theme: theme.New(nil), MinNote: 60, MaxNote: 72, Labels: map[int]string{60: "q", 61: "2"}}
	lines := strings.Split(k.View(map[int]float64{64: 1}), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines", len(lines))
	}
	keys := []rune(lines[0])
	if len(keys) != 13 {
		t.Fatalf("key row has %d columns; want 13", len(keys))
	}
	if keys[0] != '▯' || keys[1] != '▮' || keys[4] != '█' {
		t.Fatalf("key row %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "q2") {
		t.Fatalf("label row %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "C4") || !strings.Contains(lines[2], "C5") {
		t.Fatalf("octave row %q", lines[2])
	}
}

func TestPadsView(t *testing.T) {
	p := Pads{Theme: theme.New(nil), Labels: []string{"1", "2", "3", "4"}}
	var levels [16]float64
	levels[5] = 1
	lines := strings.Split(p.View(levels), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "□1 □2") {
		t.Fatalf("first row %q", lines[0])
	}
	if []rune(lines[1])[3] != '■' {
		t.Fatalf("hit pad not lit: %q", lines[1])
	}
}

func TestXYPadCursor(t *testing.T) {
	p := XYPad{Theme: theme.New(nil), Width: 10, Height: 4}
	if c, r := p.Cell(input.Point{X: 1, Y: 1}); c != 9 || r != 3 {
		t.Fatalf("Cell(1,1)=%d,%d", c, r)
	}
	lines := strings.Split(p.View(&input.Point{X: 0.5, Y: 0.5}, true), "\n")
	if []rune(lines[2])[5] != '●' {
		t.Fatalf("cursor missing:\n%s", strings.Join(lines, "\n"))
	}
	if strings.ContainsRune(p.View(nil, false), '●') {
		t.Fatalf("cursor drawn without position")
	}
}

func TestHandOverlaySurfaces(t *testing.T) {
	o := NewHandOverlay(theme.New(nil))
	video, err := o.NewSurface("hand-video", false)
	if err != nil {
		t.Fatal(err)
	}
	overlay, err := o.NewSurface("hand-overlay", true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.NewSurface("hand-overlay", true); err == nil {
		t.Fatalf("duplicate surface allowed")
	}
	if !o.Active() || o.Surfaces() != 2 {
		t.Fatalf("active=%v surfaces=%d", o.Active(), o.Surfaces())
	}

	pts := make([]input.Point, input.NumLandmarks)
	pts[input.LandmarkIndexTip] = input.Point{X: 0.85, Y: 0.1}
	overlay.Draw(input.HandFrame{Hands: [][]input.Point{pts}}, 0.5)
	select {
	case <-o.UpdateChan:
	default:
		t.Fatalf("draw did not notify")
	}

	lines := strings.Split(o.View(10, 10), "\n")
	if !strings.Contains(lines[5], "──────────") {
		t.Fatalf("trigger line missing: %q", lines[5])
	}
	// mirrored: raw x 0.85 lands on the left
	if []rune(lines[1])[1] != '●' {
		t.Fatalf("fingertip not mirrored:\n%s", strings.Join(lines, "\n"))
	}

	video.Remove()
	overlay.Remove()
	overlay.Remove()
	if o.Active() || o.Surfaces() != 0 {
		t.Fatalf("surfaces left after Remove")
	}
	if strings.TrimSpace(o.View(10, 3)) != "" {
		t.Fatalf("stale frame drawn after Remove")
	}
}

func TestRenderSelector(t *testing.T) {
	out := RenderSelector(theme.New(nil), "output", []Choice{
		{Name: "synth", Active: true, Enabled: true},
		{Name: "soundfont", Enabled: true},
		{Name: "midi"},
	})
	if out != "output: [synth] soundfont midi" {
		t.Fatalf("got %q", out)
	}
}

func TestHelpView(t *testing.T) {
	h := Help{
		Theme:    theme.New(theme.DefaultPalette()),
		Sections: []KeySection{{Title: "Inputs", Keys: []KeyBinding{{Key: "f1", Desc: "keyboard"}}}},
	}
	out := h.View()
	lines := strings.Split(out, "\n")
	if lines[0] != "Inputs" || lines[1] != "  f1      keyboard" {
		t.Fatalf("got %q", out)
	}
	if !strings.Contains(out, "Legend") || !strings.Contains(out, "hand trigger line") {
		t.Fatalf("legend missing:\n%s", out)
	}
}
