package theme

import (
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Keyboard widget
	WhiteKey rune // ▯ white key at rest
	BlackKey rune // ▮ black key at rest
	KeyHeld  rune // █ sounding key

	// Drum pads
	PadIdle rune // □
	PadHit  rune // ■

	// XY pad and hand overlay
	Cursor    rune // ● pointer / fingertip
	CursorOff rune // ○ pointer not pressed
	Line      rune // ─ trigger line
	Joint     rune // · other landmarks
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			WhiteKey: '▯',
			BlackKey: '▮',
			KeyHeld:  '█',

			PadIdle: '□',
			PadHit:  '■',

			Cursor:    '●',
			CursorOff: '○',
			Line:      '─',
			Joint:     '·',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleSurface = 0.1
	RoleMuted   = 0.2
	RoleFG      = 0.4
	RoleAccent  = 0.5
	RoleCursor  = 0.6
	RoleActive  = 0.7
	RoleWarning = 0.8
	RoleSuccess = 1.0
)

// Style helpers

func (t *Theme) BG() lipgloss.Color      { return rgbToLipgloss(t.Palette.Lookup(RoleBG)) }
func (t *Theme) Surface() lipgloss.Color { return rgbToLipgloss(t.Palette.Lookup(RoleSurface)) }
func (t *Theme) FG() lipgloss.Color      { return rgbToLipgloss(t.Palette.Lookup(RoleFG)) }
func (t *Theme) Accent() lipgloss.Color  { return rgbToLipgloss(t.Palette.Lookup(RoleAccent)) }
func (t *Theme) Muted() lipgloss.Color   { return rgbToLipgloss(t.Palette.Lookup(RoleMuted)) }
func (t *Theme) Active() lipgloss.Color  { return rgbToLipgloss(t.Palette.Lookup(RoleActive)) }
func (t *Theme) Cursor() lipgloss.Color  { return rgbToLipgloss(t.Palette.Lookup(RoleCursor)) }
func (t *Theme) Warning() lipgloss.Color { return rgbToLipgloss(t.Palette.Lookup(RoleWarning)) }
func (t *Theme) Success() lipgloss.Color { return rgbToLipgloss(t.Palette.Lookup(RoleSuccess)) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// Velocity maps a note velocity onto the upper, brighter half of the palette
func (t *Theme) Velocity(v float64) lipgloss.Color {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return t.Color(RoleAccent + v*(RoleSuccess-RoleAccent))
}

// Fade dims c towards the background by amount 0-1, for decaying hits
func (t *Theme) Fade(c lipgloss.Color, amount float64) lipgloss.Color {
	from, err := colorful.Hex(string(c))
	if err != nil {
		return c
	}
	if amount >= 1 {
		return t.BG()
	}
	bg := t.Palette.Lookup(RoleBG).colorful()
	return lipgloss.Color(from.BlendLab(bg, amount).Clamped().Hex())
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(c.Hex())
}
