package widgets

import (
	"fmt"
	"strings"
	"sync"

	"go-instrument/input"
	"go-instrument/theme"
)

var fingertips = map[int]bool{
	input.LandmarkThumbTip:  true,
	input.LandmarkIndexTip:  true,
	input.LandmarkMiddleTip: true,
	input.LandmarkRingTip:   true,
	input.LandmarkPinkyTip:  true,
}

// HandOverlay is the terminal Display for hand tracking. The visible
// surface keeps the latest frame for View; invisible surfaces only count.
type HandOverlay struct {
	Theme *theme.Theme

	// UpdateChan is poked after every draw
	UpdateChan chan struct{}

	mu       sync.Mutex
	surfaces map[string]*overlaySurface
	frame    input.HandFrame
	lineY    float64
	drawn    bool
}

func NewHandOverlay(th *theme.Theme) *HandOverlay {
	return &HandOverlay{
		Theme:      th,
		UpdateChan: make(chan struct{}, 1),
		surfaces:   make(map[string]*overlaySurface),
	}
}

type overlaySurface struct {
	o       *HandOverlay
	name    string
	visible bool
}

func (o *HandOverlay) NewSurface(name string, visible bool) (input.Surface, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.surfaces[name]; ok {
		return nil, fmt.Errorf("surface %q already exists", name)
	}
	s := &overlaySurface{o: o, name: name, visible: visible}
	o.surfaces[name] = s
	return s, nil
}

func (s *overlaySurface) Draw(frame input.HandFrame, lineY float64) {
	if !s.visible {
		return
	}
	o := s.o
	o.mu.Lock()
	if o.surfaces[s.name] != s {
		o.mu.Unlock()
		return
	}
	o.frame, o.lineY, o.drawn = frame, lineY, true
	o.mu.Unlock()

	select {
	case o.UpdateChan <- struct{}{}:
	default:
	}
}

func (s *overlaySurface) Remove() {
	o := s.o
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.surfaces[s.name] == s {
		delete(o.surfaces, s.name)
	}
	if s.visible {
		o.frame, o.drawn = input.HandFrame{}, false
	}
}

// Surfaces returns the number of live surfaces
func (o *HandOverlay) Surfaces() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.surfaces)
}

// Active reports whether a visible surface exists
func (o *HandOverlay) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range o.surfaces {
		if s.visible {
			return true
		}
	}
	return false
}

// View draws the trigger line and the first hand, mirrored so the player
// sees themselves as in a mirror.
func (o *HandOverlay) View(width, height int) string {
	o.mu.Lock()
	frame, lineY, drawn := o.frame, o.lineY, o.drawn
	o.mu.Unlock()

	if width <= 0 || height <= 0 {
		return ""
	}
	t := o.Theme
	grid := make([][]string, height)
	for r := range grid {
		grid[r] = make([]string, width)
		for c := range grid[r] {
			grid[r][c] = " "
		}
	}

	if drawn {
		lineRow := clampIndex(int(lineY*float64(height)), height)
		for c := 0; c < width; c++ {
			grid[lineRow][c] = RenderCell(t.Warning(), t.Symbols.Line)
		}
		if len(frame.Hands) > 0 {
			for i, p := range frame.Hands[0] {
				c := clampIndex(int((1-p.X)*float64(width)), width)
				r := clampIndex(int(p.Y*float64(height)), height)
				if fingertips[i] {
					grid[r][c] = RenderCell(t.Cursor(), t.Symbols.Cursor)
				} else {
					grid[r][c] = RenderCell(t.Muted(), t.Symbols.Joint)
				}
			}
		}
	}

	lines := make([]string, height)
	for r := range grid {
		lines[r] = strings.Join(grid[r], "")
	}
	return strings.Join(lines, "\n")
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
