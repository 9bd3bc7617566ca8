package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"go-instrument/config"
	"go-instrument/input"
	"go-instrument/output"
	"go-instrument/theme"
	"go-instrument/widgets"
)

const (
	tickRate   = 50 * time.Millisecond
	padWidth   = 48
	padHeight  = 8
	handHeight = 12
)

// layoutBounds holds cached layout info
type layoutBounds struct {
	pad Rect
}

type Model struct {
	Inputs  *input.Manager
	Outputs *output.Manager
	Router  *Router
	Term    *TerminalInput
	Overlay *widgets.HandOverlay
	Theme   *theme.Theme
	Config  *config.Config
	Logger  *zap.Logger

	status   string
	showHelp bool
	quitting bool
	width    int
	bounds   *layoutBounds
}

type updateMsg struct{ ch <-chan struct{} }

type tickMsg time.Time

type StatusMsg string

func NewModel(inputs *input.Manager, outputs *output.Manager, router *Router, term *TerminalInput,
	overlay *widgets.HandOverlay, th *theme.Theme, cfg *config.Config, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Model{
		Inputs:  inputs,
		Outputs: outputs,
		Router:  router,
		Term:    term,
		Overlay: overlay,
		Theme:   th,
		Config:  cfg,
		Logger:  logger,
		bounds:  &layoutBounds{},
	}
}

// ListenForUpdates waits for one notification on ch
func ListenForUpdates(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return updateMsg{ch: ch}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Router.UpdateChan), tick()}
	if m.Overlay != nil {
		cmds = append(cmds, ListenForUpdates(m.Overlay.UpdateChan))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "f1", "f2", "f3", "f4":
			kind := input.Kinds[int(msg.String()[1]-'1')]
			return m, m.toggleInput(kind)

		case "f5":
			m.Config.Keyboard.Layout = next(input.LayoutNames(), m.Config.Keyboard.Layout)
			return m, m.restartInput(input.KindKeyboard)

		case "f6":
			modes := []string{string(input.PointerTrigger), string(input.PointerContinuous), string(input.PointerXYPad)}
			m.Config.Pointer.Mode = next(modes, m.Config.Pointer.Mode)
			return m, m.restartInput(input.KindPointer)

		case "f7":
			return m, m.cycleOutput()

		case "f8":
			m.Router.Panic()
			m.status = "all notes off"

		case "f10":
			m.showHelp = !m.showHelp

		case "f9":
			if err := m.Config.Save(); err != nil {
				m.status = "save failed: " + err.Error()
			} else {
				m.status = "config saved"
			}

		default:
			m.Term.Key(msg)
		}

	case tea.MouseMsg:
		m.Term.Mouse(msg, m.bounds.pad)

	case tea.BlurMsg:
		m.Term.Blur()

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.Term.Expire()
		m.Router.Decay(tickRate)
		return m, tick()

	case updateMsg:
		return m, ListenForUpdates(msg.ch)

	case StatusMsg:
		m.status = string(msg)
	}

	return m, nil
}

func next(names []string, cur string) string {
	for i, n := range names {
		if n == cur {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

func (m Model) toggleInput(kind input.Kind) tea.Cmd {
	inputs, cfg := m.Inputs, m.Config
	return func() tea.Msg {
		if inputs.IsActive(kind) {
			inputs.Disable(kind)
			cfg.DisableInput(kind)
			return StatusMsg(kind.String() + " off")
		}
		if err := inputs.Enable(context.Background(), kind, cfg.AdapterConfig(kind)); err != nil {
			return StatusMsg(err.Error())
		}
		cfg.EnableInput(kind)
		return StatusMsg(kind.String() + " on")
	}
}

func (m Model) restartInput(kind input.Kind) tea.Cmd {
	inputs, cfg := m.Inputs, m.Config
	return func() tea.Msg {
		if !inputs.IsActive(kind) {
			return StatusMsg(fmt.Sprintf("%s: %s", kind, describeSetting(cfg, kind)))
		}
		inputs.Disable(kind)
		if err := inputs.Enable(context.Background(), kind, cfg.AdapterConfig(kind)); err != nil {
			return StatusMsg(err.Error())
		}
		return StatusMsg(fmt.Sprintf("%s: %s", kind, describeSetting(cfg, kind)))
	}
}

func describeSetting(cfg *config.Config, kind input.Kind) string {
	switch kind {
	case input.KindKeyboard:
		return cfg.Keyboard.Layout
	case input.KindPointer:
		return cfg.Pointer.Mode
	}
	return ""
}

// playableOutputs excludes the reserved sampler
var playableOutputs = []output.Kind{output.KindSynth, output.KindSoundFont, output.KindMIDI}

func (m Model) cycleOutput() tea.Cmd {
	outputs, cfg := m.Outputs, m.Config
	return func() tea.Msg {
		cur, ok := outputs.Current()
		kind := playableOutputs[0]
		for i, k := range playableOutputs {
			if ok && k == cur {
				kind = playableOutputs[(i+1)%len(playableOutputs)]
			}
		}
		if err := outputs.SetOutput(context.Background(), kind, cfg.Output.Config); err != nil {
			return StatusMsg(err.Error())
		}
		cfg.Output.Kind = kind.String()
		return StatusMsg("output " + kind.String())
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	t := m.Theme
	if m.showHelp {
		return widgets.Help{Theme: t, Sections: helpSections}.View()
	}
	st := m.Router.State()

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(t.Muted())
	statusStyle := lipgloss.NewStyle().Foreground(t.FG())

	header := headerStyle.Render("go-instrument")

	var inChoices []widgets.Choice
	for _, k := range input.Kinds {
		active := m.Inputs.IsActive(k)
		inChoices = append(inChoices, widgets.Choice{Name: k.String(), Active: active, Enabled: active})
	}
	cur, hasCur := m.Outputs.Current()
	loaded := map[output.Kind]bool{}
	for _, k := range m.Outputs.Loaded() {
		loaded[k] = true
	}
	var outChoices []widgets.Choice
	for _, k := range playableOutputs {
		outChoices = append(outChoices, widgets.Choice{Name: k.String(), Active: hasCur && k == cur, Enabled: loaded[k]})
	}
	selectors := widgets.RenderSelector(t, "inputs", inChoices) + "\n" +
		widgets.RenderSelector(t, "output", outChoices)

	layout, _ := input.LayoutByName(m.Config.Keyboard.Layout)
	var playView string
	if layout != nil && layout.Kind == input.LayoutTrigger {
		playView = widgets.Pads{Theme: t, Labels: padLabels(layout)}.View(st.Pads)
	} else {
		kb := widgets.Keyboard{
			Theme:   t,
			MinNote: m.Router.MinNote,
			MaxNote: m.Router.MaxNote,
			Labels:  noteLabels(layout, m.Config.Keyboard.BaseNote),
		}
		playView = kb.View(st.Held)
	}

	w := padWidth
	if m.width > 0 && m.width-2 < w {
		w = m.width - 2
	}
	surface := widgets.XYPad{Theme: t, Width: w, Height: padHeight}
	surfaceView := surface.View(st.Pos, st.Pressed)

	var handView string
	if m.Overlay != nil && m.Overlay.Active() {
		handView = m.Overlay.View(w, handHeight)
	}

	last := statusStyle.Render(st.Last)
	if m.status != "" {
		last = statusStyle.Render(m.status) + dimStyle.Render("  "+st.Last)
	}

	help := dimStyle.Render("keys:play  f1-f4:inputs f5:layout f6:pointer f7:output f8:panic f9:save f10:help esc:quit")

	// Compute layout bounds; the pad starts after header, selectors,
	// keyboard and their blank separators.
	top := lipgloss.Height(header) + 1 + lipgloss.Height(selectors) + 1 + lipgloss.Height(playView) + 1
	m.bounds.pad = Rect{X: 0, Y: top, W: w, H: padHeight}

	sections := []string{header, "", selectors, "", playView, "", surfaceView}
	if handView != "" {
		sections = append(sections, "", handView)
	}
	sections = append(sections, "", last, help)
	return strings.Join(sections, "\n")
}

var helpSections = []widgets.KeySection{
	{Title: "Inputs", Keys: []widgets.KeyBinding{
		{Key: "f1", Desc: "keyboard on/off"},
		{Key: "f2", Desc: "pointer on/off"},
		{Key: "f3", Desc: "MIDI controller on/off"},
		{Key: "f4", Desc: "hand tracking on/off"},
		{Key: "f5", Desc: "next keyboard layout"},
		{Key: "f6", Desc: "next pointer mode"},
	}},
	{Title: "Sound", Keys: []widgets.KeyBinding{
		{Key: "f7", Desc: "next output"},
		{Key: "f8", Desc: "all notes off"},
	}},
	{Title: "App", Keys: []widgets.KeyBinding{
		{Key: "f9", Desc: "save config"},
		{Key: "f10", Desc: "this help"},
		{Key: "esc", Desc: "quit"},
	}},
}

// noteLabels names the key playing each note of a note layout
func noteLabels(l *input.Layout, base int) map[int]string {
	if l == nil {
		return nil
	}
	labels := make(map[int]string, len(l.Keys))
	for key, v := range l.Keys {
		note := v
		if l.Kind == input.LayoutRelative {
			note += base
		}
		labels[note] = key
	}
	return labels
}

// padLabels orders a trigger layout's keys by pad index
func padLabels(l *input.Layout) []string {
	labels := make([]string, 16)
	for key, idx := range l.Keys {
		if idx >= 0 && idx < len(labels) {
			labels[idx] = key
		}
	}
	return labels
}
