package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-instrument/input"
	"go-instrument/output"
)

// KeyboardSettings configures the computer-keyboard input
type KeyboardSettings struct {
	Layout   string `json:"layout,omitempty"`
	BaseNote int    `json:"baseNote,omitempty"`
}

// PointerSettings configures the mouse/touch input
type PointerSettings struct {
	Mode    string `json:"mode,omitempty"`
	MinNote int    `json:"minNote,omitempty"`
	MaxNote int    `json:"maxNote,omitempty"`
}

// MIDIInSettings configures the MIDI controller input
type MIDIInSettings struct {
	RequireDevice bool   `json:"requireDevice,omitempty"`
	PortFilter    string `json:"portFilter,omitempty"`
	PollMillis    int    `json:"pollMillis,omitempty"`
}

// HandSettings configures hand tracking. Command is the landmark helper
// started as the camera; it must print one JSON frame per line.
type HandSettings struct {
	LineY      float64  `json:"lineY,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	Fingertips []int    `json:"fingertips,omitempty"`
	MinNote    int      `json:"minNote,omitempty"`
	MaxNote    int      `json:"maxNote,omitempty"`
	Command    string   `json:"command,omitempty"`
	Args       []string `json:"args,omitempty"`
}

// OutputSettings selects the sound backend and its options
type OutputSettings struct {
	Kind string `json:"kind,omitempty"`
	output.Config
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette string `json:"palette,omitempty"` // path to a GIMP .gpl file
	// KeyReleaseMillis is how long a held terminal key may go without a
	// repeat before it counts as released.
	KeyReleaseMillis int `json:"keyReleaseMillis,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Inputs   []string         `json:"inputs,omitempty"`
	Keyboard KeyboardSettings `json:"keyboard,omitempty"`
	Pointer  PointerSettings  `json:"pointer,omitempty"`
	MIDIIn   MIDIInSettings   `json:"midiIn,omitempty"`
	Hand     HandSettings     `json:"hand,omitempty"`
	Output   OutputSettings   `json:"output,omitempty"`
	UI       UIConfig         `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Inputs:   []string{"keyboard", "pointer"},
		Keyboard: KeyboardSettings{Layout: "piano", BaseNote: 60},
		Pointer:  PointerSettings{Mode: "trigger", MinNote: 48, MaxNote: 84},
		MIDIIn:   MIDIInSettings{PollMillis: 1000},
		Hand:     HandSettings{LineY: 0.5, Mode: "cross", Fingertips: []int{input.LandmarkIndexTip}, MinNote: 48, MaxNote: 84},
		Output: OutputSettings{
			Kind:   "synth",
			Config: output.Config{Waveform: "triangle", Instrument: "acoustic_grand_piano", Volume: 0.8},
		},
		UI: UIConfig{KeyReleaseMillis: 600},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-instrument"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads path over the defaults, so a partial file only overrides
// what it names. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every name the config refers to
func (c *Config) Validate() error {
	if _, err := c.EnabledInputs(); err != nil {
		return err
	}
	if _, err := input.LayoutByName(c.Keyboard.Layout); err != nil {
		return err
	}
	if _, err := input.ParsePointerMode(c.Pointer.Mode); err != nil {
		return err
	}
	if _, err := input.ParseHandMode(c.Hand.Mode); err != nil {
		return err
	}
	if _, err := output.ParseKind(c.Output.Kind); err != nil {
		return err
	}
	return nil
}

// EnabledInputs returns the input kinds to enable at startup
func (c *Config) EnabledInputs() ([]input.Kind, error) {
	kinds := make([]input.Kind, 0, len(c.Inputs))
	for _, name := range c.Inputs {
		k, err := input.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// EnableInput adds kind to the startup inputs if it is missing
func (c *Config) EnableInput(kind input.Kind) {
	for _, name := range c.Inputs {
		if k, err := input.ParseKind(name); err == nil && k == kind {
			return
		}
	}
	c.Inputs = append(c.Inputs, kind.String())
}

// DisableInput drops kind from the startup inputs
func (c *Config) DisableInput(kind input.Kind) {
	kept := c.Inputs[:0]
	for _, name := range c.Inputs {
		if k, err := input.ParseKind(name); err == nil && k == kind {
			continue
		}
		kept = append(kept, name)
	}
	c.Inputs = kept
}

// AdapterConfig returns the adapter settings for kind
func (c *Config) AdapterConfig(kind input.Kind) input.AdapterConfig {
	switch kind {
	case input.KindKeyboard:
		return input.KeyboardConfig{Layout: c.Keyboard.Layout, BaseNote: c.Keyboard.BaseNote}
	case input.KindPointer:
		return input.PointerConfig{Mode: input.PointerMode(c.Pointer.Mode), MinNote: c.Pointer.MinNote, MaxNote: c.Pointer.MaxNote}
	case input.KindMIDI:
		return input.MIDIConfig{
			RequireDevice: c.MIDIIn.RequireDevice,
			PortFilter:    c.MIDIIn.PortFilter,
			PollInterval:  time.Duration(c.MIDIIn.PollMillis) * time.Millisecond,
		}
	case input.KindHand:
		return input.HandConfig{
			LineY:      c.Hand.LineY,
			Mode:       input.HandMode(c.Hand.Mode),
			Fingertips: c.Hand.Fingertips,
			MinNote:    c.Hand.MinNote,
			MaxNote:    c.Hand.MaxNote,
		}
	}
	return nil
}

// OutputKind returns the configured output kind
func (c *Config) OutputKind() (output.Kind, error) {
	return output.ParseKind(c.Output.Kind)
}

// KeyReleaseTimeout returns the terminal key-up timeout
func (c *Config) KeyReleaseTimeout() time.Duration {
	if c.UI.KeyReleaseMillis <= 0 {
		return 600 * time.Millisecond
	}
	return time.Duration(c.UI.KeyReleaseMillis) * time.Millisecond
}
