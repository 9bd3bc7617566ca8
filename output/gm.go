package output

import (
	"fmt"
	"strconv"
	"strings"

	"go-instrument/input"
)

// gmPrograms maps General MIDI instrument names, as the web soundfont
// libraries spell them, to zero-based program numbers. Short aliases
// point at the first instrument of their family.
var gmPrograms = map[string]int{
	"piano":                 0,
	"acoustic_grand_piano":  0,
	"bright_acoustic_piano": 1,
	"electric_grand_piano":  2,
	"honkytonk_piano":       3,
	"electric_piano":        4,
	"electric_piano_1":      4,
	"electric_piano_2":      5,
	"harpsichord":           6,
	"clavinet":              7,
	"celesta":               8,
	"glockenspiel":          9,
	"music_box":             10,
	"vibraphone":            11,
	"marimba":               12,
	"xylophone":             13,
	"tubular_bells":         14,
	"dulcimer":              15,
	"organ":                 16,
	"drawbar_organ":         16,
	"percussive_organ":      17,
	"rock_organ":            18,
	"church_organ":          19,
	"reed_organ":            20,
	"accordion":             21,
	"harmonica":             22,
	"tango_accordion":       23,
	"guitar":                24,
	"acoustic_guitar_nylon": 24,
	"acoustic_guitar_steel": 25,
	"electric_guitar_jazz":  26,
	"electric_guitar_clean": 27,
	"electric_guitar_muted": 28,
	"overdriven_guitar":     29,
	"distortion_guitar":     30,
	"guitar_harmonics":      31,
	"bass":                  32,
	"acoustic_bass":         32,
	"electric_bass_finger":  33,
	"electric_bass_pick":    34,
	"fretless_bass":         35,
	"slap_bass_1":           36,
	"slap_bass_2":           37,
	"synth_bass_1":          38,
	"synth_bass_2":          39,
	"violin":                40,
	"viola":                 41,
	"cello":                 42,
	"contrabass":            43,
	"tremolo_strings":       44,
	"pizzicato_strings":     45,
	"orchestral_harp":       46,
	"harp":                  46,
	"timpani":               47,
	"strings":               48,
	"string_ensemble_1":     48,
	"string_ensemble_2":     49,
	"synth_strings_1":       50,
	"synth_strings_2":       51,
	"choir":                 52,
	"choir_aahs":            52,
	"voice_oohs":            53,
	"synth_choir":           54,
	"orchestra_hit":         55,
	"trumpet":               56,
	"trombone":              57,
	"tuba":                  58,
	"muted_trumpet":         59,
	"french_horn":           60,
	"brass_section":         61,
	"synth_brass_1":         62,
	"synth_brass_2":         63,
	"soprano_sax":           64,
	"alto_sax":              65,
	"tenor_sax":             66,
	"baritone_sax":          67,
	"oboe":                  68,
	"english_horn":          69,
	"bassoon":               70,
	"clarinet":              71,
	"piccolo":               72,
	"flute":                 73,
	"recorder":              74,
	"pan_flute":             75,
	"blown_bottle":          76,
	"shakuhachi":            77,
	"whistle":               78,
	"ocarina":               79,
	"lead_1_square":         80,
	"lead_2_sawtooth":       81,
	"lead_3_calliope":       82,
	"lead_4_chiff":          83,
	"lead_5_charang":        84,
	"lead_6_voice":          85,
	"lead_7_fifths":         86,
	"lead_8_bass__lead":     87,
	"pad_1_new_age":         88,
	"pad_2_warm":            89,
	"pad_3_polysynth":       90,
	"pad_4_choir":           91,
	"pad_5_bowed":           92,
	"pad_6_metallic":        93,
	"pad_7_halo":            94,
	"pad_8_sweep":           95,
	"sitar":                 104,
	"banjo":                 105,
	"shamisen":              106,
	"koto":                  107,
	"kalimba":               108,
	"bagpipe":               109,
	"fiddle":                110,
	"shanai":                111,
	"tinkle_bell":           112,
	"agogo":                 113,
	"steel_drums":           114,
	"woodblock":             115,
	"taiko_drum":            116,
	"melodic_tom":           117,
	"synth_drum":            118,
}

// ProgramFor resolves a GM instrument name or a program number 0-127.
// Spaces and hyphens in names are read as underscores.
func ProgramFor(name string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(key); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("%w: program %d", input.ErrInvalidConfig, n)
		}
		return n, nil
	}
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if p, ok := gmPrograms[key]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("%w: unknown instrument %q", input.ErrInvalidConfig, name)
}
