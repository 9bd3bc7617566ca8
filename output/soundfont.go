package output

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	meltysynth "github.com/sinshu/go-meltysynth/meltysynth"
	"go.uber.org/zap"

	"go-instrument/input"
	"go-instrument/music"
)

const (
	sfSampleRate = 44100
	sfChannels   = 2
	sfBytesFrame = 4 * sfChannels // float32 stereo
)

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// audioContext opens the process-wide oto context; oto allows only one
func audioContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sfSampleRate,
			ChannelCount: sfChannels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   40 * time.Millisecond,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
	})
	if otoErr != nil {
		return nil, fmt.Errorf("%w: audio device: %v", input.ErrUnsupportedHardware, otoErr)
	}
	return otoCtx, nil
}

// SoundFont renders notes through a SoundFont2 bank. It is an io.Reader of
// interleaved float32 little-endian PCM that an oto player pulls from.
type SoundFont struct {
	logger *zap.Logger
	volume float32

	mu      sync.Mutex
	synth   *meltysynth.Synthesizer
	channel int32
	program int
	left    []float32
	right   []float32
	player  *oto.Player
	closed  bool
}

func newSoundFontEngine(_ context.Context, env Env, cfg Config) (Engine, error) {
	if cfg.SoundFont == "" {
		return nil, fmt.Errorf("%w: no soundfont file configured", input.ErrInvalidConfig)
	}
	f, err := os.Open(cfg.SoundFont)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", input.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", input.ErrNoDeviceFound, err)
	}
	defer f.Close()

	sf, err := LoadSoundFont(f, cfg, env.Logger)
	if err != nil {
		return nil, err
	}
	ctx, err := audioContext()
	if err != nil {
		return nil, err
	}
	sf.player = ctx.NewPlayer(sf)
	sf.player.Play()
	return sf, nil
}

// LoadSoundFont parses an sf2 bank and selects cfg.Instrument. The result
// produces audio only when read; newSoundFontEngine hands it to oto.
func LoadSoundFont(r io.Reader, cfg Config, logger *zap.Logger) (*SoundFont, error) {
	program, err := ProgramFor(cfg.Instrument)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	bank, err := meltysynth.NewSoundFont(r)
	if err != nil {
		return nil, fmt.Errorf("%w: soundfont: %v", input.ErrInvalidConfig, err)
	}
	synth, err := meltysynth.NewSynthesizer(bank, meltysynth.NewSynthesizerSettings(sfSampleRate))
	if err != nil {
		return nil, fmt.Errorf("soundfont synthesizer: %w", err)
	}
	vol := float32(cfg.Volume)
	if vol <= 0 || vol > 1 {
		vol = 1
	}
	s := &SoundFont{
		logger:  logger,
		volume:  vol,
		synth:   synth,
		channel: int32(music.ClampInt(cfg.Channel, 0, 15)),
	}
	s.setProgram(program)
	return s, nil
}

func (s *SoundFont) setProgram(program int) {
	s.synth.ProcessMidiMessage(s.channel, 0xC0, int32(program), 0)
	s.program = program
}

// SetInstrument sends a program change for a GM name or number
func (s *SoundFont) SetInstrument(name string) error {
	program, err := ProgramFor(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.setProgram(program)
	s.logger.Debug("program change", zap.String("instrument", name), zap.Int("program", program))
	return nil
}

// Program returns the selected GM program
func (s *SoundFont) Program() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.program
}

// Read renders len(p)/8 frames
func (s *SoundFont) Read(p []byte) (int, error) {
	frames := len(p) / sfBytesFrame
	if frames == 0 {
		return 0, nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, io.EOF
	}
	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	left, right := s.left[:frames], s.right[:frames]
	s.synth.Render(left, right)
	s.mu.Unlock()

	for i := 0; i < frames; i++ {
		off := i * sfBytesFrame
		binary.LittleEndian.PutUint32(p[off:], math.Float32bits(left[i]*s.volume))
		binary.LittleEndian.PutUint32(p[off+4:], math.Float32bits(right[i]*s.volume))
	}
	return frames * sfBytesFrame, nil
}

func midiVelocity(v float64) int32 {
	return int32(music.ClampInt(int(math.Round(music.Clamp01(v)*127)), 1, 127))
}

func (s *SoundFont) NoteOn(note int, velocity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.synth.NoteOn(s.channel, int32(music.ClampInt(note, music.MinNote, music.MaxNote)), midiVelocity(velocity))
}

func (s *SoundFont) NoteOff(note int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.synth.NoteOff(s.channel, int32(music.ClampInt(note, music.MinNote, music.MaxNote)))
}

func (s *SoundFont) PlayNote(note int, dur time.Duration, velocity float64) {
	s.NoteOn(note, velocity)
	time.AfterFunc(dur, func() { s.NoteOff(note) })
}

func (s *SoundFont) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.synth.NoteOffAll(false)
}

func (s *SoundFont) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	player := s.player
	s.player = nil
	s.mu.Unlock()

	if player != nil {
		return player.Close()
	}
	return nil
}
