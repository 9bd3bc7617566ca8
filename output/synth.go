package output

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"go.uber.org/zap"

	"go-instrument/input"
	"go-instrument/music"
)

var synthRate = beep.SampleRate(44100)

const (
	attackTime  = 5 * time.Millisecond
	releaseTime = 250 * time.Millisecond
)

// Waveform names an oscillator shape
type Waveform string

const (
	WaveSine     Waveform = "sine"
	WaveSquare   Waveform = "square"
	WaveSaw      Waveform = "saw"
	WaveTriangle Waveform = "triangle"
	WavePiano    Waveform = "piano"
)

type oscFunc func(phase float64) float64

var oscillators = map[Waveform]oscFunc{
	WaveSine:     math.Sin,
	WaveSquare:   oscSquare,
	WaveSaw:      oscSaw,
	WaveTriangle: oscTriangle,
	WavePiano:    oscPiano,
}

func ParseWaveform(s string) (Waveform, error) {
	w := Waveform(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case "":
		return WaveTriangle, nil
	case "sawtooth":
		return WaveSaw, nil
	}
	if _, ok := oscillators[w]; !ok {
		return "", fmt.Errorf("%w: waveform %q", input.ErrInvalidConfig, s)
	}
	return w, nil
}

func oscSquare(p float64) float64 {
	if math.Sin(p) >= 0 {
		return 1
	}
	return -1
}

func oscSaw(p float64) float64 {
	return p/math.Pi - 1
}

func oscTriangle(p float64) float64 {
	return 2*math.Abs(p/math.Pi-1) - 1
}

func oscPiano(p float64) float64 {
	return (math.Sin(p) + math.Sin(2*p)*0.5 + math.Sin(3*p)*0.2) / 1.7
}

// voice is one oscillator with a linear attack/release envelope. All fields
// are guarded by the owning Synth's mutex.
type voice struct {
	note      int
	step      float64
	phase     float64
	gain      float64
	level     float64
	attack    float64
	release   float64
	osc       oscFunc
	releasing bool
	finished  bool
}

func (v *voice) Stream(samples [][2]float64) (n int, ok bool) {
	if v.finished {
		return 0, false
	}
	for i := range samples {
		if v.releasing {
			v.level -= v.release
			if v.level <= 0 {
				v.level = 0
				v.finished = true
				return i, i > 0
			}
		} else if v.level < 1 {
			v.level = math.Min(1, v.level+v.attack)
		}

		s := v.osc(v.phase) * v.gain * v.level
		samples[i][0] = s
		samples[i][1] = s

		v.phase += v.step
		if v.phase >= 2*math.Pi {
			v.phase -= 2 * math.Pi
		}
	}
	return len(samples), true
}

func (v *voice) Err() error { return nil }

// Sink plays the synth's output stream
type Sink interface {
	Play(s beep.Streamer) error
	Close() error
}

var (
	speakerOnce sync.Once
	speakerErr  error
)

// speakerSink plays through the process-wide beep speaker
type speakerSink struct{}

func (speakerSink) Play(s beep.Streamer) error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(synthRate, synthRate.N(50*time.Millisecond))
	})
	if speakerErr != nil {
		return fmt.Errorf("%w: audio device: %v", input.ErrUnsupportedHardware, speakerErr)
	}
	speaker.Play(s)
	return nil
}

func (speakerSink) Close() error {
	speaker.Clear()
	return nil
}

// Synth is a polyphonic oscillator engine mixed with beep
type Synth struct {
	logger *zap.Logger
	sink   Sink
	volume float64

	mu     sync.Mutex
	wave   Waveform
	mixer  *beep.Mixer
	voices map[int]*voice
	closed bool
}

func newSynthEngine(_ context.Context, env Env, cfg Config) (Engine, error) {
	return NewSynth(speakerSink{}, cfg, env.Logger)
}

// NewSynth starts streaming into sink. Volume 0 means full scale.
func NewSynth(sink Sink, cfg Config, logger *zap.Logger) (*Synth, error) {
	wave, err := ParseWaveform(cfg.Waveform)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	vol := cfg.Volume
	if vol <= 0 || vol > 1 {
		vol = 1
	}
	s := &Synth{
		logger: logger,
		sink:   sink,
		volume: vol,
		wave:   wave,
		mixer:  &beep.Mixer{},
		voices: make(map[int]*voice),
	}
	if sink != nil {
		if err := sink.Play(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Stream mixes the live voices; silence when none are sounding
func (s *Synth) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ = s.mixer.Stream(samples)
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	for note, v := range s.voices {
		if v.finished {
			delete(s.voices, note)
		}
	}
	return len(samples), !s.closed
}

func (s *Synth) Err() error { return nil }

// SetInstrument switches the waveform for new notes
func (s *Synth) SetInstrument(name string) error {
	w, err := ParseWaveform(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.wave = w
	s.mu.Unlock()
	return nil
}

func (s *Synth) start(note int, velocity float64) *voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if old, ok := s.voices[note]; ok {
		old.releasing = true
	}
	rate := float64(synthRate)
	v := &voice{
		note:    note,
		step:    2 * math.Pi * music.MIDIToFreq(float64(note)) / rate,
		gain:    0.2 * s.volume * music.Clamp01(velocity),
		attack:  1 / (rate * attackTime.Seconds()),
		release: 1 / (rate * releaseTime.Seconds()),
		osc:     oscillators[s.wave],
	}
	s.voices[note] = v
	s.mixer.Add(v)
	return v
}

func (s *Synth) releaseVoice(v *voice) {
	s.mu.Lock()
	v.releasing = true
	s.mu.Unlock()
}

func (s *Synth) PlayNote(note int, dur time.Duration, velocity float64) {
	v := s.start(note, velocity)
	if v == nil {
		return
	}
	time.AfterFunc(dur, func() { s.releaseVoice(v) })
}

func (s *Synth) NoteOn(note int, velocity float64) {
	s.start(note, velocity)
}

func (s *Synth) NoteOff(note int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.voices[note]; ok {
		v.releasing = true
	}
}

// StopAll releases every voice
func (s *Synth) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.voices {
		v.releasing = true
	}
}

// Active reports how many voices are still sounding
func (s *Synth) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.voices {
		if !v.finished {
			n++
		}
	}
	return n
}

func (s *Synth) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mixer.Clear()
	s.voices = make(map[int]*voice)
	s.mu.Unlock()

	if s.sink != nil {
		return s.sink.Close()
	}
	return nil
}
