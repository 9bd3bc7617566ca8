package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-instrument/config"
	"go-instrument/debug"
	"go-instrument/input"
	"go-instrument/output"
	"go-instrument/theme"
	"go-instrument/tui"
	"go-instrument/widgets"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default ~/.config/go-instrument/config.json)")
		inputs     = flag.String("inputs", "", "comma-separated inputs: keyboard,pointer,midi,hand")
		out        = flag.String("output", "", "output: synth, soundfont or midi")
		layout     = flag.String("layout", "", "keyboard layout: piano, drumpad or chromatic")
		mode       = flag.String("pointer", "", "pointer mode: trigger, continuous or xy-pad")
		soundFont  = flag.String("soundfont", "", "SoundFont (.sf2) for the soundfont output")
		instrument = flag.String("instrument", "", "GM instrument name or program number")
		midiPort   = flag.String("midi-port", "", "MIDI output port (substring match)")
		evdevPath  = flag.String("evdev", "", "read keys from a Linux input device instead of the terminal")
		handCmd    = flag.String("hand-cmd", "", "hand landmark helper command")
		debugLog   = flag.Bool("debug", false, "write a debug log")
		logPath    = flag.String("log", "", "debug log path, - for stderr")
	)
	flag.Parse()

	if err := run(options{
		configPath: *configPath,
		inputs:     *inputs,
		output:     *out,
		layout:     *layout,
		mode:       *mode,
		soundFont:  *soundFont,
		instrument: *instrument,
		midiPort:   *midiPort,
		evdevPath:  *evdevPath,
		handCmd:    *handCmd,
		debug:      *debugLog,
		logPath:    *logPath,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	inputs     string
	output     string
	layout     string
	mode       string
	soundFont  string
	instrument string
	midiPort   string
	evdevPath  string
	handCmd    string
	debug      bool
	logPath    string
}

func loadConfig(opts options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	// Flags override the file
	if opts.inputs != "" {
		cfg.Inputs = strings.Split(opts.inputs, ",")
	}
	if opts.output != "" {
		cfg.Output.Kind = opts.output
	}
	if opts.layout != "" {
		cfg.Keyboard.Layout = opts.layout
	}
	if opts.mode != "" {
		cfg.Pointer.Mode = opts.mode
	}
	if opts.soundFont != "" {
		cfg.Output.SoundFont = opts.soundFont
	}
	if opts.instrument != "" {
		cfg.Output.Instrument = opts.instrument
	}
	if opts.midiPort != "" {
		cfg.Output.Port = opts.midiPort
	}
	if opts.handCmd != "" {
		fields := strings.Fields(opts.handCmd)
		cfg.Hand.Command, cfg.Hand.Args = fields[0], fields[1:]
	}
	return cfg, cfg.Validate()
}

func run(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, flush, err := debug.New(debug.Options{Enabled: opts.debug, Path: opts.logPath, Level: zapcore.DebugLevel})
	if err != nil {
		return err
	}
	defer flush()

	palette, err := theme.LoadGPL(cfg.UI.Palette)
	if err != nil {
		return err
	}
	th := theme.New(palette)

	keys := &input.KeyHub{}
	pointer := &input.PointerHub{}
	overlay := widgets.NewHandOverlay(th)

	var keySource input.KeySource = keys
	if opts.evdevPath != "" {
		src, err := input.OpenEvdevKeySource(opts.evdevPath)
		if err != nil {
			return err
		}
		defer src.Close()
		keySource = src
	}

	inOpts := []input.Option{
		input.WithLogger(logger.Named("input")),
		input.WithKeySource(keySource),
		input.WithPointerSource(pointer),
		input.WithMIDIHost(input.NewGomidiHost()),
	}
	if cfg.Hand.Command != "" {
		inOpts = append(inOpts, input.WithHandTracking(input.NewCommandHandHost(overlay, cfg.Hand.Command, cfg.Hand.Args...)))
	}
	inputMgr := input.NewManager(inOpts...)
	defer inputMgr.DisableAll()

	outputMgr := output.NewManager(
		output.WithLogger(logger.Named("output")),
		output.WithMIDIOutHost(output.NewGomidiOutHost()),
	)
	defer func() {
		if err := outputMgr.Close(); err != nil {
			logger.Warn("output close", zap.Error(err))
		}
	}()

	router := tui.NewRouter(outputMgr, cfg.Pointer.MinNote, cfg.Pointer.MaxNote, debug.Sampled(logger.Named("router"), 10, 50))
	router.OneShot = cfg.KeyReleaseTimeout()
	unsubscribe := inputMgr.Subscribe(router.Handle)
	defer unsubscribe()

	var problems []string
	ctx := context.Background()
	kinds, err := cfg.EnabledInputs()
	if err != nil {
		return err
	}
	for _, kind := range kinds {
		if err := inputMgr.Enable(ctx, kind, cfg.AdapterConfig(kind)); err != nil {
			problems = append(problems, err.Error())
		}
	}
	outKind, err := cfg.OutputKind()
	if err != nil {
		return err
	}
	if err := outputMgr.SetOutput(ctx, outKind, cfg.Output.Config); err != nil {
		problems = append(problems, err.Error())
	}

	term := tui.NewTerminalInput(keys, pointer, cfg.KeyReleaseTimeout())
	m := tui.NewModel(inputMgr, outputMgr, router, term, overlay, th, cfg, logger.Named("tui"))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithReportFocus())

	if len(problems) > 0 {
		go p.Send(tui.StatusMsg(strings.Join(problems, "; ")))
	}

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
