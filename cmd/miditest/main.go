package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-instrument/debug"
	"go-instrument/input"
	"go-instrument/music"
	"go-instrument/output"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "monitor":
		err = monitor(os.Args[2:])
	case "note":
		err = testNote(os.Args[2:])
	case "panic":
		err = panicPort(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                 - List all MIDI ports")
	fmt.Println("  monitor [filter]     - Print decoded input events, following hot-plug")
	fmt.Println("  note [port] [note]   - Play a test note (default C4) on an output")
	fmt.Println("  panic [port]         - Send all-notes-off on an output")
}

func listPorts() error {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ins, err := input.NewGomidiHost().InPorts(context.Background())
	if err != nil {
		fmt.Println("\nFix on macOS if CoreMIDI is hung: sudo killall coreaudiod midiserver")
		return err
	}
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p.Name())
	}

	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range output.NewGomidiOutHost().OutPorts() {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

func monitor(args []string) error {
	cfg := input.DefaultMIDIConfig()
	if len(args) > 0 {
		cfg.PortFilter = args[0]
	}
	// attach/detach messages go to the terminal
	logger, flush, err := debug.New(debug.Options{Enabled: true, Path: "-", Level: zapcore.InfoLevel})
	if err != nil {
		return err
	}
	defer flush()

	fmt.Println("Listening for MIDI input. Connect/disconnect devices any time. Ctrl+C to exit.")
	a, err := input.NewMIDIAdapter(context.Background(), input.NewGomidiHost(), cfg, printEvent, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	return nil
}

func printEvent(ev input.Event) {
	stamp := time.Now().Format("15:04:05.000")
	switch ev := ev.(type) {
	case input.NoteOn:
		fmt.Printf("[%s] ch%-2d note-on  %-4s vel %.2f\n", stamp, ev.Channel+1, music.NoteName(ev.Note), ev.Velocity)
	case input.NoteOff:
		fmt.Printf("[%s] ch%-2d note-off %s\n", stamp, ev.Channel+1, music.NoteName(ev.Note))
	case input.ControlChange:
		fmt.Printf("[%s] ch%-2d cc %3d = %.2f\n", stamp, ev.Channel+1, ev.Control, ev.Value)
	}
}

func openOut(args []string) (*output.MIDIOut, error) {
	cfg := output.Config{}
	if len(args) > 0 {
		cfg.Port = args[0]
	}
	o, err := output.NewMIDIOut(output.NewGomidiOutHost(), cfg, zap.NewNop())
	if err != nil {
		return nil, err
	}
	fmt.Printf("Using output: %s\n", o.Port())
	return o, nil
}

func testNote(args []string) error {
	note := 60
	if len(args) > 1 {
		n, err := music.ParseNote(args[1])
		if err != nil {
			return err
		}
		note = n
	}
	o, err := openOut(args)
	if err != nil {
		return err
	}
	defer o.Close()

	fmt.Printf("Playing %s for 1s...\n", music.NoteName(note))
	o.PlayNote(note, time.Second, 0.8)
	// the scheduled note-off must go out before the port closes
	time.Sleep(1200 * time.Millisecond)
	fmt.Println("Done!")
	return nil
}

func panicPort(args []string) error {
	o, err := openOut(args)
	if err != nil {
		return err
	}
	defer o.Close()

	o.StopAll()
	fmt.Printf("Sent all-notes-off to %s\n", o.Port())
	return nil
}
