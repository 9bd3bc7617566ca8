package input

import (
	"context"
	"fmt"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// enumerateTimeout bounds port enumeration; CoreMIDI can hang
const enumerateTimeout = 3 * time.Second

// GomidiHost is a MIDIHost over the registered gomidi driver. The binary
// registers the driver, e.g. with a blank import of drivers/rtmididrv.
type GomidiHost struct{}

func NewGomidiHost() *GomidiHost {
	return &GomidiHost{}
}

func (h *GomidiHost) InPorts(ctx context.Context) ([]MIDIInPort, error) {
	if drivers.Get() == nil {
		return nil, fmt.Errorf("%w: no MIDI driver registered", ErrUnsupportedHardware)
	}

	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()

	var ins []drivers.In
	select {
	case ins = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(enumerateTimeout):
		return nil, fmt.Errorf("%w: port enumeration timed out", ErrPermissionDenied)
	}

	ports := make([]MIDIInPort, 0, len(ins))
	for _, in := range ins {
		ports = append(ports, gomidiInPort{in: in})
	}
	return ports, nil
}

type gomidiInPort struct {
	in drivers.In
}

func (p gomidiInPort) Name() string {
	return p.in.String()
}

func (p gomidiInPort) Listen(fn func(msg []byte)) (func(), error) {
	stop, err := gomidi.ListenTo(p.in, func(msg gomidi.Message, timestampms int32) {
		fn([]byte(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", p.in.String(), err)
	}
	return stop, nil
}
