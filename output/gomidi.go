package output

import (
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-instrument/input"
)

// GomidiOutHost opens output ports of the registered gomidi driver
type GomidiOutHost struct{}

func NewGomidiOutHost() *GomidiOutHost {
	return &GomidiOutHost{}
}

func (h *GomidiOutHost) OutPorts() []string {
	if drivers.Get() == nil {
		return nil
	}
	var names []string
	for _, out := range gomidi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

// Open picks the first port whose name contains port (case-insensitive),
// or the first port when port is empty.
func (h *GomidiOutHost) Open(port string) (MIDISender, error) {
	if drivers.Get() == nil {
		return nil, fmt.Errorf("%w: no MIDI driver registered", input.ErrUnsupportedHardware)
	}
	outs := gomidi.GetOutPorts()
	want := strings.ToLower(port)
	for _, out := range outs {
		if want != "" && !strings.Contains(strings.ToLower(out.String()), want) {
			continue
		}
		send, err := gomidi.SendTo(out)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", input.ErrPermissionDenied, out.String(), err)
		}
		return &gomidiSender{out: out, send: send}, nil
	}
	if port == "" {
		return nil, fmt.Errorf("%w: no MIDI output ports", input.ErrNoDeviceFound)
	}
	return nil, fmt.Errorf("%w: no MIDI output matching %q", input.ErrNoDeviceFound, port)
}

type gomidiSender struct {
	out  drivers.Out
	send func(msg gomidi.Message) error
}

func (s *gomidiSender) Name() string { return s.out.String() }

func (s *gomidiSender) Send(msg []byte) error {
	return s.send(gomidi.Message(msg))
}

func (s *gomidiSender) Close() error {
	return s.out.Close()
}
