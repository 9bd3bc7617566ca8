package input

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// JSONTracker decodes newline-delimited landmark frames, as printed by a
// MediaPipe helper process:
//
//	{"hands":[[{"x":0.51,"y":0.62}, ... 21 points]]}
//
// Lines that do not parse are dropped.
type JSONTracker struct {
	r io.Reader

	mu      sync.Mutex
	onFrame func(HandFrame)
}

type jsonFrame struct {
	Hands [][]struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"hands"`
}

func NewJSONTracker(r io.Reader) *JSONTracker {
	return &JSONTracker{r: r}
}

// Start reads frames in a goroutine until the reader ends or Close is called
func (t *JSONTracker) Start(onFrame func(HandFrame)) error {
	if t.r == nil {
		return fmt.Errorf("%w: tracker has no frame stream", ErrNoDeviceFound)
	}
	t.mu.Lock()
	t.onFrame = onFrame
	t.mu.Unlock()

	go t.run()
	return nil
}

func (t *JSONTracker) run() {
	sc := bufio.NewScanner(t.r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		frame, ok := ParseLandmarkFrame(sc.Bytes())
		if !ok {
			continue
		}
		t.mu.Lock()
		fn := t.onFrame
		t.mu.Unlock()
		if fn == nil {
			return
		}
		fn(frame)
	}
}

// ParseLandmarkFrame decodes one JSON frame line
func ParseLandmarkFrame(line []byte) (HandFrame, bool) {
	var jf jsonFrame
	if err := json.Unmarshal(line, &jf); err != nil {
		return HandFrame{}, false
	}
	frame := HandFrame{Hands: make([][]Point, 0, len(jf.Hands))}
	for _, h := range jf.Hands {
		pts := make([]Point, len(h))
		for i, p := range h {
			pts[i] = Point{X: p.X, Y: p.Y}
		}
		frame.Hands = append(frame.Hands, pts)
	}
	return frame, true
}

// Close detaches the frame callback; frames already being read are dropped.
// If the reader is an io.Closer it is closed too.
func (t *JSONTracker) Close() error {
	t.mu.Lock()
	t.onFrame = nil
	t.mu.Unlock()
	if c, ok := t.r.(io.Closer); ok {
		// the camera may already have closed its end
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			return err
		}
	}
	return nil
}

// CommandCamera runs an external capture+tracking helper and exposes its
// stdout as the frame stream.
type CommandCamera struct {
	name string
	args []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc
}

func NewCommandCamera(name string, args ...string) *CommandCamera {
	return &CommandCamera{name: name, args: args}
}

func (c *CommandCamera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil {
		return nil
	}
	if _, err := exec.LookPath(c.name); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedHardware, err)
	}

	// the process outlives the Enable call; only Stop ends it
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(runCtx, c.name, c.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	c.cmd, c.stdout, c.cancel = cmd, stdout, cancel
	return nil
}

// Frames returns the helper's stdout, nil before Start
func (c *CommandCamera) Frames() io.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stdout == nil {
		return nil
	}
	return c.stdout
}

// Stop kills the helper and reaps it
func (c *CommandCamera) Stop() error {
	c.mu.Lock()
	cmd, cancel := c.cmd, c.cancel
	c.cmd, c.stdout, c.cancel = nil, nil, nil
	c.mu.Unlock()

	if cmd == nil {
		return nil
	}
	cancel()
	_ = cmd.Wait() // killed on purpose; exit status is noise
	return nil
}

// NewCommandHandHost wires a CommandCamera running name+args into a
// JSONTracker reading its output.
func NewCommandHandHost(display Display, name string, args ...string) *HandHost {
	return &HandHost{
		NewCamera: func() (Camera, error) {
			return NewCommandCamera(name, args...), nil
		},
		NewTracker: func(cam Camera) (HandTracker, error) {
			cc, ok := cam.(*CommandCamera)
			if !ok || cc.Frames() == nil {
				return nil, fmt.Errorf("%w: camera has no frame stream", ErrNoDeviceFound)
			}
			return NewJSONTracker(cc.Frames()), nil
		},
		Display: display,
	}
}
