//go:build !linux

package input

import "fmt"

// EvdevKeySource is only available on Linux
type EvdevKeySource struct {
	KeyHub
}

func OpenEvdevKeySource(path string) (*EvdevKeySource, error) {
	return nil, fmt.Errorf("%w: evdev needs linux (%s)", ErrUnsupportedHardware, path)
}

func (s *EvdevKeySource) Close() error { return nil }
