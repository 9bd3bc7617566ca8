package input

import "errors"

// Failure taxonomy shared by input adapters and output engines. Callers
// compare with errors.Is; adapters wrap these with detail.
var (
	// ErrUnsupportedHardware means the host has no such facility at all
	// (no MIDI driver, no key source, no tracker wired in).
	ErrUnsupportedHardware = errors.New("unsupported hardware")
	// ErrPermissionDenied means the facility exists but access was refused.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNoDeviceFound means access succeeded but nothing usable is attached.
	ErrNoDeviceFound = errors.New("no device found")
	// ErrUnknownKind is returned for an adapter or output kind that does not exist.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrInvalidConfig is returned when a config does not match the requested kind.
	ErrInvalidConfig = errors.New("invalid config")
)
