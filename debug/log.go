package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the debug logger
type Options struct {
	Enabled bool
	// Path of the log file; empty means ~/.config/go-instrument/debug.log.
	// "-" logs to stderr, which fights with a full-screen TUI.
	Path  string
	Level zapcore.Level
}

// LogPath returns the default debug log location
func LogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-instrument", "debug.log"), nil
}

// New builds the application logger. When disabled it returns a no-op
// logger. The returned func flushes and closes the sink.
func New(opts Options) (*zap.Logger, func(), error) {
	if !opts.Enabled {
		return zap.NewNop(), func() {}, nil
	}

	var sink zapcore.WriteSyncer
	closeFn := func() {}
	if opts.Path == "-" {
		sink = zapcore.Lock(os.Stderr)
	} else {
		path := opts.Path
		if path == "" {
			p, err := LogPath()
			if err != nil {
				return nil, nil, err
			}
			path = p
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open debug log: %w", err)
		}
		sink = zapcore.Lock(f)
		closeFn = func() { _ = f.Close() }
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), sink, opts.Level)

	logger := zap.New(core, zap.AddCaller())
	logger.Info("=== Debug logging started ===")
	return logger, func() {
		_ = logger.Sync()
		closeFn()
	}, nil
}

// Sampled wraps l for high-frequency categories such as pointer motion and
// hand frames: per message, the first entries each second are logged and
// after that only every nth.
func Sampled(l *zap.Logger, first, nth int) *zap.Logger {
	return l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(c, time.Second, first, nth)
	}))
}
