package logging

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the optional log file.
const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 14
)

// NewLogWriter returns stdout, or stdout teed into a rotating file when path is set.
// The returned closer must be closed on shutdown; it is a no-op for stdout only.
func NewLogWriter(path string) (io.Writer, io.Closer) {
	if path == "" {
		return os.Stdout, nopCloser{}
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotator), rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
