// Package logging builds the logrus logger shared by every component.
//
// The TUI owns the terminal, so interactive sessions write JSON lines to a
// file. CLI commands and the server write text to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Options selects where and how much to log.
type Options struct {
	Level   string
	File    string // JSON lines; empty discards file logging
	Console bool   // text to stderr instead of File
}

// New returns a configured logger and a func that closes its output.
func New(opts Options) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	noop := func() error { return nil }

	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, noop, fmt.Errorf("parsing log level: %w", err)
		}
		level = l
	}
	log.SetLevel(level)

	if opts.Console {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
		log.SetOutput(os.Stderr)
		return log, noop, nil
	}

	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "15:04:05.000"})
	log.AddHook(&seqHook{})
	if opts.File == "" {
		log.SetOutput(io.Discard)
		return log, noop, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, noop, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(f)
	return log, f.Close, nil
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// seqHook numbers entries so interleaved goroutine output can be ordered
// when reading the file.
type seqHook struct {
	seq atomic.Int64
}

func (h *seqHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *seqHook) Fire(e *logrus.Entry) error {
	e.Data["seq"] = h.seq.Add(1)
	return nil
}
