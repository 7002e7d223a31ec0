// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where logs go.
type Options struct {
	Level slog.Level

	// File, if set, receives logs instead of Stderr and is rotated.
	File string

	Stderr io.Writer
}

// Rotation limits for File.
const (
	maxSizeMB  = 5
	maxBackups = 3
	maxAgeDays = 28
)

// New returns a text logger and a close function that releases the log
// file, if any.
func New(opts Options) (*slog.Logger, func() error) {
	var (
		out     = opts.Stderr
		closeFn = func() error { return nil }
	)

	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
		out = rotating
		closeFn = rotating.Close
	}

	if out == nil {
		out = io.Discard
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: opts.Level})

	return slog.New(handler), closeFn
}
