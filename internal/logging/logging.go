// Package logging builds the application logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level slog.Level
	// JSON selects the JSON handler instead of the text one.
	JSON bool
	// File, when set, is a log file rotated by size instead of stdout.
	File string
}

// New returns a logger for opts and the writer it logs to. The writer must be
// closed on exit when it is a file.
func New(opts Options) (*slog.Logger, io.WriteCloser) {
	var w io.WriteCloser = nopCloser{os.Stdout}
	if opts.File != "" {
		w = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	return slog.New(newHandler(w, opts)), w
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	ho := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
