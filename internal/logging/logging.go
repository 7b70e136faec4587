// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Init installs a text handler on stderr as the default logger. Verbose
// enables debug records.
func Init(verbose bool) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, options(verbose))))
}

// InitWithFile behaves like Init and also appends records to a size-rotated
// log file. An empty path is the same as Init.
func InitWithFile(verbose bool, path string) {
	if path == "" {
		Init(verbose)
		return
	}
	rotating := &lumberjack.Logger{
		Filename: path,
		MaxSize:  25,
		Compress: true,
	}
	out := io.MultiWriter(os.Stderr, rotating)
	slog.SetDefault(slog.New(slog.NewTextHandler(out, options(verbose))))
}

func options(verbose bool) *slog.HandlerOptions {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
