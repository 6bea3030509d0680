// Package logging configures the CLI's diagnostic log output: a plain
// *log.Logger (matching the rest of the codebase's direct stdlib "log"
// usage) writing to a rotated file via lumberjack, with stderr left free
// for the user-facing output internal/ui renders.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

var std = log.New(io.Discard, "", log.LstdFlags)

// Options configures the rotating file sink.
type Options struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Initialize points the package logger at a rotated file under Path. Call
// once at process startup; subsequent calls replace the sink.
func Initialize(opts Options) error {
	if opts.Path == "" {
		std = log.New(io.Discard, "", log.LstdFlags)
		return nil
	}
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 3
	}
	if opts.MaxAgeDays == 0 {
		opts.MaxAgeDays = 28
	}
	sink := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	std = log.New(sink, "", log.LstdFlags|log.Lshortfile)
	return nil
}

func Printf(format string, args ...interface{}) { std.Printf(format, args...) }
func Println(args ...interface{})               { std.Println(args...) }

// Fatalf logs then exits 1.
func Fatalf(format string, args ...interface{}) {
	std.Printf(format, args...)
	os.Exit(1)
}
