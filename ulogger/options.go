package ulogger

import (
	"io"
	"os"
)

type Options struct {
	logLevel   string
	loggerType string
	writer     io.Writer
	skip       int
}

type Option func(*Options)

func DefaultOptions() *Options {
	return &Options{
		logLevel:   "INFO",
		loggerType: "zerolog",
		writer:     os.Stdout,
		skip:       0,
	}
}

func WithLevel(level string) Option {
	return func(o *Options) {
		o.logLevel = level
	}
}

// WithLoggerType selects the backend: "zerolog" (default) or "gocore".
func WithLoggerType(loggerType string) Option {
	return func(o *Options) {
		o.loggerType = loggerType
	}
}

func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.writer = w
	}
}

func WithSkipFrame(skip int) Option {
	return func(o *Options) {
		o.skip = skip
	}
}
