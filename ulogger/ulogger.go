package ulogger

import "github.com/ordishs/gocore"

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
	colorCyan
	colorWhite

	colorBold     = 1
	colorDarkGray = 90
)

type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

func New(service string, options ...Option) Logger {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	switch opts.loggerType {
	case "gocore":
		return NewGoCoreLogger(service, options...)
	default:
		return NewZeroLogger(service, options...)
	}
}

// LogLevelString maps a numeric level returned by Logger.LogLevel to its name.
func LogLevelString(level int) string {
	switch level {
	case int(gocore.DEBUG):
		return "DEBUG"
	case int(gocore.INFO):
		return "INFO"
	case int(gocore.WARN):
		return "WARN"
	case int(gocore.ERROR):
		return "ERROR"
	case int(gocore.FATAL):
		return "FATAL"
	default:
		return "INFO"
	}
}
