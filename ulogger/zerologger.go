package ulogger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ordishs/gocore"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// callerSkip hides the wrapper's own Debugf/Infof/... frame from the caller field.
var callerSkip = zerolog.CallerSkipFrameCount + 1

var zerologLevels = map[string]zerolog.Level{
	"DEBUG": zerolog.DebugLevel,
	"INFO":  zerolog.InfoLevel,
	"WARN":  zerolog.WarnLevel,
	"ERROR": zerolog.ErrorLevel,
	"FATAL": zerolog.FatalLevel,
	"PANIC": zerolog.PanicLevel,
}

var gocoreLevels = map[zerolog.Level]int{
	zerolog.DebugLevel: int(gocore.DEBUG),
	zerolog.InfoLevel:  int(gocore.INFO),
	zerolog.WarnLevel:  int(gocore.WARN),
	zerolog.ErrorLevel: int(gocore.ERROR),
	zerolog.FatalLevel: int(gocore.FATAL),
}

// levelColors matches the gocore console colours.
var levelColors = map[string]int{
	"debug": colorBlue,
	"info":  colorGreen,
	"warn":  colorYellow,
	"error": colorRed,
	"fatal": colorRed,
	"panic": colorRed,
}

type ZLoggerWrapper struct {
	zerolog.Logger
	service string
	w       io.Writer
}

// NewZeroLogger logs JSON lines tagged with service, or console lines when
// PRETTY_LOGS is set (the default).
func NewZeroLogger(service string, options ...Option) *ZLoggerWrapper {
	if service == "" {
		service = "warnd"
	}

	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	var ctx zerolog.Context
	if gocore.Config().GetBool("PRETTY_LOGS", true) {
		ctx = zerolog.New(consoleWriter(opts.writer, service)).With()
	} else {
		ctx = zerolog.New(opts.writer).With().Str("service", service)
	}

	z := &ZLoggerWrapper{
		Logger:  ctx.CallerWithSkipFrameCount(callerSkip).Timestamp().Logger(),
		service: service,
		w:       opts.writer,
	}

	z.SetLogLevel(opts.logLevel)
	z.Logger.Debug().Msgf("Zerolog logger initialized with level %s", opts.logLevel)

	return z
}

func consoleWriter(writer io.Writer, service string) zerolog.ConsoleWriter {
	noColor := true
	if f, ok := writer.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}

	output := zerolog.ConsoleWriter{
		Out:        writer,
		NoColor:    noColor,
		TimeFormat: "15:04:05",
	}

	output.FormatLevel = func(i interface{}) string {
		name, _ := i.(string)
		return fmt.Sprintf("| %s|", colorize(strings.ToUpper(fmt.Sprintf("%-6s", name)), levelColors[name], noColor))
	}

	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("| %-6s| %s", service, i)
	}

	output.FormatCaller = func(i interface{}) string {
		c, _ := i.(string)
		if c == "" {
			return c
		}

		return colorize(fmt.Sprintf("%-32s", shortCaller(c)), colorBold, noColor)
	}

	return output
}

// shortCaller trims a caller path to its package directory and file,
// e.g. "warnings/notify.go:88".
func shortCaller(c string) string {
	return filepath.Join(filepath.Base(filepath.Dir(c)), filepath.Base(c))
}

func (z *ZLoggerWrapper) New(service string, options ...Option) Logger {
	// the child inherits the parent's writer and level unless overridden
	o := []Option{
		WithWriter(z.w),
		WithLoggerType("zerolog"),
		WithLevel(z.Logger.GetLevel().String()),
	}

	return NewZeroLogger(service, append(o, options...)...)
}

func (z *ZLoggerWrapper) Duplicate(options ...Option) Logger {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	newLogger := &ZLoggerWrapper{z.Logger, z.service, z.w}

	if opts.logLevel != DefaultOptions().logLevel {
		newLogger.SetLogLevel(opts.logLevel)
	}

	return newLogger
}

// SetLogLevel falls back to INFO for unknown level names.
func (z *ZLoggerWrapper) SetLogLevel(logLevel string) {
	lvl, ok := zerologLevels[strings.ToUpper(logLevel)]
	if !ok {
		lvl = zerolog.InfoLevel
	}

	z.Logger = z.Logger.Level(lvl)
}

func (z *ZLoggerWrapper) LogLevel() int {
	if lvl, ok := gocoreLevels[z.Logger.GetLevel()]; ok {
		return lvl
	}

	return int(gocore.INFO)
}

func (z *ZLoggerWrapper) Debugf(format string, args ...interface{}) {
	z.Logger.Debug().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Infof(format string, args ...interface{}) {
	z.Logger.Info().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Warnf(format string, args ...interface{}) {
	z.Logger.Warn().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Errorf(format string, args ...interface{}) {
	z.Logger.Error().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Fatalf(format string, args ...interface{}) {
	z.Logger.Fatal().Msgf(format, args...)
}

// colorize wraps s in ANSI code c. NO_COLOR in the environment disables it.
func colorize(s string, c int, disabled bool) string {
	if disabled || c == 0 || os.Getenv("NO_COLOR") != "" {
		return s
	}

	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", c, s)
}
