// Package tracing wraps an OpenTelemetry span together with a gocore stat, an
// optional prometheus histogram and start/done log lines, so one call times an
// operation everywhere it is observed.
package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/ordishs/gocore"
	"github.com/peercoin/warnd/ulogger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type statKey struct{}

var rootStat = gocore.NewStat("no root", true)

type Options func(s *TraceOptions)

type TraceOptions struct {
	ParentStat *gocore.Stat
	Histogram  prometheus.Observer
	Tags       []attribute.KeyValue
	Logger     ulogger.Logger
	LogMessage string
	LogArgs    []interface{}
}

// WithParentStat nests the operation's stat under stat when the context does
// not already carry one.
func WithParentStat(stat *gocore.Stat) Options {
	return func(s *TraceOptions) {
		s.ParentStat = stat
	}
}

// WithHistogram observes the duration in seconds when the span ends.
func WithHistogram(histogram prometheus.Observer) Options {
	return func(s *TraceOptions) {
		s.Histogram = histogram
	}
}

func WithTag(key, value string) Options {
	return func(s *TraceOptions) {
		s.Tags = append(s.Tags, attribute.String(key, value))
	}
}

// WithLogMessage logs the formatted message at debug level when the span
// starts, and again with its duration when it ends.
func WithLogMessage(logger ulogger.Logger, format string, args ...interface{}) Options {
	return func(s *TraceOptions) {
		s.Logger = logger
		s.LogMessage = format
		s.LogArgs = args
	}
}

// UTracer starts spans on a named OpenTelemetry tracer. Until InitTracer has
// installed a provider the spans are no-ops, the stats and logs still apply.
type UTracer struct {
	tracer trace.Tracer
}

func Tracer(name string) *UTracer {
	return &UTracer{tracer: otel.Tracer(name)}
}

// Start begins spanName and returns the context carrying the span and its
// stat, the span, and the function that ends both. An error passed to the end
// function is recorded on the span and in the done log line.
func (u *UTracer) Start(ctx context.Context, spanName string, setOptions ...Options) (context.Context, trace.Span, func(...error)) {
	options := &TraceOptions{}
	for _, opt := range setOptions {
		opt(options)
	}

	ctx, span := u.tracer.Start(ctx, spanName, trace.WithAttributes(options.Tags...))

	start, stat, ctx := statFromContext(ctx, spanName, options.ParentStat)

	if options.Logger != nil && options.LogMessage != "" {
		options.Logger.Debugf(options.LogMessage, options.LogArgs...)
	}

	return ctx, span, func(errs ...error) {
		var err error

		for _, e := range errs {
			if e != nil {
				err = e
				break
			}
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
		stat.AddTime(start)

		if options.Histogram != nil {
			options.Histogram.Observe(time.Since(start).Seconds())
		}

		if options.Logger != nil && options.LogMessage != "" {
			done := fmt.Sprintf(" DONE in %s", time.Since(start))
			if err != nil {
				done += fmt.Sprintf(" with error: %v", err)
			}

			options.Logger.Debugf(options.LogMessage+done, options.LogArgs...)
		}
	}
}

// StartTracing starts name on the default tracer and also returns its stat,
// for handlers that time nested work themselves.
func StartTracing(ctx context.Context, name string, setOptions ...Options) (context.Context, *gocore.Stat, func(...error)) {
	ctx, _, endFn := Tracer("warnd").Start(ctx, name, setOptions...)

	return ctx, StatFromContext(ctx), endFn
}

// StatFromContext returns the stat of the innermost traced operation in ctx,
// or the root stat.
func StatFromContext(ctx context.Context) *gocore.Stat {
	if stat, ok := ctx.Value(statKey{}).(*gocore.Stat); ok {
		return stat
	}

	return rootStat
}

func statFromContext(ctx context.Context, key string, defaultParent *gocore.Stat) (time.Time, *gocore.Stat, context.Context) {
	parent, ok := ctx.Value(statKey{}).(*gocore.Stat)
	if !ok {
		parent = defaultParent
	}

	if parent == nil {
		parent = rootStat
	}

	stat := parent.NewStat(key, true)

	return gocore.CurrentTime(), stat, context.WithValue(ctx, statKey{}, stat)
}
