package tracing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/settings"
	"github.com/peercoin/warnd/ulogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

var (
	mu sync.Mutex
	tp *sdktrace.TracerProvider
)

// InitTracer installs the global OTLP/HTTP tracer provider when tracing is
// enabled. Calling it again while a provider is installed is a no-op.
func InitTracer(serviceName string, tSettings *settings.Settings) error {
	if !tSettings.Tracing.Enabled {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	if tp != nil {
		return nil
	}

	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(tSettings.Tracing.CollectorURL),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return errors.NewConfigurationError("failed to create OTLP exporter for %s", tSettings.Tracing.CollectorURL, err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(tSettings.Version),
			attribute.String("commit", tSettings.Commit),
		),
	)
	if err != nil {
		return errors.NewConfigurationError("failed to create tracing resource", err)
	}

	installProvider(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tSettings.Tracing.SampleRate))),
		sdktrace.WithResource(res),
	))

	return nil
}

// installProvider must be called with mu held.
func installProvider(provider *sdktrace.TracerProvider) {
	tp = provider

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// ShutdownTracer flushes and stops the tracer provider. An unreachable
// collector is logged rather than returned, spans are best effort.
func ShutdownTracer(ctx context.Context, logger ulogger.Logger) error {
	mu.Lock()
	defer mu.Unlock()

	if tp == nil {
		return nil
	}

	defer func() {
		tp = nil
	}()

	var flushErr error

	if err := tp.ForceFlush(ctx); err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			logger.Errorf("[Tracing] failed to flush spans: %v", err)
		} else {
			flushErr = errors.NewProcessingError("failed to flush spans", err)
		}
	}

	if err := tp.Shutdown(ctx); err != nil {
		return errors.NewProcessingError("failed to shutdown tracer", err)
	}

	return flushErr
}
