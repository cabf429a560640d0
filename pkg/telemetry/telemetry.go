package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sweetpotato0/ai-summary/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// InstrumentationName is the tracer name used by this module.
const InstrumentationName = "github.com/sweetpotato0/ai-summary"

const flushTimeout = 5 * time.Second

// Config selects where spans go. With no Endpoint (and no
// OTEL_EXPORTER_OTLP_ENDPOINT) spans are written as JSON to Writer, stderr by
// default, so they never mix with streamed text on stdout.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Writer         io.Writer
	Disable        bool
	Logger         *slog.Logger
}

// Shutdown flushes pending spans.
type Shutdown func(context.Context) error

// Init installs a global tracer provider for the CLI run. Spans of a prompt
// call are short-lived, so they are exported synchronously when writing to a
// local Writer and batched when sent to a collector.
func Init(ctx context.Context, cfg Config) (Shutdown, error) {
	if cfg.Disable {
		return func(context.Context) error { return nil }, nil
	}
	cfg = cfg.withDefaults()

	processor, err := newProcessor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(newResource(cfg)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			cfg.Logger.Error("telemetry shutdown failed", "error", err)
			return err
		}
		return nil
	}, nil
}

func (c Config) withDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = "ai-summary"
	}
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if c.Writer == nil {
		c.Writer = os.Stderr
	}
	if c.Logger == nil {
		c.Logger = logging.WithComponent("telemetry")
	}
	return c
}

func newResource(cfg Config) *resource.Resource {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(cfg.ServiceVersion))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func newProcessor(ctx context.Context, cfg Config) (sdktrace.SpanProcessor, error) {
	if cfg.Endpoint == "" {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Writer))
		if err != nil {
			return nil, fmt.Errorf("telemetry: create writer exporter: %w", err)
		}
		return sdktrace.NewSimpleSpanProcessor(exp), nil
	}

	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create OTLP exporter for %s: %w", cfg.Endpoint, err)
	}
	cfg.Logger.Debug("OTLP trace exporter configured", "endpoint", cfg.Endpoint)
	return sdktrace.NewBatchSpanProcessor(exp), nil
}

// Tracer returns the module tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
