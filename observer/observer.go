// Package observer provides OTEL-based observability for the ETL pipeline.
//
// It supplies an Instruments bundle of counters and histograms for the
// extract/transform/load phases and a Tracer/Span adapter that satisfies
// skypeetl.Tracer. PhaseManager.StartPhase/EndPhase and the Orchestrator
// do not open spans through it. Users export to any
// OTEL-compatible backend by setting standard OTEL env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/dependable-call-exchange/skypeetl/observer"

// Instruments holds every OTEL instrument the pipeline emits against.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	ConversationsProcessed metric.Int64Counter
	MessagesTransformed    metric.Int64Counter
	AttachmentsLoaded      metric.Int64Counter
	BatchRetries           metric.Int64Counter
	MemorySnapshots        metric.Int64Counter

	PhaseDuration  metric.Float64Histogram
	BatchSize      metric.Int64Histogram
	MemoryUsageMB  metric.Float64Histogram
}

// Init sets up OTEL trace and metric providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT,
// etc.). Returns a shutdown function that must be called on pipeline exit.
func Init(ctx context.Context) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("skypeetl")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	inst, err := newInstruments()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}

	return inst, shutdown, nil
}

func newInstruments() (*Instruments, error) {
	tracer := otel.Tracer(scopeName)
	meter := otel.Meter(scopeName)

	conversationsProcessed, err := meter.Int64Counter("etl.conversations.processed",
		metric.WithDescription("Conversations transformed"),
		metric.WithUnit("{conversation}"))
	if err != nil {
		return nil, err
	}

	messagesTransformed, err := meter.Int64Counter("etl.messages.transformed",
		metric.WithDescription("Messages normalized by the Transformer"),
		metric.WithUnit("{message}"))
	if err != nil {
		return nil, err
	}

	attachmentsLoaded, err := meter.Int64Counter("etl.attachments.loaded",
		metric.WithDescription("Attachment rows inserted by the Loader"),
		metric.WithUnit("{attachment}"))
	if err != nil {
		return nil, err
	}

	batchRetries, err := meter.Int64Counter("etl.load.batch_retries",
		metric.WithDescription("Bulk insert batches retried after shrinking"),
		metric.WithUnit("{retry}"))
	if err != nil {
		return nil, err
	}

	memorySnapshots, err := meter.Int64Counter("etl.memory.snapshots",
		metric.WithDescription("MemoryMonitor polls taken during the run"),
		metric.WithUnit("{snapshot}"))
	if err != nil {
		return nil, err
	}

	phaseDuration, err := meter.Float64Histogram("etl.phase.duration",
		metric.WithDescription("Phase wall-clock duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	batchSize, err := meter.Int64Histogram("etl.load.batch_size",
		metric.WithDescription("Bulk insert batch size used per chunk"),
		metric.WithUnit("{row}"))
	if err != nil {
		return nil, err
	}

	memoryUsageMB, err := meter.Float64Histogram("etl.memory.usage_mb",
		metric.WithDescription("Go heap allocation observed by MemoryMonitor"),
		metric.WithUnit("MB"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:                 tracer,
		Meter:                  meter,
		ConversationsProcessed: conversationsProcessed,
		MessagesTransformed:    messagesTransformed,
		AttachmentsLoaded:      attachmentsLoaded,
		BatchRetries:           batchRetries,
		MemorySnapshots:        memorySnapshots,
		PhaseDuration:          phaseDuration,
		BatchSize:              batchSize,
		MemoryUsageMB:          memoryUsageMB,
	}, nil
}
