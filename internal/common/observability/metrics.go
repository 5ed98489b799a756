// internal/common/observability/metrics.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	tracer        trace.Tracer
	phaseCounter  otelmetric.Int64Counter
	phaseDuration otelmetric.Float64Histogram
	runCounter    otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	phaseCounter, _ := meter.Int64Counter(
		"research.phases.executed",
		otelmetric.WithDescription("Number of state machine phases executed"),
	)

	phaseDuration, _ := meter.Float64Histogram(
		"research.phases.duration",
		otelmetric.WithDescription("Phase execution duration"),
		otelmetric.WithUnit("ms"),
	)

	runCounter, _ := meter.Int64Counter(
		"research.runs.completed",
		otelmetric.WithDescription("Number of research runs completed"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		tracer:        otel.Tracer(serviceName),
		phaseCounter:  phaseCounter,
		phaseDuration: phaseDuration,
		runCounter:    runCounter,
	}
}

// StartPhase opens a span covering one state machine phase. The returned
// function ends the span and must be called when the phase completes.
func (o *Observability) StartPhase(ctx context.Context, phase string) (context.Context, func()) {
	if o.tracer == nil {
		return ctx, func() {}
	}
	spanCtx, span := o.tracer.Start(ctx, "research.phase."+phase,
		trace.WithAttributes(attribute.String("phase", phase)))
	return spanCtx, func() { span.End() }
}

func (o *Observability) RecordPhase(ctx context.Context, phase string, duration time.Duration) {
	if o.phaseCounter != nil {
		o.phaseCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("phase", phase),
		))
	}
	if o.phaseDuration != nil {
		o.phaseDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("phase", phase),
		))
	}
}

func (o *Observability) RecordRunCompleted(ctx context.Context, outcome string) {
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
