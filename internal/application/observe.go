package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanPrefix marks use case spans.
const SpanPrefix = "UC."

// Instruments holds the tracer, base logger and RED metrics of one service.
type Instruments struct {
	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewInstruments(tel observability.Observability, service string) Instruments {
	tel = observability.OrNop(tel)
	return Instruments{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// Run tracks one use case execution. Done ends the span, records the
// request and duration metrics and writes one use_case_done line.
type Run struct {
	in      *Instruments
	useCase string
	span    trace.Span
	logger  observability.Logger
	start   time.Time

	outcome string
	status  string
	fields  []observability.Field
}

// Log is the service base logger.
func (in *Instruments) Log() observability.Logger { return in.log }

func (in *Instruments) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := in.tracer.Start(ctx, SpanPrefix+spanName, attrs...)

	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}

	return logctx.With(ctx, logger), &Run{
		in:      in,
		useCase: useCase,
		span:    span,
		logger:  logger,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

// Fail marks the run as failed with a machine-readable status.
func (r *Run) Fail(status string) {
	r.outcome, r.status = "error", status
}

// Cancel marks the run as abandoned because its context ended.
func (r *Run) Cancel() {
	r.outcome, r.status = "canceled", "CONTEXT_CANCELED"
}

// With adds fields to the use_case_done line.
func (r *Run) With(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// SetStatus overrides the status text without changing the outcome.
func (r *Run) SetStatus(status string) { r.status = status }

// SetAttributes annotates the span.
func (r *Run) SetAttributes(attrs ...attribute.KeyValue) {
	if r.span != nil {
		r.span.SetAttributes(attrs...)
	}
}

// Logger returns the run-scoped logger.
func (r *Run) Logger() observability.Logger { return r.logger }

func (r *Run) Done(err error) {
	lat := time.Since(r.start).Seconds()

	if r.span != nil {
		if r.outcome == "error" {
			if err != nil {
				r.span.RecordError(err)
			}
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.in.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.in.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := append([]observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.logger.Info("use_case_done", fields...)
}
