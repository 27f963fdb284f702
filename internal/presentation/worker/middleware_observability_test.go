package workerpresentation

import (
	"context"
	"errors"
	"testing"

	domoutbox "github.com/Zhima-Mochi/paygate-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability/logctx"
	"go.opentelemetry.io/otel/trace"
)

type namedEvent struct{}

func (namedEvent) EventName() string { return "checkout.state_changed" }

type fieldLogger struct {
	fields []observability.Field
	warns  *int
}

func (l *fieldLogger) With(fields ...observability.Field) observability.Logger {
	return &fieldLogger{fields: append(append([]observability.Field(nil), l.fields...), fields...), warns: l.warns}
}
func (*fieldLogger) Debug(string, ...observability.Field) {}
func (*fieldLogger) Info(string, ...observability.Field)  {}
func (l *fieldLogger) Warn(string, ...observability.Field) {
	*l.warns++
}
func (*fieldLogger) Error(string, ...observability.Field) {}

func keys(fields []observability.Field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func TestWithEventContextGeneratesEventID(t *testing.T) {
	t.Parallel()

	base := &fieldLogger{warns: new(int)}
	ctx := WithEventContext(context.Background(), base, trace.TraceID{}, trace.SpanID{}, map[string]string{
		"checkout_id": "c1",
		"empty":       "",
	})

	got := keys(logctx.From(ctx).(*fieldLogger).fields)
	if id, _ := got["event_id"].(string); id == "" {
		t.Fatalf("expected generated event_id, got %v", got)
	}
	if got["checkout_id"] != "c1" {
		t.Fatalf("expected checkout_id attribute, got %v", got)
	}
	if _, ok := got["empty"]; ok {
		t.Fatal("empty attributes must be skipped")
	}
	if _, ok := got["trace_id"]; ok {
		t.Fatal("invalid trace ids must be skipped")
	}
}

func TestEventMiddlewareScopesLoggerAndWarnsOnError(t *testing.T) {
	t.Parallel()

	base := &fieldLogger{warns: new(int)}
	var seen map[string]any
	h := EventMiddleware(base)(func(ctx context.Context, _ domoutbox.Event) error {
		seen = keys(logctx.From(ctx).(*fieldLogger).fields)
		return errors.New("handler failed")
	})

	if err := h(context.Background(), namedEvent{}); err == nil {
		t.Fatal("expected handler error to propagate")
	}
	if seen["event"] != "checkout.state_changed" {
		t.Fatalf("expected event field, got %v", seen)
	}
	if *base.warns != 1 {
		t.Fatalf("expected one warning, got %d", *base.warns)
	}
}
