package logctx

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
)

type recordingLogger struct {
	fields []observability.Field
}

func (*recordingLogger) Debug(string, ...observability.Field) {}
func (*recordingLogger) Info(string, ...observability.Field)  {}
func (*recordingLogger) Warn(string, ...observability.Field)  {}
func (*recordingLogger) Error(string, ...observability.Field) {}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}

func TestFromOrFallsBack(t *testing.T) {
	t.Parallel()

	fallback := &recordingLogger{}
	if got := FromOr(context.Background(), fallback); got != fallback {
		t.Fatalf("expected fallback logger, got %v", got)
	}

	scoped := &recordingLogger{}
	ctx := With(context.Background(), scoped)
	if got := FromOr(ctx, fallback); got != scoped {
		t.Fatalf("expected context logger, got %v", got)
	}
}

func TestWithFieldsExtendsContextLogger(t *testing.T) {
	t.Parallel()

	base := &recordingLogger{}
	ctx := WithFields(context.Background(), base, observability.F("checkout_id", "c1"))
	ctx = WithFields(ctx, nil, observability.F("payment_id", "p1"))

	got, ok := From(ctx).(*recordingLogger)
	if !ok {
		t.Fatalf("expected recording logger on context, got %T", From(ctx))
	}
	if len(got.fields) != 2 || got.fields[0].Key != "checkout_id" || got.fields[1].Key != "payment_id" {
		t.Fatalf("unexpected fields %+v", got.fields)
	}
}

func TestWithFieldsWithoutLogger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := WithFields(ctx, nil, observability.F("k", "v")); got != ctx {
		t.Fatal("expected context unchanged when no logger is available")
	}
}
