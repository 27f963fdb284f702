package httppresentation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability/logctx"
)

type fieldLogger struct {
	fields []observability.Field
}

func (l *fieldLogger) With(fields ...observability.Field) observability.Logger {
	return &fieldLogger{fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}
func (l *fieldLogger) Debug(string, ...observability.Field) {}
func (l *fieldLogger) Info(string, ...observability.Field)  {}
func (l *fieldLogger) Warn(string, ...observability.Field)  {}
func (l *fieldLogger) Error(string, ...observability.Field) {}

func TestObservabilityMiddlewareScopesLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requestID string
	}{
		{"echoes caller id", "req-42"},
		{"generates id", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got map[string]any
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				l, ok := logctx.From(r.Context()).(*fieldLogger)
				if !ok {
					t.Errorf("expected request logger in context")
					return
				}
				got = map[string]any{}
				for _, f := range l.fields {
					got[f.Key] = f.Value
				}
			})

			mw := ObservabilityMiddleware(&fieldLogger{}, func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			})
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set(headerRequestID, tt.requestID)
			req.Header.Set("X-Tenant-ID", "tenant-1")
			rec := httptest.NewRecorder()
			mw(next).ServeHTTP(rec, req)

			echoed := rec.Header().Get(headerRequestID)
			if echoed == "" || (tt.requestID != "" && echoed != tt.requestID) {
				t.Fatalf("unexpected echoed request id %q", echoed)
			}
			if got["request_id"] != echoed {
				t.Fatalf("expected request_id %q in logger, got %v", echoed, got)
			}
			if _, ok := got["tenant_id"]; ok {
				t.Fatalf("unexpected tenant_id field: %v", got)
			}
		})
	}
}
