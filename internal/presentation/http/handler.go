package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	appcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/application/checkout"
	domcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/domain/checkout"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Handler exposes checkouts over HTTP for a browser front end.
type Handler struct {
	checkouts *appcheckout.Service
	log       observability.Logger
	metrics   observability.Metrics
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	maxBodyBytes         = 64 << 10
)

func NewHandler(checkouts *appcheckout.Service, tel observability.Observability) *Handler {
	tel = observability.OrNop(tel)
	return &Handler{
		checkouts: checkouts,
		log:       tel.Logger().With(observability.F("component", componentHTTPHandler)),
		metrics:   tel.Metrics(),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace → ObservabilityMiddleware (request logger) → HTTP metrics → Access log → Handler
	h.muxHandle(mux, http.MethodPost, "/checkouts", h.handleStart)
	h.muxHandle(mux, http.MethodGet, "/checkouts/{id}", h.handleGet)
	h.muxHandle(mux, http.MethodPut, "/checkouts/{id}/method", h.handleSelectMethod)
	h.muxHandle(mux, http.MethodPost, "/checkouts/{id}/payments", h.handleSubmit)
	h.muxHandle(mux, http.MethodPost, "/checkouts/{id}/retry", h.handleRetry)
	h.muxHandle(mux, http.MethodDelete, "/checkouts/{id}", h.handleClose)
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			},
		)(
			h.withAccessLog(
				h.withHTTPMetrics(handler),
			),
		),
	)

	mux.HandleFunc(method+" "+route, func(w http.ResponseWriter, r *http.Request) {
		// Stable route template for low-cardinality labels
		r = r.WithContext(contextWithRoute(r.Context(), route))
		wrapped.ServeHTTP(w, r)
	})
}

type startCheckoutRequest struct {
	OrderID string `json:"order_id"`
}

type checkoutResponse struct {
	CheckoutID    string `json:"checkout_id"`
	State         string `json:"state"`
	OrderID       string `json:"order_id,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	AmountDisplay string `json:"amount_display,omitempty"`
	Method        string `json:"method,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`
	Message       string `json:"message,omitempty"`
	RetryOffered  bool   `json:"retry_offered"`
}

func toResponse(s appcheckout.Snapshot) checkoutResponse {
	return checkoutResponse{
		CheckoutID:    s.CheckoutID,
		State:         string(s.State),
		OrderID:       s.OrderID,
		Amount:        s.Amount,
		Currency:      s.Currency,
		AmountDisplay: s.AmountDisplay,
		Method:        string(s.Method),
		PaymentID:     s.PaymentID,
		Message:       s.Message,
		RetryOffered:  s.RetryOffered,
	}
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := h.checkouts.Start(r.Context(), strings.TrimSpace(req.OrderID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/checkouts/"+snap.CheckoutID)
	writeJSON(w, http.StatusCreated, toResponse(snap))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.checkouts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(snap))
}

type selectMethodRequest struct {
	Method string `json:"method"`
}

func (h *Handler) handleSelectMethod(w http.ResponseWriter, r *http.Request) {
	var req selectMethodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := h.checkouts.SelectMethod(r.Context(), r.PathValue("id"), payment.Method(req.Method))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(snap))
}

type submitPaymentRequest struct {
	Method     string `json:"method"`
	VPA        string `json:"vpa"`
	CardNumber string `json:"card_number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holder_name"`
}

// handleSubmit answers 202 once the checkout is processing; the outcome is
// read back with GET.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := h.checkouts.Submit(r.Context(), r.PathValue("id"), domcheckout.Form{
		Method:     payment.Method(req.Method),
		VPA:        req.VPA,
		CardNumber: req.CardNumber,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
		HolderName: req.HolderName,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toResponse(snap))
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	snap, err := h.checkouts.Retry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(snap))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.checkouts.Close(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("paygate.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := r.Method + " " + route
		if route == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
// DO NOT new metrics inside the middleware.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	requests := h.metrics.Counter(observability.MHTTPRequests)
	durations := h.metrics.Histogram(observability.MHTTPRequestDuration)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		requests.Add(1, labels...)
		durations.Observe(time.Since(start).Seconds(), labels...)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appcheckout.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, appcheckout.ErrFieldRequired),
		errors.Is(err, payment.ErrInvalidMethod):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, appcheckout.ErrSubmitNotAllowed),
		errors.Is(err, appcheckout.ErrRetryUnavailable),
		errors.Is(err, appcheckout.ErrClosed),
		errors.Is(err, domcheckout.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
