package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	appcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/application/checkout"
	"github.com/Zhima-Mochi/paygate-checkout/internal/application/dashboard"
	"github.com/Zhima-Mochi/paygate-checkout/internal/config"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/session"
	"github.com/Zhima-Mochi/paygate-checkout/internal/infrastructure/gateway"
	infraobs "github.com/Zhima-Mochi/paygate-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/paygate-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/paygate-checkout/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/paygate-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/paygate-checkout/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/paygate-checkout/internal/infrastructure/sessionfile"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
	"github.com/Zhima-Mochi/paygate-checkout/internal/pkg/logging"
	workerpresentation "github.com/Zhima-Mochi/paygate-checkout/internal/presentation/worker"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// runtime is everything a command needs, wired once per invocation.
type runtime struct {
	cfg      *config.Config
	zap      *zap.Logger
	log      observability.Logger
	tel      observability.Observability
	registry *prometheus.Registry
	bus      *outbox.Bus
	gateway  *gateway.Client

	sessions session.Store
	loaded   session.Session
	session  session.Session

	metricsSrv *http.Server
}

func newRuntime(ctx context.Context, cfg *config.Config, stdoutLogs bool) (*runtime, error) {
	zl, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		LogFile: cfg.Log.File,
		Quiet:   !stdoutLogs,
		Level:   logging.ParseLevel(cfg.Log.Level),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(zl)
	log := zaplogger.New(zl)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	counters, histograms := infraobs.Instruments(prometrics.New(reg, "", ""))
	tel := infraobs.New(oteltrace.New(cfg.ServiceName), log, counters, histograms)

	bus := outbox.NewBus(log)
	appcheckout.NewWorker(tel).Start(bus, workerpresentation.EventMiddleware(log))
	bus.Start(ctx)

	rt := &runtime{
		cfg:      cfg,
		zap:      zl,
		log:      log,
		tel:      tel,
		registry: reg,
		bus:      bus,
		gateway: gateway.New(gateway.Config{
			CheckoutBaseURL:  cfg.Checkout.APIURL,
			DashboardBaseURL: cfg.Dashboard.APIURL,
			Timeout:          cfg.HTTP.Timeout,
		}, tel),
		sessions: sessionfile.New(cfg.Session.File),
	}

	sess, err := rt.sessions.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNotFound):
	case err != nil:
		// An unreadable session only logs the merchant out.
		log.Warn("session_load_failed", observability.F("error", err.Error()))
	default:
		rt.loaded, rt.session = sess, sess
	}

	if cfg.Metrics.Addr != "" {
		rt.serveMetrics(cfg.Metrics.Addr)
	}
	return rt, nil
}

func (rt *runtime) metricsHandler() http.Handler {
	return promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{Registry: rt.registry})
}

func (rt *runtime) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.metricsHandler())
	rt.metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		rt.log.Info("metrics_server_start", observability.F("addr", addr))
		if err := rt.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.log.Error("metrics_server_error", observability.F("error", err.Error()))
		}
	}()
}

func (rt *runtime) checkoutDeps() appcheckout.Dependencies {
	return appcheckout.Dependencies{
		Orders:    rt.gateway,
		Payments:  rt.gateway,
		Clock:     clockwork.NewRealClock(),
		Publisher: rt.bus,
		Telemetry: rt.tel,
	}
}

func (rt *runtime) dashboard() *dashboard.Service {
	return dashboard.NewService(rt.gateway, rt.gateway, rt.gateway, rt.tel)
}

// drain delivers every queued event before returning.
func (rt *runtime) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	rt.bus.Stop(ctx)
}

// Close persists a changed session and releases the runtime.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.session != rt.loaded {
		if err := rt.sessions.Save(ctx, rt.session); err != nil {
			errs = append(errs, fmt.Errorf("save session: %w", err))
		}
	}

	rt.drain(ctx)

	if rt.metricsSrv != nil {
		sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		if err := rt.metricsSrv.Shutdown(sctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics server: %w", err))
		}
		cancel()
	}

	// Sync on stdout fails with EINVAL on some platforms; nothing to report.
	_ = rt.zap.Sync()
	return errors.Join(errs...)
}
