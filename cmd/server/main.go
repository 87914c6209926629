// Package main is the entry point for the service. It wires all dependencies
// using samber/do v2, starts the HTTP server, and handles graceful shutdown
// on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	"go.uber.org/zap"

	adapthttp "github.com/jsamuelsen11/showexceptions/internal/adapters/http"
	"github.com/jsamuelsen11/showexceptions/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/showexceptions/internal/adapters/http/middleware"

	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
	"github.com/jsamuelsen11/showexceptions/internal/platform/config"
	"github.com/jsamuelsen11/showexceptions/internal/platform/health"
	"github.com/jsamuelsen11/showexceptions/internal/platform/logging"
	"github.com/jsamuelsen11/showexceptions/internal/platform/telemetry"
	"github.com/jsamuelsen11/showexceptions/internal/ports"
	"github.com/jsamuelsen11/showexceptions/internal/showexceptions"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	serverShutdownTimeout = 15 * time.Second
	otelShutdownTimeout   = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	profile := os.Getenv("APP_PROFILE")
	if profile == "" {
		return errors.New("APP_PROFILE environment variable is required (e.g. local, dev, qa, prod)")
	}

	// Bootstrap: config, logger, telemetry.
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	faultLogger, syncLogs, err := newFaultLogger(cfg.Log, logger)
	if err != nil {
		return fmt.Errorf("initializing fault logger: %w", err)
	}
	defer syncLogs()

	ctx := context.Background()
	otel, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	// DI container.
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, otel.metrics)
	do.ProvideValue(injector, faultLogger)

	registerDependencies(injector, cfg, logger)

	// Resolve the server (eagerly wires the full graph).
	server, err := do.Invoke[*adapthttp.Server](injector)
	if err != nil {
		return fmt.Errorf("resolving server: %w", err)
	}

	// Register health checkers after the graph is wired.
	registry := do.MustInvoke[ports.HealthRegistry](injector)
	registry.Register(showexceptions.NewChecker(do.MustInvoke[[]showexceptions.Option](injector)...))

	// Start server in background.
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for shutdown signal or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Graceful shutdown: drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Wait for Start() goroutine to return.
	<-serverErr

	// Flush telemetry.
	otelCtx, otelCancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
	defer otelCancel()

	if err := otel.Shutdown(otelCtx); err != nil {
		logger.Error("telemetry shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}

// newFaultLogger picks the backend for fault events. The returned func
// flushes buffered zap output and is always safe to call.
func newFaultLogger(cfg config.LogConfig, logger *slog.Logger) (showexceptions.Logger, func(), error) {
	if cfg.Backend != "zap" {
		return showexceptions.NewSlogLogger(logger), func() {}, nil
	}

	zl, err := logging.NewZap(cfg.Level, cfg.Format)
	if err != nil {
		return nil, nil, err
	}
	zl = zl.With(zap.String("component", "showexceptions"))
	return showexceptions.NewZapLogger(zl), func() { _ = zl.Sync() }, nil
}

// otelProviders bundles OpenTelemetry provider lifecycle. All fields are nil
// when telemetry is disabled.
type otelProviders struct {
	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	metrics *telemetry.Metrics
}

// Shutdown flushes both providers. Nil-safe.
func (o *otelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracer != nil {
		if err := o.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.meter != nil {
		if err := o.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func initTelemetry(ctx context.Context, cfg *config.Config) (*otelProviders, error) {
	if !cfg.Telemetry.Enabled {
		return &otelProviders{}, nil
	}

	tp, err := telemetry.InitTracer(ctx,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.Endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	mp, err := telemetry.InitMeter(ctx,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.Endpoint,
	)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}

	metrics, err := telemetry.NewMetrics(mp, cfg.Telemetry.ServiceName)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	return &otelProviders{
		tracer:  tp,
		meter:   mp,
		metrics: metrics,
	}, nil
}

func registerDependencies(injector *do.RootScope, cfg *config.Config, logger *slog.Logger) {
	do.Provide(injector, func(i do.Injector) ([]showexceptions.Option, error) {
		metrics := do.MustInvoke[*telemetry.Metrics](i)
		faultLogger := do.MustInvoke[showexceptions.Logger](i)
		return diagnosticsOptions(cfg.Diagnostics, faultLogger, metrics), nil
	})

	do.Provide(injector, func(i do.Injector) ([]pipeline.Middleware, error) {
		opts := do.MustInvoke[[]showexceptions.Option](i)

		var mws []pipeline.Middleware
		if cfg.Diagnostics.Enabled {
			mws = append(mws, showexceptions.New(opts...))
		}
		return append(mws, middleware.ResponseTimeout(cfg.Server.ResponseTimeout)), nil
	})

	do.Provide(injector, func(_ do.Injector) (ports.HealthRegistry, error) {
		return health.New(), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.HealthHandler, error) {
		registry := do.MustInvoke[ports.HealthRegistry](i)
		return handlers.NewHealthHandler(registry), nil
	})

	do.Provide(injector, func(i do.Injector) (nethttp.Handler, error) {
		healthH := do.MustInvoke[*handlers.HealthHandler](i)
		pipelineMWs := do.MustInvoke[[]pipeline.Middleware](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)

		return adapthttp.NewRouter(healthH, pipelineMWs,
			middleware.Recovery(logger),
			middleware.RequestID(),
			middleware.CorrelationID(),
			middleware.OpenTelemetry(metrics),
			middleware.Logging(logger),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*adapthttp.Server, error) {
		handler := do.MustInvoke[nethttp.Handler](i)
		return adapthttp.NewServer(cfg.Server, handler, logger), nil
	})
}

func diagnosticsOptions(cfg config.DiagnosticsConfig, faultLogger showexceptions.Logger, metrics *telemetry.Metrics) []showexceptions.Option {
	opts := []showexceptions.Option{
		showexceptions.WithLogger(faultLogger),
		showexceptions.WithMaxFrames(cfg.MaxFrames),
	}
	if metrics != nil {
		opts = append(opts, showexceptions.WithFaultCounter(metrics.FaultTotal))
	}
	if cfg.ShowRequest {
		opts = append(opts, showexceptions.WithRequestDetails(logging.SensitiveHeaderNames()...))
	}
	return opts
}
