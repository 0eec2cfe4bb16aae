package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const meterName = "bamm"

// readHeaderTimeout bounds slow-client header reads on the metrics server.
const readHeaderTimeout = 5 * time.Second

// Config controls observability initialization.
type Config struct {
	Service string
	Env     string

	// MetricsAddr is the listen address for the prometheus scrape
	// endpoint; empty disables metrics export entirely.
	MetricsAddr string

	LogLevel  slog.Level
	LogFormat LogFormat
}

// Providers holds the initialized observability providers.
type Providers struct {
	// Meter is the named meter for creating instruments.
	Meter metric.Meter

	// Logger is the context-aware structured logger.
	Logger *slog.Logger

	// Shutdown flushes pending telemetry and stops the metrics endpoint.
	// Must be called before process exit.
	Shutdown func(ctx context.Context) error
}

// Init initializes structured logging and, when a metrics address is
// configured, a prometheus-exported OTel meter provider with an embedded
// scrape endpoint. Without a metrics address the meter is a no-op with
// zero overhead.
func Init(cfg Config) (Providers, error) {
	logger := NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat, cfg.Service, cfg.Env)

	if cfg.MetricsAddr == "" {
		return Providers{
			Meter:    noopmetric.NewMeterProvider().Meter(meterName),
			Logger:   logger,
			Shutdown: func(context.Context) error { return nil },
		}, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.Service),
		semconv.DeploymentEnvironment(cfg.Env),
	))
	if err != nil {
		return Providers{}, fmt.Errorf("build resource: %w", err)
	}

	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return Providers{}, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		serveErr := server.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", "addr", cfg.MetricsAddr, "error", serveErr)
		}
	}()

	shutdown := func(ctx context.Context) error {
		return errors.Join(server.Shutdown(ctx), provider.Shutdown(ctx))
	}

	return Providers{
		Meter:    provider.Meter(meterName),
		Logger:   logger,
		Shutdown: shutdown,
	}, nil
}
