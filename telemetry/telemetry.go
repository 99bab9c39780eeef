// Package telemetry bootstraps OpenTelemetry tracing for processes embedding
// state machines. Spans created through the global tracer (statemachine.step)
// are exported over OTLP/HTTP once Initialize has run.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/amp-labs/amp-fsm/envconfig"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/shutdown"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const kubernetesCollectorEndpoint = "http://opentelemetry-collector.opentelemetry.svc.cluster.local:4318"

var (
	providerMu     sync.Mutex              //nolint:gochecknoglobals
	tracerProvider *sdktrace.TracerProvider //nolint:gochecknoglobals
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string        `env:"OTEL_SERVICE_NAME"`
	ServiceVersion string        `env:"OTEL_SERVICE_VERSION"               envDefault:"1.0.0"`
	Environment    string        `env:"OTEL_ENVIRONMENT"`
	Endpoint       string        `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	Enabled        bool          `env:"OTEL_ENABLED"                       envDefault:"false"`
	Timeout        time.Duration `env:"OTEL_EXPORTER_OTLP_TRACES_TIMEOUT"  envDefault:"5s"`
}

// LoadConfigFromEnv reads Config from the environment. The service name
// defaults to the logging subsystem, and inside Kubernetes the endpoint
// defaults to the in-cluster collector.
func LoadConfigFromEnv(ctx context.Context) (*Config, error) {
	cfg, err := envconfig.Parse[Config]()
	if err != nil {
		return nil, err
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = logger.GetSubsystem(ctx)
	}

	if cfg.Endpoint == "" && os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		cfg.Endpoint = kubernetesCollectorEndpoint
	}

	return &cfg, nil
}

// Initialize installs a global tracer provider exporting to config.Endpoint.
// It is a no-op when tracing is disabled or no endpoint is configured.
func Initialize(ctx context.Context, config *Config) error {
	if !config.Enabled {
		slog.Info("OpenTelemetry tracing is disabled")

		return nil
	}

	if config.Endpoint == "" {
		slog.Warn("OpenTelemetry endpoint not configured, tracing will be disabled")

		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.Endpoint),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	providerMu.Lock()
	tracerProvider = provider
	providerMu.Unlock()

	otel.SetTracerProvider(provider)

	shutdown.BeforeShutdown(func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		defer cancel()

		if err := Shutdown(ctx); err != nil {
			slog.Error("Failed to shut down tracer provider", "error", err)
		}
	})

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("OpenTelemetry tracing initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
	)

	return nil
}

// Shutdown flushes and stops the tracer provider installed by Initialize.
func Shutdown(ctx context.Context) error {
	providerMu.Lock()
	provider := tracerProvider
	tracerProvider = nil
	providerMu.Unlock()

	if provider == nil {
		return nil
	}

	slog.Info("Shutting down OpenTelemetry tracer provider")

	return provider.Shutdown(ctx)
}
