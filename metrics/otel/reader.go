package otel

import (
	"context"
	"io"
	"os"

	"github.com/jmgilman/go/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Exporter names accepted by NewReader.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// NewReader builds the reader a MeterProvider should collect cache
// instruments through. An empty name means ExporterNone. The prometheus
// exporter registers on reg, or on the default registerer when reg is nil.
func NewReader(ctx context.Context, name string, reg prometheus.Registerer) (sdkmetric.Reader, error) {
	switch name {
	case ExporterNone, "":
		return periodic(stdoutmetric.New(stdoutmetric.WithWriter(io.Discard)))
	case ExporterStdout:
		return periodic(stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout)))
	case ExporterOTLP:
		if otlpEndpoint() == "" {
			return nil, errors.New(errors.CodeInvalidConfig,
				"otel: otlp exporter needs OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
		}
		return periodic(otlpmetricgrpc.New(ctx))
	case ExporterPrometheus:
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		exp, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnavailable, "otel: prometheus exporter")
		}
		return exp, nil
	}
	return nil, errors.Newf(errors.CodeInvalidConfig,
		"otel: unknown exporter %q (use none, stdout, otlp or prometheus)", name)
}

// periodic wraps a push exporter in a periodic reader.
func periodic(exp sdkmetric.Exporter, err error) (sdkmetric.Reader, error) {
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "otel: create exporter")
	}
	return sdkmetric.NewPeriodicReader(exp), nil
}

func otlpEndpoint() string {
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); ep != "" {
		return ep
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
}
