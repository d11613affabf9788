// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"context"
	"time"

	"github.com/ava-labs/avalanchego/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace/noop"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	exportTimeout = 10 * time.Second
	// must exceed [exportTimeout]
	shutdownTimeout = 15 * time.Second

	DefaultEndpoint = "http://localhost:9411/api/v2/spans"
)

var (
	_ trace.Tracer = (*exportingTracer)(nil)
	_ trace.Tracer = disabledTracer{}
)

type Config struct {
	Enabled bool `json:"enabled"`
	// TraceSampleRate is clamped to [0, 1].
	TraceSampleRate float64 `json:"traceSampleRate"`
	// Endpoint of the zipkin collector. Empty means [DefaultEndpoint].
	Endpoint string `json:"endpoint"`

	AppName string `json:"appName"`
	Agent   string `json:"agent"`
	Version string `json:"version"`
}

// New returns a tracer exporting sampled spans to zipkin, or a tracer that
// records nothing when [config] is disabled.
func New(config *Config) (trace.Tracer, error) {
	if !config.Enabled {
		return disabledTracer{noop.NewTracerProvider().Tracer(config.AppName)}, nil
	}

	endpoint := config.Endpoint
	if len(endpoint) == 0 {
		endpoint = DefaultEndpoint
	}
	exporter, err := zipkin.New(endpoint)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithExportTimeout(exportTimeout)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(config.Agent),
			attribute.String("version", config.Version),
		)),
		sdktrace.WithSampler(sampler(config.TraceSampleRate)),
	)
	return &exportingTracer{
		Tracer: tp.Tracer(config.AppName),
		tp:     tp,
	}, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

type exportingTracer struct {
	oteltrace.Tracer
	tp *sdktrace.TracerProvider
}

// Close flushes buffered spans.
func (t *exportingTracer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return t.tp.Shutdown(ctx)
}

type disabledTracer struct {
	oteltrace.Tracer
}

func (disabledTracer) Close() error {
	return nil
}
