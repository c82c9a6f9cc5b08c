// internal/common/observability/tracing.go
package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/exporters/jaeger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// JaegerSpanProcessor batches spans to a Jaeger collector, e.g.
// http://jaeger:14268/api/traces. Nothing is sent until the first span ends.
func JaegerSpanProcessor(endpoint string) (sdktrace.SpanProcessor, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("jaeger endpoint is required")
	}
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
	}
	return sdktrace.NewBatchSpanProcessor(exporter), nil
}
