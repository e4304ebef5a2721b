package tracing

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectKafkaHeaders appends the current trace context to Kafka headers.
func InjectKafkaHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

// InjectMap writes the current trace context into a string map, for
// transports whose envelopes are plain field maps.
func InjectMap(ctx context.Context, fields map[string]string) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(fields))
}

// ExtractMap returns a context carrying any trace context found in a
// string map.
func ExtractMap(ctx context.Context, fields map[string]string) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(fields))
}
