package sli

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope used when no meter is supplied
const MeterName = "tender-pipeline"

// OtelRecorder records every indicator as a float64 histogram
type OtelRecorder struct {
	meter otelmetric.Meter

	mu         sync.Mutex
	histograms map[string]otelmetric.Float64Histogram
}

// NewOtelRecorder creates a recorder on the given meter; nil uses the
// globally registered provider.
func NewOtelRecorder(meter otelmetric.Meter) *OtelRecorder {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}
	return &OtelRecorder{
		meter:      meter,
		histograms: make(map[string]otelmetric.Float64Histogram),
	}
}

// Record implements Recorder. Details are not exported as attributes to keep
// cardinality bounded.
func (r *OtelRecorder) Record(ctx context.Context, name string, value float64, labels map[string]string, _ map[string]any) error {
	h, err := r.histogram(name)
	if err != nil {
		return err
	}
	h.Record(ctx, value, otelmetric.WithAttributes(attributes(labels)...))
	return nil
}

func (r *OtelRecorder) histogram(name string) (otelmetric.Float64Histogram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.histograms[name]; ok {
		return h, nil
	}
	h, err := r.meter.Float64Histogram(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	r.histograms[name] = h
	return h, nil
}

func attributes(labels map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, labels[k]))
	}
	return attrs
}
