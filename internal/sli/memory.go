package sli

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Sample is one recorded indicator value
type Sample struct {
	Name    string
	Value   float64
	Labels  map[string]string
	Details map[string]any
}

// MemoryRecorder keeps samples in memory for inspection
type MemoryRecorder struct {
	mu      sync.Mutex
	samples []Sample
}

// NewMemoryRecorder creates an empty in-memory recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record implements Recorder
func (m *MemoryRecorder) Record(_ context.Context, name string, value float64, labels map[string]string, details map[string]any) error {
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, Sample{Name: name, Value: value, Labels: copied, Details: details})
	return nil
}

// Samples returns a copy of all samples in record order
func (m *MemoryRecorder) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sample, len(m.samples))
	copy(out, m.samples)
	return out
}

// ByName returns samples with the given name
func (m *MemoryRecorder) ByName(name string) []Sample {
	var out []Sample
	for _, s := range m.Samples() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// Count returns how many samples match name and every given label
func (m *MemoryRecorder) Count(name string, labels map[string]string) int {
	n := 0
	for _, s := range m.ByName(name) {
		if matches(s.Labels, labels) {
			n++
		}
	}
	return n
}

func matches(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// LogRecorder writes each sample as a structured debug log entry
type LogRecorder struct {
	logger *zap.Logger
}

// NewLogRecorder creates a recorder on logger
func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRecorder{logger: logger.Named("sli")}
}

// Record implements Recorder
func (l *LogRecorder) Record(_ context.Context, name string, value float64, labels map[string]string, details map[string]any) error {
	fields := []zap.Field{
		zap.String("sli", name),
		zap.Float64("value", value),
	}
	if len(labels) > 0 {
		fields = append(fields, zap.Any("labels", labels))
	}
	if len(details) > 0 {
		fields = append(fields, zap.Any("details", details))
	}
	l.logger.Debug("sli sample", fields...)
	return nil
}
