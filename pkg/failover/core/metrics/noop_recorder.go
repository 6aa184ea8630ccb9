package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

// RecordExecutionStart does nothing.
func (r *NoOpMetricRecorder) RecordExecutionStart(ctx context.Context, execution *model.Execution) {
}

// RecordExecutionEnd does nothing.
func (r *NoOpMetricRecorder) RecordExecutionEnd(ctx context.Context, execution *model.Execution) {}

// RecordWaveStart does nothing.
func (r *NoOpMetricRecorder) RecordWaveStart(ctx context.Context, execution *model.Execution, waveIndex int) {
}

// RecordWaveEnd does nothing.
func (r *NoOpMetricRecorder) RecordWaveEnd(ctx context.Context, execution *model.Execution, waveIndex int, failed bool) {
}

// RecordJobSubmitted does nothing.
func (r *NoOpMetricRecorder) RecordJobSubmitted(ctx context.Context, executionID string, serverID string) {
}

// RecordJobTerminal does nothing.
func (r *NoOpMetricRecorder) RecordJobTerminal(ctx context.Context, executionID string, status model.JobStatus) {
}

// RecordPoll does nothing.
func (r *NoOpMetricRecorder) RecordPoll(ctx context.Context, executionID string, outcome string) {}

// RecordDuration does nothing.
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartExecutionSpan returns the context unchanged.
func (t *NoOpTracer) StartExecutionSpan(ctx context.Context, execution *model.Execution) (context.Context, func()) {
	return ctx, func() {}
}

// StartWaveSpan returns the context unchanged.
func (t *NoOpTracer) StartWaveSpan(ctx context.Context, execution *model.Execution, waveIndex int) (context.Context, func()) {
	return ctx, func() {}
}

// RecordError does nothing.
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

// RecordEvent does nothing.
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
