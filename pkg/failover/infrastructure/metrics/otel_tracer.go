package metrics

import (
	"context"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	metrics "github.com/tigerroll/seawall/pkg/failover/core/metrics"
	logger "github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct{}

// NewOpenTelemetryTracer creates a new instance of OpenTelemetryTracer.
func NewOpenTelemetryTracer() metrics.Tracer {
	return &OpenTelemetryTracer{}
}

// StartExecutionSpan starts a new span for an Execution.
func (t *OpenTelemetryTracer) StartExecutionSpan(ctx context.Context, execution *model.Execution) (context.Context, func()) {
	logger.Debugf("Tracer: OTel StartExecutionSpan called for Execution '%s'", execution.ID)
	return ctx, func() {
		logger.Debugf("Tracer: OTel FinishExecutionSpan called for Execution '%s'", execution.ID)
	}
}

// StartWaveSpan starts a new span for one wave of an Execution.
func (t *OpenTelemetryTracer) StartWaveSpan(ctx context.Context, execution *model.Execution, waveIndex int) (context.Context, func()) {
	logger.Debugf("Tracer: OTel StartWaveSpan called for Execution '%s' wave %d", execution.ID, waveIndex)
	return ctx, func() {
		logger.Debugf("Tracer: OTel FinishWaveSpan called for Execution '%s' wave %d", execution.ID, waveIndex)
	}
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	logger.Debugf("Tracer: OTel RecordError called in module %s: %v", module, err)
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	logger.Debugf("Tracer: OTel RecordEvent called: %s, attributes: %v", name, attributes)
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
