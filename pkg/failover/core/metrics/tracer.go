package metrics

import (
	"context"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing of executions and
// waves. Implementations may integrate with tracing systems; the default is a
// logging stub.
type Tracer interface {
	// StartExecutionSpan starts a span covering one Execution.
	// Returns a context with the new span set, and a function to end the span.
	StartExecutionSpan(ctx context.Context, execution *model.Execution) (context.Context, func())

	// StartWaveSpan starts a span covering one wave of an Execution.
	StartWaveSpan(ctx context.Context, execution *model.Execution, waveIndex int) (context.Context, func())

	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
