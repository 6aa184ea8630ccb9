package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics about plan
// executions. It covers execution, wave, job, and poll-level events so the
// engine can report progress without binding to a specific metrics backend
// (e.g., Prometheus).
type MetricRecorder interface {
	// RecordExecutionStart records the start of an Execution.
	RecordExecutionStart(ctx context.Context, execution *model.Execution)

	// RecordExecutionEnd records the terminal transition of an Execution.
	RecordExecutionEnd(ctx context.Context, execution *model.Execution)

	// RecordWaveStart records the dispatch of a wave.
	RecordWaveStart(ctx context.Context, execution *model.Execution, waveIndex int)

	// RecordWaveEnd records the completion (success or failure) of a wave.
	RecordWaveEnd(ctx context.Context, execution *model.Execution, waveIndex int, failed bool)

	// RecordJobSubmitted records the submission of one backend recovery job.
	RecordJobSubmitted(ctx context.Context, executionID string, serverID string)

	// RecordJobTerminal records a job record reaching a terminal status.
	RecordJobTerminal(ctx context.Context, executionID string, status model.JobStatus)

	// RecordPoll records one describe call against the recovery backend.
	// outcome is one of "ok", "transient", "permanent".
	RecordPoll(ctx context.Context, executionID string, outcome string)

	// RecordDuration records the execution time of a specific operation.
	// Example names: "wave_duration", "credential_fetch_duration".
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
