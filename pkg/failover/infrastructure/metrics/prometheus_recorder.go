package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	metrics "github.com/tigerroll/seawall/pkg/failover/core/metrics"
	logger "github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the
// metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Execution metrics
	executionDurationSeconds *prometheus.HistogramVec
	executionStatusCounter   *prometheus.CounterVec

	// Wave metrics
	waveDurationSeconds *prometheus.HistogramVec
	waveStatusCounter   *prometheus.CounterVec

	// Job metrics
	jobSubmittedCounter *prometheus.CounterVec
	jobTerminalCounter  *prometheus.CounterVec
	pollCounter         *prometheus.CounterVec

	// Generic durations
	operationDurationSeconds *prometheus.HistogramVec

	mu         sync.Mutex
	waveStarts map[string]time.Time
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() metrics.MetricRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		executionDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "failover_execution_duration_seconds",
			Help:    "Duration of plan executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"plan_id", "type", "status"}),
		executionStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "failover_execution_status_total",
			Help: "Total number of plan executions by status.",
		}, []string{"plan_id", "type", "status"}),
		waveDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "failover_wave_duration_seconds",
			Help:    "Duration of wave executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"plan_id", "outcome"}),
		waveStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "failover_wave_status_total",
			Help: "Total number of waves by outcome.",
		}, []string{"plan_id", "outcome"}),
		jobSubmittedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "failover_job_submitted_total",
			Help: "Total recovery jobs submitted.",
		}, []string{"execution_id"}),
		jobTerminalCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "failover_job_terminal_total",
			Help: "Total recovery jobs reaching terminal state by status.",
		}, []string{"execution_id", "status"}),
		pollCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "failover_poll_total",
			Help: "Total describe calls against the recovery backend by outcome.",
		}, []string{"execution_id", "outcome"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "failover_operation_duration_seconds",
			Help:    "Duration of named internal operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
		waveStarts: make(map[string]time.Time),
	}

	registry.MustRegister(r.executionDurationSeconds)
	registry.MustRegister(r.executionStatusCounter)
	registry.MustRegister(r.waveDurationSeconds)
	registry.MustRegister(r.waveStatusCounter)
	registry.MustRegister(r.jobSubmittedCounter)
	registry.MustRegister(r.jobTerminalCounter)
	registry.MustRegister(r.pollCounter)
	registry.MustRegister(r.operationDurationSeconds)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordExecutionStart records the start of an Execution.
func (r *PrometheusRecorder) RecordExecutionStart(ctx context.Context, execution *model.Execution) {
	r.executionStatusCounter.WithLabelValues(execution.PlanID, execution.Type.String(), execution.Status.String()).Inc()
	logger.Debugf("Metrics: execution %s started.", execution.ID)
}

// RecordExecutionEnd records the terminal transition of an Execution.
func (r *PrometheusRecorder) RecordExecutionEnd(ctx context.Context, execution *model.Execution) {
	r.executionStatusCounter.WithLabelValues(execution.PlanID, execution.Type.String(), execution.Status.String()).Inc()
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.executionDurationSeconds.WithLabelValues(
		execution.PlanID,
		execution.Type.String(),
		execution.Status.String(),
	).Observe(duration)
	logger.Debugf("Metrics: execution %s ended. Duration: %.3fs", execution.ID, duration)
}

// RecordWaveStart records the dispatch of a wave.
func (r *PrometheusRecorder) RecordWaveStart(ctx context.Context, execution *model.Execution, waveIndex int) {
	r.mu.Lock()
	r.waveStarts[waveKey(execution.ID, waveIndex)] = time.Now()
	r.mu.Unlock()
}

// RecordWaveEnd records the completion of a wave.
func (r *PrometheusRecorder) RecordWaveEnd(ctx context.Context, execution *model.Execution, waveIndex int, failed bool) {
	outcome := "succeeded"
	if failed {
		outcome = "failed"
	}
	r.waveStatusCounter.WithLabelValues(execution.PlanID, outcome).Inc()

	key := waveKey(execution.ID, waveIndex)
	r.mu.Lock()
	start, ok := r.waveStarts[key]
	delete(r.waveStarts, key)
	r.mu.Unlock()
	if ok {
		r.waveDurationSeconds.WithLabelValues(execution.PlanID, outcome).Observe(time.Since(start).Seconds())
	}
}

// RecordJobSubmitted records the submission of one backend recovery job.
func (r *PrometheusRecorder) RecordJobSubmitted(ctx context.Context, executionID string, serverID string) {
	r.jobSubmittedCounter.WithLabelValues(executionID).Inc()
}

// RecordJobTerminal records a job record reaching a terminal status.
func (r *PrometheusRecorder) RecordJobTerminal(ctx context.Context, executionID string, status model.JobStatus) {
	r.jobTerminalCounter.WithLabelValues(executionID, status.String()).Inc()
}

// RecordPoll records one describe call against the recovery backend.
func (r *PrometheusRecorder) RecordPoll(ctx context.Context, executionID string, outcome string) {
	r.pollCounter.WithLabelValues(executionID, outcome).Inc()
}

// RecordDuration records the execution time of a named operation.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

func waveKey(executionID string, waveIndex int) string {
	return fmt.Sprintf("%s/%d", executionID, waveIndex)
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
