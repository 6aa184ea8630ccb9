// Package poller drives in-flight recovery jobs to a terminal state using
// bounded polling with exponential backoff.
package poller

import (
	"context"
	"fmt"
	"time"

	config "github.com/tigerroll/seawall/pkg/failover/core/config"
	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/core/metrics"
	"github.com/tigerroll/seawall/pkg/failover/backend"
	"github.com/tigerroll/seawall/pkg/failover/credentials"
	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
	logger "github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

const moduleName = "poller"

// UpdateFunc is invoked after every observable change to the job record
// (status change or terminal failure) so the owner can persist it. Polling
// aborts if the update cannot be made durable.
type UpdateFunc func(ctx context.Context) error

// Poller polls one backend job at a time; the owning controller runs one
// PollJob per record for wave-internal parallelism.
type Poller struct {
	client   backend.Client
	broker   *credentials.Broker
	recorder metrics.MetricRecorder
	cfg      config.PollingConfig
}

// NewPoller creates a Poller over the given backend client and credential
// broker.
func NewPoller(client backend.Client, broker *credentials.Broker, recorder metrics.MetricRecorder, cfg *config.EngineConfig) *Poller {
	return &Poller{
		client:   client,
		broker:   broker,
		recorder: recorder,
		cfg:      cfg.Polling,
	}
}

// PollJob drives the job record to a terminal state. Backoff starts at the
// configured initial interval, multiplies by the factor up to the maximum
// interval, and resets on any status change. Consecutive transient errors are
// retried up to the configured attempt budget; exhaustion, permanent errors,
// and exceeding the maximum total wait all mark the record failed. A context
// cancellation returns ctx.Err() with the record's last known status intact;
// the poller never fabricates a terminal status for a job still in flight.
func (p *Poller) PollJob(ctx context.Context, executionID string, record *model.JobRecord, account model.TargetAccount, onUpdate UpdateFunc) error {
	if record.Status.IsTerminal() {
		return nil
	}

	interval := time.Duration(p.cfg.InitialInterval) * time.Millisecond
	maxInterval := time.Duration(p.cfg.MaxInterval) * time.Millisecond
	deadline := time.Now().Add(time.Duration(p.cfg.MaxWaitSeconds) * time.Second)
	transientAttempts := 0

	for {
		if time.Now().After(deadline) {
			timeoutErr := exception.NewTimeout(moduleName,
				fmt.Sprintf("job %s did not reach terminal state within %ds", record.BackendJobID, p.cfg.MaxWaitSeconds), nil)
			record.MarkFailed(string(exception.KindTimeout), timeoutErr.Message)
			p.recorder.RecordJobTerminal(ctx, executionID, record.Status)
			logger.Warnf("Job %s (server %s) timed out after %d polls.", record.BackendJobID, record.ServerID, record.PollCount)
			return onUpdate(ctx)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		state, err := p.describe(ctx, record, account)
		record.MarkPolled()

		switch {
		case err == nil:
			p.recorder.RecordPoll(ctx, executionID, "ok")
			transientAttempts = 0
			if state.Status != record.Status {
				logger.Debugf("Job %s (server %s): %s -> %s.", record.BackendJobID, record.ServerID, record.Status, state.Status)
				record.Status = state.Status
				if state.Status == model.JobStatusFailed {
					record.ErrorKind = string(exception.KindPermanent)
					record.ErrorDetail = state.Detail
				}
				interval = time.Duration(p.cfg.InitialInterval) * time.Millisecond
				if record.Status.IsTerminal() {
					p.recorder.RecordJobTerminal(ctx, executionID, record.Status)
				}
				if uerr := onUpdate(ctx); uerr != nil {
					return uerr
				}
				if record.Status.IsTerminal() {
					return nil
				}
				continue
			}

		case exception.IsTransient(err):
			p.recorder.RecordPoll(ctx, executionID, "transient")
			transientAttempts++
			if transientAttempts >= p.cfg.MaxAttempts {
				record.MarkFailed(string(exception.KindTransient),
					fmt.Sprintf("describe failed %d consecutive times: %s", transientAttempts, exception.ExtractErrorMessage(err)))
				p.recorder.RecordJobTerminal(ctx, executionID, record.Status)
				logger.Warnf("Job %s (server %s) exhausted transient retry budget.", record.BackendJobID, record.ServerID)
				return onUpdate(ctx)
			}
			logger.Debugf("Job %s (server %s): transient describe failure (%d/%d): %v.",
				record.BackendJobID, record.ServerID, transientAttempts, p.cfg.MaxAttempts, err)

		default:
			p.recorder.RecordPoll(ctx, executionID, "permanent")
			record.MarkFailed(string(exception.KindOf(err)), exception.ExtractErrorMessage(err))
			p.recorder.RecordJobTerminal(ctx, executionID, record.Status)
			logger.Errorf("Job %s (server %s) failed permanently: %v.", record.BackendJobID, record.ServerID, err)
			return onUpdate(ctx)
		}

		interval = time.Duration(float64(interval) * p.cfg.Factor)
		if interval > maxInterval {
			interval = maxInterval
		}
	}
}

// describe calls DescribeJob, refreshing credentials once on an auth-class
// failure before surfacing the error.
func (p *Poller) describe(ctx context.Context, record *model.JobRecord, account model.TargetAccount) (backend.JobState, error) {
	creds, err := p.broker.GetCredentials(ctx, account)
	if err != nil {
		return backend.JobState{}, err
	}

	state, err := p.client.DescribeJob(ctx, record.BackendJobID, creds)
	if err != nil && exception.IsAuthFailure(err) {
		logger.Infof("Auth failure describing job %s; refreshing credentials for account %s.", record.BackendJobID, account.ID)
		creds, rerr := p.broker.Refresh(ctx, account)
		if rerr != nil {
			return backend.JobState{}, rerr
		}
		return p.client.DescribeJob(ctx, record.BackendJobID, creds)
	}
	return state, err
}
