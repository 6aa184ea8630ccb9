package poller_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/seawall/pkg/failover/backend"
	config "github.com/tigerroll/seawall/pkg/failover/core/config"
	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/core/metrics"
	"github.com/tigerroll/seawall/pkg/failover/credentials"
	"github.com/tigerroll/seawall/pkg/failover/engine/poller"
	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
)

func testPollingConfig() *config.EngineConfig {
	cfg := config.NewConfig()
	cfg.Seawall.Engine.Polling = config.PollingConfig{
		InitialInterval: 5,
		MaxInterval:     20,
		Factor:          2.0,
		MaxAttempts:     5,
		MaxWaitSeconds:  2,
	}
	return &cfg.Seawall.Engine
}

func newTestPoller(t *testing.T, client backend.Client, cfg *config.EngineConfig) *poller.Poller {
	t.Helper()
	broker := credentials.NewBroker(credentials.NewStaticSource(time.Hour), cfg)
	return poller.NewPoller(client, broker, metrics.NewNoOpMetricRecorder(), cfg)
}

func submitJob(t *testing.T, fake *backend.FakeClient, serverID string) *model.JobRecord {
	t.Helper()
	jobID, err := fake.StartRecovery(context.Background(), serverID, credentials.Credentials{})
	require.NoError(t, err)
	return &model.JobRecord{
		ServerID:        serverID,
		TargetAccountID: "acct-1",
		WaveIndex:       0,
		BackendJobID:    jobID,
		Status:          model.JobStatusSubmitted,
	}
}

func TestPollJob_DefaultProgressionSucceeds(t *testing.T) {
	fake := backend.NewFakeClient()
	p := newTestPoller(t, fake, testPollingConfig())
	record := submitJob(t, fake, "srv-1")

	updates := 0
	err := p.PollJob(context.Background(), "exec-1", record, model.TargetAccount{ID: "acct-1"}, func(ctx context.Context) error {
		updates++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, model.JobStatusSucceeded, record.Status)
	// SUBMITTED -> IN_PROGRESS and IN_PROGRESS -> SUCCEEDED both persist.
	assert.Equal(t, 2, updates)
	assert.NotNil(t, record.LastPolledAt)
	assert.Equal(t, 2, record.PollCount)
}

func TestPollJob_TransientRetriesWithinBudget(t *testing.T) {
	fake := backend.NewFakeClient()
	fake.Script("srv-1", backend.ServerScript{
		DescribeErrs: []error{
			exception.NewTransient("backend", "throttled", nil),
			exception.NewTransient("backend", "throttled", nil),
			exception.NewTransient("backend", "throttled", nil),
		},
		States: []backend.JobState{{Status: model.JobStatusSucceeded, Detail: "done"}},
	})
	p := newTestPoller(t, fake, testPollingConfig())
	record := submitJob(t, fake, "srv-1")

	err := p.PollJob(context.Background(), "exec-1", record, model.TargetAccount{ID: "acct-1"}, func(ctx context.Context) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, model.JobStatusSucceeded, record.Status)
	// 3 transient polls plus the successful one.
	assert.Equal(t, 4, record.PollCount)
}

func TestPollJob_TransientBudgetExhaustionFails(t *testing.T) {
	cfg := testPollingConfig()
	cfg.Polling.MaxAttempts = 3
	fake := backend.NewFakeClient()
	fake.Script("srv-1", backend.ServerScript{
		DescribeErrs: []error{
			exception.NewTransient("backend", "throttled", nil),
			exception.NewTransient("backend", "throttled", nil),
			exception.NewTransient("backend", "throttled", nil),
			exception.NewTransient("backend", "throttled", nil),
		},
	})
	p := newTestPoller(t, fake, cfg)
	record := submitJob(t, fake, "srv-1")

	err := p.PollJob(context.Background(), "exec-1", record, model.TargetAccount{ID: "acct-1"}, func(ctx context.Context) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, record.Status)
	assert.Equal(t, string(exception.KindTransient), record.ErrorKind)
	assert.Equal(t, 3, record.PollCount)
}

func TestPollJob_PermanentErrorFailsImmediately(t *testing.T) {
	fake := backend.NewFakeClient()
	p := newTestPoller(t, fake, testPollingConfig())

	// A job id the backend does not know yields a permanent error.
	record := &model.JobRecord{
		ServerID:     "srv-1",
		WaveIndex:    0,
		BackendJobID: "unknown-job",
		Status:       model.JobStatusSubmitted,
	}

	err := p.PollJob(context.Background(), "exec-1", record, model.TargetAccount{ID: "acct-1"}, func(ctx context.Context) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, record.Status)
	assert.Equal(t, string(exception.KindPermanent), record.ErrorKind)
	assert.Equal(t, 1, record.PollCount)
}

func TestPollJob_MaxWaitTimesOut(t *testing.T) {
	cfg := testPollingConfig()
	cfg.Polling.MaxWaitSeconds = 1
	fake := backend.NewFakeClient()
	fake.Script("srv-1", backend.ServerScript{
		States: []backend.JobState{{Status: model.JobStatusInProgress, Detail: "stuck"}},
	})
	p := newTestPoller(t, fake, cfg)
	record := submitJob(t, fake, "srv-1")

	err := p.PollJob(context.Background(), "exec-1", record, model.TargetAccount{ID: "acct-1"}, func(ctx context.Context) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, record.Status)
	assert.Equal(t, string(exception.KindTimeout), record.ErrorKind)
}

func TestPollJob_CancellationRetainsLastKnownStatus(t *testing.T) {
	fake := backend.NewFakeClient()
	fake.Script("srv-1", backend.ServerScript{
		States: []backend.JobState{{Status: model.JobStatusInProgress, Detail: "working"}},
	})
	p := newTestPoller(t, fake, testPollingConfig())
	record := submitJob(t, fake, "srv-1")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := p.PollJob(ctx, "exec-1", record, model.TargetAccount{ID: "acct-1"}, func(ctx context.Context) error { return nil })

	require.ErrorIs(t, err, context.Canceled)
	// No fabricated terminal status: the record keeps its last known state.
	assert.False(t, record.Status.IsTerminal())
}

func TestPollJob_AlreadyTerminalIsNoOp(t *testing.T) {
	fake := backend.NewFakeClient()
	p := newTestPoller(t, fake, testPollingConfig())
	record := &model.JobRecord{ServerID: "srv-1", Status: model.JobStatusSucceeded}

	err := p.PollJob(context.Background(), "exec-1", record, model.TargetAccount{ID: "acct-1"}, func(ctx context.Context) error {
		t.Fatal("no update expected for a terminal record")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, record.PollCount)
}
