package controller_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/seawall/pkg/failover/backend"
	config "github.com/tigerroll/seawall/pkg/failover/core/config"
	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
	"github.com/tigerroll/seawall/pkg/failover/core/metrics"
	"github.com/tigerroll/seawall/pkg/failover/credentials"
	"github.com/tigerroll/seawall/pkg/failover/engine/controller"
	"github.com/tigerroll/seawall/pkg/failover/engine/poller"
	"github.com/tigerroll/seawall/pkg/failover/infrastructure/repository/inmemory"
	"github.com/tigerroll/seawall/pkg/failover/listener/notification"
	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
)

type fixture struct {
	controller *controller.Controller
	store      *inmemory.InMemoryExecutionStore
	defs       *inmemory.InMemoryDefinitionStore
	fake       *backend.FakeClient
	notifier   *capturingNotifier
	recorder   *recordingRecorder
}

// capturingNotifier retains every emitted event with its payload.
type capturingNotifier struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	event notification.Event
	exec  *model.Execution
}

func (n *capturingNotifier) NotifyTransition(ctx context.Context, event notification.Event, execution *model.Execution) {
	n.mu.Lock()
	n.events = append(n.events, capturedEvent{event: event, exec: execution})
	n.mu.Unlock()
}

// last returns the payload of the most recent occurrence of the event.
func (n *capturingNotifier) last(event notification.Event) *model.Execution {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.events) - 1; i >= 0; i-- {
		if n.events[i].event == event {
			return n.events[i].exec
		}
	}
	return nil
}

// recordingRecorder counts RecordDuration observations by name on top of the
// no-op recorder.
type recordingRecorder struct {
	metrics.MetricRecorder
	mu        sync.Mutex
	durations map[string]int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{
		MetricRecorder: metrics.NewNoOpMetricRecorder(),
		durations:      make(map[string]int),
	}
}

func (r *recordingRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.mu.Lock()
	r.durations[name]++
	r.mu.Unlock()
}

func (r *recordingRecorder) DurationCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.durations[name]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Seawall.Engine.Polling = config.PollingConfig{
		InitialInterval: 5,
		MaxInterval:     20,
		Factor:          2.0,
		MaxAttempts:     5,
		MaxWaitSeconds:  30,
	}
	engineCfg := &cfg.Seawall.Engine

	store := inmemory.NewInMemoryExecutionStore()
	defs := inmemory.NewInMemoryDefinitionStore()
	fake := backend.NewFakeClient()
	broker := credentials.NewBroker(credentials.NewStaticSource(time.Hour), engineCfg)
	recorder := newRecordingRecorder()
	notifier := &capturingNotifier{}

	c := controller.NewController(
		store,
		defs,
		fake,
		broker,
		poller.NewPoller(fake, broker, recorder, engineCfg),
		notifier,
		recorder,
		metrics.NewNoOpTracer(),
	)
	return &fixture{controller: c, store: store, defs: defs, fake: fake, notifier: notifier, recorder: recorder}
}

// seedTwoWavePlan seeds a plan with 3 servers in wave 1 and 2 servers in
// wave 2, recovering into two different accounts.
func (f *fixture) seedTwoWavePlan(t *testing.T) {
	t.Helper()
	require.NoError(t, f.defs.SeedAccount(model.TargetAccount{ID: "acct-1"}))
	require.NoError(t, f.defs.SeedAccount(model.TargetAccount{ID: "acct-2", RoleRef: "role/CustomRole"}))
	require.NoError(t, f.defs.SeedGroup(model.ProtectionGroup{
		ID: "g1", Name: "databases", TargetAccountID: "acct-1", TargetRegion: "eu-west-1",
		Servers: []model.Server{{ID: "w1s1"}, {ID: "w1s2"}, {ID: "w1s3"}},
	}))
	require.NoError(t, f.defs.SeedGroup(model.ProtectionGroup{
		ID: "g2", Name: "frontends", TargetAccountID: "acct-2", TargetRegion: "eu-west-1",
		Servers: []model.Server{{ID: "w2s1"}, {ID: "w2s2"}},
	}))
	require.NoError(t, f.defs.SeedPlan(model.RecoveryPlan{
		ID: "plan-1", Name: "two-wave",
		Waves: []model.Wave{
			{ID: "wave-1", Sequence: 0, GroupIDs: []string{"g1"}},
			{ID: "wave-2", Sequence: 1, GroupIDs: []string{"g2"}},
		},
	}))
}

// frozenSnapshot freezes the seeded two-wave plan the way Start would.
func (f *fixture) frozenSnapshot(t *testing.T) model.PlanSnapshot {
	t.Helper()
	plan, err := f.defs.FindRecoveryPlanByID(context.Background(), "plan-1")
	require.NoError(t, err)
	g1, err := f.defs.FindProtectionGroupByID(context.Background(), "g1")
	require.NoError(t, err)
	g2, err := f.defs.FindProtectionGroupByID(context.Background(), "g2")
	require.NoError(t, err)
	a1, err := f.defs.FindTargetAccountByID(context.Background(), "acct-1")
	require.NoError(t, err)
	a2, err := f.defs.FindTargetAccountByID(context.Background(), "acct-2")
	require.NoError(t, err)
	return model.NewPlanSnapshot(*plan,
		map[string]model.ProtectionGroup{"g1": *g1, "g2": *g2},
		map[string]model.TargetAccount{"acct-1": *a1, "acct-2": *a2})
}

func waitForStatus(t *testing.T, f *fixture, executionID string, want model.ExecutionStatus) *model.Execution {
	t.Helper()
	var got *model.Execution
	require.Eventually(t, func() bool {
		exec, err := f.controller.Status(context.Background(), executionID)
		if err != nil {
			return false
		}
		got = exec
		return exec.Status == want
	}, 5*time.Second, 10*time.Millisecond, "execution never reached %s (last: %+v)", want, got)
	return got
}

func TestStart_TwoWavePlanCompletes(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeDrill, "tester")
	require.NoError(t, err)

	final := waitForStatus(t, f, exec.ID, model.ExecutionStatusCompleted)

	assert.Len(t, final.JobRecords, 5)
	for _, jr := range final.JobRecords {
		assert.Equal(t, model.JobStatusSucceeded, jr.Status)
	}

	// Wave 2 submissions happen strictly after every wave-1 job succeeded.
	wave1Done := 0
	for _, call := range f.fake.SubmitCalls {
		switch call.ServerID {
		case "w1s1", "w1s2", "w1s3":
			wave1Done++
		default:
			assert.Equal(t, 3, wave1Done, "wave 2 submitted before wave 1 finished")
		}
	}

	// Explicit role reference wins; the other account derives the default.
	for _, call := range f.fake.SubmitCalls {
		switch call.AccountID {
		case "acct-1":
			assert.Equal(t, "role/DRSOrchestrationRole", call.RoleRef)
		case "acct-2":
			assert.Equal(t, "role/CustomRole", call.RoleRef)
		}
	}

	// Terminal execution is archived.
	history, err := f.store.ListHistory(context.Background(), repository.HistoryFilter{PlanID: "plan-1"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.ExecutionStatusCompleted, history[0].Status)
}

func TestStart_CyclicPlanRejectedWithoutExecution(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.defs.SeedAccount(model.TargetAccount{ID: "acct-1"}))
	require.NoError(t, f.defs.SeedGroup(model.ProtectionGroup{
		ID: "g1", Name: "databases", TargetAccountID: "acct-1",
		Servers: []model.Server{{ID: "s1"}},
	}))
	require.NoError(t, f.defs.SeedPlan(model.RecoveryPlan{
		ID: "plan-cyclic", Name: "cyclic",
		Waves: []model.Wave{
			{ID: "a", Sequence: 0, GroupIDs: []string{"g1"}, Predecessors: []string{"b"}},
			{ID: "b", Sequence: 1, GroupIDs: []string{"g1"}, Predecessors: []string{"a"}},
		},
	}))

	_, err := f.controller.Start(context.Background(), "plan-cyclic", model.ExecutionTypeDrill, "tester")
	require.Error(t, err)
	assert.True(t, exception.IsValidation(err))

	active, err := f.store.FindActiveExecutions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active, "no execution may be created for an invalid plan")
}

func TestStart_UnknownPlanIsValidationError(t *testing.T) {
	f := newFixture(t)
	_, err := f.controller.Start(context.Background(), "missing", model.ExecutionTypeFailover, "tester")
	require.Error(t, err)
	assert.True(t, exception.IsValidation(err))
}

func TestFailFast_WaveFailureStopsExecution(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)
	f.fake.Script("w1s2", backend.ServerScript{
		States: []backend.JobState{{Status: model.JobStatusFailed, Detail: "replication stalled"}},
	})

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeFailover, "tester")
	require.NoError(t, err)

	final := waitForStatus(t, f, exec.ID, model.ExecutionStatusFailed)

	assert.Equal(t, 0, final.CurrentWaveIndex)
	assert.Empty(t, final.JobRecords.ForWave(1), "wave 2 records must never be created")
	failed := final.JobRecordFor(0, "w1s2")
	require.NotNil(t, failed)
	assert.Equal(t, model.JobStatusFailed, failed.Status)
	assert.Equal(t, "replication stalled", failed.ErrorDetail)
	assert.NotEmpty(t, final.Failures)
}

func TestSubmissionFailure_CountsTowardWaveFailure(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)
	f.fake.Script("w1s3", backend.ServerScript{
		SubmitErr: exception.NewSubmission("backend", "quota exceeded", nil),
	})

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeDrill, "tester")
	require.NoError(t, err)

	final := waitForStatus(t, f, exec.ID, model.ExecutionStatusFailed)

	rejected := final.JobRecordFor(0, "w1s3")
	require.NotNil(t, rejected)
	assert.Equal(t, model.JobStatusFailed, rejected.Status)
	assert.Equal(t, string(exception.KindSubmission), rejected.ErrorKind)
	assert.Empty(t, rejected.BackendJobID)

	// Sibling jobs were not aborted mid-wave; they ran to terminal state.
	for _, serverID := range []string{"w1s1", "w1s2"} {
		sibling := final.JobRecordFor(0, serverID)
		require.NotNil(t, sibling)
		assert.True(t, sibling.Status.IsTerminal())
	}
}

func TestPauseResume_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)
	// Slow wave 1 so pause lands while its jobs are still in flight.
	slow := backend.ServerScript{States: []backend.JobState{
		{Status: model.JobStatusInProgress}, {Status: model.JobStatusInProgress},
		{Status: model.JobStatusInProgress}, {Status: model.JobStatusInProgress},
		{Status: model.JobStatusInProgress}, {Status: model.JobStatusInProgress},
		{Status: model.JobStatusSucceeded},
	}}
	f.fake.Script("w1s1", slow)
	f.fake.Script("w1s2", slow)
	f.fake.Script("w1s3", slow)

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeDrill, "tester")
	require.NoError(t, err)

	require.NoError(t, f.controller.Pause(context.Background(), exec.ID))

	// Pausing a paused execution is an invalid state transition.
	err = f.controller.Pause(context.Background(), exec.ID)
	require.Error(t, err)
	assert.True(t, exception.IsInvalidState(err))

	// Already-submitted wave-1 jobs are polled to their checkpoint while
	// paused; wave 2 is never dispatched.
	require.Eventually(t, func() bool {
		status, err := f.controller.Status(context.Background(), exec.ID)
		require.NoError(t, err)
		return status.JobRecords.ForWave(0).AllTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	status, err := f.controller.Status(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusPaused, status.Status)
	assert.Empty(t, status.JobRecords.ForWave(1))

	require.NoError(t, f.controller.Resume(context.Background(), exec.ID))
	final := waitForStatus(t, f, exec.ID, model.ExecutionStatusCompleted)

	// Idempotent resume: nothing was submitted twice.
	for _, serverID := range []string{"w1s1", "w1s2", "w1s3", "w2s1", "w2s2"} {
		assert.Equal(t, 1, f.fake.Submits(serverID), "server %s", serverID)
	}
	assert.Len(t, final.JobRecords, 5)
}

func TestResume_InvalidFromRunning(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)
	f.fake.Script("w1s1", backend.ServerScript{States: []backend.JobState{{Status: model.JobStatusInProgress}}})

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeDrill, "tester")
	require.NoError(t, err)

	err = f.controller.Resume(context.Background(), exec.ID)
	require.Error(t, err)
	assert.True(t, exception.IsInvalidState(err))

	require.NoError(t, f.controller.Cancel(context.Background(), exec.ID))
	f.controller.Wait(exec.ID)
}

func TestCancel_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)
	// Jobs that never finish; cancellation must not fabricate terminal status.
	stuck := backend.ServerScript{States: []backend.JobState{{Status: model.JobStatusInProgress}}}
	f.fake.Script("w1s1", stuck)
	f.fake.Script("w1s2", stuck)
	f.fake.Script("w1s3", stuck)

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeDrill, "tester")
	require.NoError(t, err)

	require.NoError(t, f.controller.Cancel(context.Background(), exec.ID))
	final := waitForStatus(t, f, exec.ID, model.ExecutionStatusCancelled)

	// Second cancel is a no-op success.
	require.NoError(t, f.controller.Cancel(context.Background(), exec.ID))

	// In-flight jobs keep their last known status.
	for _, jr := range final.JobRecords.ForWave(0) {
		assert.False(t, jr.Status.IsTerminal(), "server %s", jr.ServerID)
	}
	assert.Empty(t, final.JobRecords.ForWave(1))
}

func TestCancel_TerminalExecutionIsInvalid(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeDrill, "tester")
	require.NoError(t, err)
	waitForStatus(t, f, exec.ID, model.ExecutionStatusCompleted)

	err = f.controller.Cancel(context.Background(), exec.ID)
	require.Error(t, err)
	assert.True(t, exception.IsInvalidState(err))
}

func TestReattachAll_ResumesWithoutResubmitting(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)

	// Simulate an execution that crashed mid-wave: RUNNING in the store with
	// a submitted wave-1 job, no live drive loop.
	exec := model.NewExecution(f.frozenSnapshot(t), model.ExecutionTypeDrill, "tester")
	require.NoError(t, exec.TransitionTo(model.ExecutionStatusRunning))

	jobID, err := f.fake.StartRecovery(context.Background(), "w1s1", credentials.Credentials{AccountID: "acct-1"})
	require.NoError(t, err)
	exec.AppendJobRecord(model.JobRecord{
		ServerID: "w1s1", TargetAccountID: "acct-1", WaveIndex: 0,
		BackendJobID: jobID, Status: model.JobStatusSubmitted,
	})
	require.NoError(t, f.store.SaveExecution(context.Background(), exec))

	require.NoError(t, f.controller.ReattachAll(context.Background()))
	final := waitForStatus(t, f, exec.ID, model.ExecutionStatusCompleted)

	assert.Len(t, final.JobRecords, 5)
	// The crashed job was re-attached to its existing backend job.
	assert.Equal(t, 1, f.fake.Submits("w1s1"))
}

func TestStart_ReturnsSnapshotDetachedFromDriveLoop(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeDrill, "tester")
	require.NoError(t, err)
	f.controller.Wait(exec.ID)

	// The returned value is frozen at the moment Start returned; the drive
	// loop's progress never shows through it.
	assert.Equal(t, model.ExecutionStatusRunning, exec.Status)
	assert.Empty(t, exec.JobRecords)

	final, err := f.controller.Status(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusCompleted, final.Status)
	assert.Len(t, final.JobRecords, 5)
}

func TestResume_NotifiesWithResumeTimeSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)
	slow := backend.ServerScript{States: []backend.JobState{
		{Status: model.JobStatusInProgress}, {Status: model.JobStatusInProgress},
		{Status: model.JobStatusInProgress}, {Status: model.JobStatusInProgress},
		{Status: model.JobStatusSucceeded},
	}}
	f.fake.Script("w1s1", slow)
	f.fake.Script("w1s2", slow)
	f.fake.Script("w1s3", slow)

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeDrill, "tester")
	require.NoError(t, err)
	require.NoError(t, f.controller.Pause(context.Background(), exec.ID))
	require.NoError(t, f.controller.Resume(context.Background(), exec.ID))

	resumed := f.notifier.last(notification.EventResumed)
	require.NotNil(t, resumed)

	waitForStatus(t, f, exec.ID, model.ExecutionStatusCompleted)

	// The notified payload is a copy taken at resume time, not the live
	// execution the drive loop keeps mutating.
	assert.Equal(t, model.ExecutionStatusRunning, resumed.Status)
	assert.Empty(t, resumed.JobRecords.ForWave(1))
}

func TestReattachAll_DrivesPendingExecution(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)

	// An execution that crashed between creation and the RUNNING write is
	// still PENDING in the store.
	exec := model.NewExecution(f.frozenSnapshot(t), model.ExecutionTypeDrill, "tester")
	require.NoError(t, f.store.SaveExecution(context.Background(), exec))

	require.NoError(t, f.controller.ReattachAll(context.Background()))
	final := waitForStatus(t, f, exec.ID, model.ExecutionStatusCompleted)

	assert.Len(t, final.JobRecords, 5)
	for _, jr := range final.JobRecords {
		assert.Equal(t, model.JobStatusSucceeded, jr.Status)
	}
}

func TestStart_RecordsCredentialFetchDurations(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeDrill, "tester")
	require.NoError(t, err)
	waitForStatus(t, f, exec.ID, model.ExecutionStatusCompleted)

	// One observation per submission, cache hits included.
	assert.Equal(t, 5, f.recorder.DurationCount("credential_fetch_duration"))
}

func TestClearHistory_RetainsLiveExecutions(t *testing.T) {
	f := newFixture(t)
	f.seedTwoWavePlan(t)

	exec, err := f.controller.Start(context.Background(), "plan-1", model.ExecutionTypeDrill, "tester")
	require.NoError(t, err)
	waitForStatus(t, f, exec.ID, model.ExecutionStatusCompleted)

	removed, err := f.store.ClearHistory(context.Background(), repository.HistoryFilter{PlanID: "plan-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	history, err := f.store.ListHistory(context.Background(), repository.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}
