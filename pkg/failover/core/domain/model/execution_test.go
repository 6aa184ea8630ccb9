package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

func newTestExecution(status model.ExecutionStatus) *model.Execution {
	snapshot := model.NewPlanSnapshot(
		model.RecoveryPlan{ID: "plan-1", Name: "test-plan", Waves: []model.Wave{
			{ID: "w1", Sequence: 0, GroupIDs: []string{"g1"}},
		}},
		map[string]model.ProtectionGroup{
			"g1": {ID: "g1", Name: "group-one", TargetAccountID: "acct-1", Servers: []model.Server{{ID: "srv-1"}}},
		},
		map[string]model.TargetAccount{
			"acct-1": {ID: "acct-1"},
		},
	)
	e := model.NewExecution(snapshot, model.ExecutionTypeDrill, "tester")
	e.Status = status
	return e
}

func TestExecution_TransitionTo(t *testing.T) {
	// Valid transitions
	e := newTestExecution(model.ExecutionStatusPending)
	assert.NoError(t, e.TransitionTo(model.ExecutionStatusRunning))
	assert.Equal(t, model.ExecutionStatusRunning, e.Status)

	e = newTestExecution(model.ExecutionStatusRunning)
	assert.NoError(t, e.TransitionTo(model.ExecutionStatusPaused))
	assert.Equal(t, model.ExecutionStatusPaused, e.Status)

	// PAUSED -> RUNNING (resume)
	e = newTestExecution(model.ExecutionStatusPaused)
	assert.NoError(t, e.TransitionTo(model.ExecutionStatusRunning))
	assert.Equal(t, model.ExecutionStatusRunning, e.Status)

	// RUNNING -> WAVE_FAILED -> FAILED (fail-fast path)
	e = newTestExecution(model.ExecutionStatusRunning)
	assert.NoError(t, e.TransitionTo(model.ExecutionStatusWaveFailed))
	assert.NoError(t, e.TransitionTo(model.ExecutionStatusFailed))
	assert.Equal(t, model.ExecutionStatusFailed, e.Status)

	e = newTestExecution(model.ExecutionStatusRunning)
	assert.NoError(t, e.TransitionTo(model.ExecutionStatusCompleted))

	// Any non-terminal state -> CANCELLING
	for _, from := range []model.ExecutionStatus{
		model.ExecutionStatusPending,
		model.ExecutionStatusRunning,
		model.ExecutionStatusPaused,
		model.ExecutionStatusWaveFailed,
	} {
		e = newTestExecution(from)
		assert.NoError(t, e.TransitionTo(model.ExecutionStatusCancelling), "from %s", from)
	}

	// CANCELLING -> CANCELLED
	e = newTestExecution(model.ExecutionStatusCancelling)
	assert.NoError(t, e.TransitionTo(model.ExecutionStatusCancelled))

	// --- Invalid transitions ---

	// PENDING -> PAUSED (only RUNNING may pause)
	e = newTestExecution(model.ExecutionStatusPending)
	err := e.TransitionTo(model.ExecutionStatusPaused)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid state transition")

	// COMPLETED -> RUNNING (terminal)
	e = newTestExecution(model.ExecutionStatusCompleted)
	err = e.TransitionTo(model.ExecutionStatusRunning)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid state transition")

	// Terminal states never re-enter CANCELLING
	for _, from := range []model.ExecutionStatus{
		model.ExecutionStatusCompleted,
		model.ExecutionStatusFailed,
		model.ExecutionStatusCancelled,
	} {
		e = newTestExecution(from)
		err = e.TransitionTo(model.ExecutionStatusCancelling)
		assert.Error(t, err, "from %s", from)
	}

	// CANCELLING -> CANCELLING (self-transition invalid)
	e = newTestExecution(model.ExecutionStatusCancelling)
	err = e.TransitionTo(model.ExecutionStatusCancelling)
	assert.Error(t, err)
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	tests := map[model.ExecutionStatus]bool{
		model.ExecutionStatusPending:    false,
		model.ExecutionStatusRunning:    false,
		model.ExecutionStatusPaused:     false,
		model.ExecutionStatusWaveFailed: false,
		model.ExecutionStatusCancelling: false,
		model.ExecutionStatusCompleted:  true,
		model.ExecutionStatusFailed:     true,
		model.ExecutionStatusCancelled:  true,
	}
	for status, expected := range tests {
		assert.Equal(t, expected, status.IsTerminal(), "status %s", status)
	}
}

func TestExecution_MarkAsFailed(t *testing.T) {
	e := newTestExecution(model.ExecutionStatusRunning)
	e.MarkAsFailed(errors.New("wave 0 had failed jobs"))

	assert.Equal(t, model.ExecutionStatusFailed, e.Status)
	assert.NotNil(t, e.EndTime)
	assert.Contains(t, e.Failures, "wave 0 had failed jobs")
}

func TestJobRecordList_WaveHelpers(t *testing.T) {
	list := model.JobRecordList{
		{ServerID: "s1", WaveIndex: 0, Status: model.JobStatusSucceeded},
		{ServerID: "s2", WaveIndex: 0, Status: model.JobStatusInProgress},
		{ServerID: "s3", WaveIndex: 1, Status: model.JobStatusSubmitted},
	}

	wave0 := list.ForWave(0)
	assert.Len(t, wave0, 2)
	assert.False(t, wave0.AllTerminal())
	assert.False(t, wave0.AnyFailed())

	list[1].Status = model.JobStatusFailed
	wave0 = list.ForWave(0)
	assert.True(t, wave0.AllTerminal())
	assert.True(t, wave0.AnyFailed())

	assert.True(t, model.JobRecordList{}.AllTerminal())
}

func TestJobRecordList_ValueScanRoundTrip(t *testing.T) {
	list := model.JobRecordList{
		{ServerID: "s1", TargetAccountID: "acct-1", WaveIndex: 0, BackendJobID: "job-1", Status: model.JobStatusSucceeded, PollCount: 3},
	}

	v, err := list.Value()
	assert.NoError(t, err)

	var decoded model.JobRecordList
	assert.NoError(t, decoded.Scan(v))
	assert.Equal(t, list, decoded)

	// nil database value yields an empty list
	var empty model.JobRecordList
	assert.NoError(t, empty.Scan(nil))
	assert.NotNil(t, empty)
	assert.Len(t, empty, 0)
}

func TestPlanSnapshot_Immutability(t *testing.T) {
	plan := model.RecoveryPlan{ID: "plan-1", Waves: []model.Wave{
		{ID: "w1", Sequence: 0, GroupIDs: []string{"g1"}},
	}}
	groups := map[string]model.ProtectionGroup{
		"g1": {ID: "g1", Name: "group-one", Servers: []model.Server{{ID: "srv-1"}}},
	}
	accounts := map[string]model.TargetAccount{"acct-1": {ID: "acct-1"}}

	snapshot := model.NewPlanSnapshot(plan, groups, accounts)

	// Mutating the source definitions must not reach the snapshot.
	plan.Waves[0].GroupIDs[0] = "mutated"
	g := groups["g1"]
	g.Servers[0].ID = "mutated"
	groups["g1"] = g
	delete(accounts, "acct-1")

	assert.Equal(t, "g1", snapshot.Plan.Waves[0].GroupIDs[0])
	frozen, ok := snapshot.Group("g1")
	assert.True(t, ok)
	assert.Equal(t, "srv-1", frozen.Servers[0].ID)
	_, ok = snapshot.Account("acct-1")
	assert.True(t, ok)
}

func TestExecution_JobRecordFor(t *testing.T) {
	e := newTestExecution(model.ExecutionStatusRunning)
	e.AppendJobRecord(model.JobRecord{ServerID: "srv-1", WaveIndex: 0, Status: model.JobStatusSubmitted})

	jr := e.JobRecordFor(0, "srv-1")
	assert.NotNil(t, jr)

	jr.Status = model.JobStatusSucceeded
	assert.Equal(t, model.JobStatusSucceeded, e.JobRecords[0].Status)

	assert.Nil(t, e.JobRecordFor(1, "srv-1"))
	assert.Nil(t, e.JobRecordFor(0, "srv-2"))
}
