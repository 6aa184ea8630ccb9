package backend

import (
	"context"
	"fmt"
	"sync"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/credentials"
	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
)

// ServerScript scripts the fake backend's behavior for one server.
type ServerScript struct {
	// SubmitErr, when set, is returned by StartRecovery for this server.
	SubmitErr error
	// DescribeErrs are returned by successive DescribeJob calls before any
	// state is reported, one per call. Used to script transient throttling.
	DescribeErrs []error
	// States are reported by successive DescribeJob calls after DescribeErrs
	// is exhausted; the last state repeats. Empty means the default
	// progression IN_PROGRESS then SUCCEEDED.
	States []JobState
}

// SubmitCall records the parameters of a single StartRecovery call.
type SubmitCall struct {
	ServerID  string
	AccountID string
	RoleRef   string
}

type fakeJob struct {
	serverID  string
	describes int
}

// FakeClient is a scripted in-memory recovery backend for tests and the demo
// entrypoint. Behavior per server is configured through Script; everything is
// safe for concurrent use.
type FakeClient struct {
	mu          sync.Mutex
	scripts     map[string]*ServerScript
	jobs        map[string]*fakeJob
	nextJobID   int
	SubmitCalls []SubmitCall
}

// NewFakeClient creates a FakeClient with no scripts; all servers follow the
// default progression.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		scripts:     make(map[string]*ServerScript),
		jobs:        make(map[string]*fakeJob),
		SubmitCalls: make([]SubmitCall, 0),
	}
}

// Script sets the scripted behavior for one server.
func (f *FakeClient) Script(serverID string, script ServerScript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[serverID] = &script
}

// StartRecovery implements the Client interface.
func (f *FakeClient) StartRecovery(ctx context.Context, serverID string, creds credentials.Credentials) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.SubmitCalls = append(f.SubmitCalls, SubmitCall{
		ServerID:  serverID,
		AccountID: creds.AccountID,
		RoleRef:   creds.RoleRef,
	})

	if s, ok := f.scripts[serverID]; ok && s.SubmitErr != nil {
		return "", s.SubmitErr
	}

	f.nextJobID++
	jobID := fmt.Sprintf("fake-job-%d", f.nextJobID)
	f.jobs[jobID] = &fakeJob{serverID: serverID}
	return jobID, nil
}

// DescribeJob implements the Client interface.
func (f *FakeClient) DescribeJob(ctx context.Context, jobID string, creds credentials.Credentials) (JobState, error) {
	if err := ctx.Err(); err != nil {
		return JobState{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[jobID]
	if !ok {
		return JobState{}, exception.NewPermanent("backend", fmt.Sprintf("job %s not found", jobID), nil, false)
	}

	call := job.describes
	job.describes++

	script := f.scripts[job.serverID]
	if script != nil {
		if call < len(script.DescribeErrs) {
			return JobState{}, script.DescribeErrs[call]
		}
		if len(script.States) > 0 {
			idx := call - len(script.DescribeErrs)
			if idx >= len(script.States) {
				idx = len(script.States) - 1
			}
			return script.States[idx], nil
		}
		call -= len(script.DescribeErrs)
	}

	// Default progression: one IN_PROGRESS report, then SUCCEEDED.
	if call == 0 {
		return JobState{Status: model.JobStatusInProgress, Detail: "recovery in progress"}, nil
	}
	return JobState{Status: model.JobStatusSucceeded, Detail: "recovery complete"}, nil
}

// Describes returns the number of DescribeJob calls made for the job id.
func (f *FakeClient) Describes(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[jobID]; ok {
		return job.describes
	}
	return 0
}

// Submits returns the number of StartRecovery calls made for the server id.
func (f *FakeClient) Submits(serverID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.SubmitCalls {
		if c.ServerID == serverID {
			n++
		}
	}
	return n
}

var _ Client = (*FakeClient)(nil)
