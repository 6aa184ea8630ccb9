// Package backend defines the thin async client abstraction over the recovery
// backend's job submission and status API.
package backend

import (
	"context"

	"github.com/tigerroll/seawall/pkg/failover/credentials"
	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// JobState is the backend's view of one recovery job.
type JobState struct {
	// Status is the backend job status mapped onto the job record taxonomy.
	Status model.JobStatus
	// Detail is the backend's human-readable progress or failure detail.
	Detail string
}

// Client is the recovery backend API. Error contract:
//   - StartRecovery fails with a submission error on backend rejection
//     (quota exceeded, server not replicating). Retry policy belongs to the
//     controller, never to the client.
//   - DescribeJob fails with a transient error on throttling or network
//     conditions, and a permanent error on job-not-found or invalid
//     credentials.
type Client interface {
	// StartRecovery submits a recovery job for one server and returns the
	// backend job id.
	StartRecovery(ctx context.Context, serverID string, creds credentials.Credentials) (string, error)

	// DescribeJob returns the current state of a previously submitted job.
	DescribeJob(ctx context.Context, jobID string, creds credentials.Credentials) (JobState, error)
}
