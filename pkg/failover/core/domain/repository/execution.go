package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// ErrExecutionNotFound is the error returned when an Execution is not found.
var ErrExecutionNotFound = errors.New("execution not found")

// ExecutionRepository defines persistence operations for Executions. Every
// write must be durable before the call returns; the controller treats a
// successful write as the commit point for a state transition.
type ExecutionRepository interface {
	// SaveExecution persists a new Execution.
	SaveExecution(ctx context.Context, execution *model.Execution) error

	// UpdateExecution updates the state of an existing Execution.
	UpdateExecution(ctx context.Context, execution *model.Execution) error

	// FindExecutionByID finds an Execution by its ID, job records included.
	FindExecutionByID(ctx context.Context, executionID string) (*model.Execution, error)

	// FindActiveExecutions finds all Executions in a non-terminal state. Used
	// on restart to re-attach pollers to executions that were RUNNING at crash
	// time.
	FindActiveExecutions(ctx context.Context) ([]*model.Execution, error)
}
