package repository

import (
	"context"
	"time"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// HistoryFilter narrows ListHistory results. Zero values mean no restriction.
type HistoryFilter struct {
	PlanID        string
	Status        model.ExecutionStatus
	Type          model.ExecutionType
	CompletedFrom time.Time
	CompletedTo   time.Time
	Limit         int
}

// Matches reports whether the given execution satisfies the filter.
func (f HistoryFilter) Matches(e *model.Execution) bool {
	if f.PlanID != "" && e.PlanID != f.PlanID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if e.EndTime != nil {
		if !f.CompletedFrom.IsZero() && e.EndTime.Before(f.CompletedFrom) {
			return false
		}
		if !f.CompletedTo.IsZero() && e.EndTime.After(f.CompletedTo) {
			return false
		}
	}
	return true
}

// ExecutionHistoryRepository defines the append-only audit log of terminal
// executions, retained independently of the live Execution record.
type ExecutionHistoryRepository interface {
	// AppendHistory records a terminal execution. Write-once per terminal
	// transition; appending a non-terminal execution is an error.
	AppendHistory(ctx context.Context, execution *model.Execution) error

	// ListHistory returns history records matching the filter, most recent
	// first.
	ListHistory(ctx context.Context, filter HistoryFilter) ([]*model.Execution, error)

	// ClearHistory removes history records matching the filter. Records of
	// executions that are still non-terminal in the live store are never
	// removed.
	ClearHistory(ctx context.Context, filter HistoryFilter) (int, error)
}
