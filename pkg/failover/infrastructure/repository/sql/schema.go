package sql

import (
	"time"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// ExecutionEntity is a schema model used for persistence of live executions.
type ExecutionEntity struct {
	ID               string
	PlanID           string
	Snapshot         model.PlanSnapshot
	Type             model.ExecutionType
	Status           model.ExecutionStatus
	CurrentWaveIndex int
	JobRecords       model.JobRecordList
	Failures         model.FailureList
	Requester        string
	StartTime        time.Time
	EndTime          *time.Time
	CreateTime       time.Time
	LastUpdated      time.Time
	Version          int
}

func (ExecutionEntity) TableName() string {
	return "failover_execution"
}

// ExecutionHistoryEntity is a schema model for the append-only audit log of
// terminal executions. It carries the same columns as ExecutionEntity but is
// written once and never updated.
type ExecutionHistoryEntity struct {
	ID               string
	PlanID           string
	Snapshot         model.PlanSnapshot
	Type             model.ExecutionType
	Status           model.ExecutionStatus
	CurrentWaveIndex int
	JobRecords       model.JobRecordList
	Failures         model.FailureList
	Requester        string
	StartTime        time.Time
	EndTime          *time.Time
	CreateTime       time.Time
	LastUpdated      time.Time
	Version          int
}

func (ExecutionHistoryEntity) TableName() string {
	return "failover_execution_history"
}
