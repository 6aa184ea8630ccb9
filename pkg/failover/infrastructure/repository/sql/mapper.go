package sql

import (
	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// --- Mapper functions ---

func fromDomainExecution(e *model.Execution) *ExecutionEntity {
	if e == nil {
		return nil
	}
	return &ExecutionEntity{
		ID:               e.ID,
		PlanID:           e.PlanID,
		Snapshot:         e.Snapshot,
		Type:             e.Type,
		Status:           e.Status,
		CurrentWaveIndex: e.CurrentWaveIndex,
		JobRecords:       e.JobRecords,
		Failures:         e.Failures,
		Requester:        e.Requester,
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		CreateTime:       e.CreateTime,
		LastUpdated:      e.LastUpdated,
		Version:          e.Version,
	}
}

func toDomainExecution(entity *ExecutionEntity) *model.Execution {
	if entity == nil {
		return nil
	}
	return &model.Execution{
		ID:               entity.ID,
		PlanID:           entity.PlanID,
		Snapshot:         entity.Snapshot,
		Type:             entity.Type,
		Status:           entity.Status,
		CurrentWaveIndex: entity.CurrentWaveIndex,
		JobRecords:       entity.JobRecords,
		Failures:         entity.Failures,
		Requester:        entity.Requester,
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		CreateTime:       entity.CreateTime,
		LastUpdated:      entity.LastUpdated,
		Version:          entity.Version,
	}
}

func fromDomainExecutionHistory(e *model.Execution) *ExecutionHistoryEntity {
	if e == nil {
		return nil
	}
	return &ExecutionHistoryEntity{
		ID:               e.ID,
		PlanID:           e.PlanID,
		Snapshot:         e.Snapshot,
		Type:             e.Type,
		Status:           e.Status,
		CurrentWaveIndex: e.CurrentWaveIndex,
		JobRecords:       e.JobRecords,
		Failures:         e.Failures,
		Requester:        e.Requester,
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		CreateTime:       e.CreateTime,
		LastUpdated:      e.LastUpdated,
		Version:          e.Version,
	}
}

func toDomainExecutionFromHistory(entity *ExecutionHistoryEntity) *model.Execution {
	if entity == nil {
		return nil
	}
	return &model.Execution{
		ID:               entity.ID,
		PlanID:           entity.PlanID,
		Snapshot:         entity.Snapshot,
		Type:             entity.Type,
		Status:           entity.Status,
		CurrentWaveIndex: entity.CurrentWaveIndex,
		JobRecords:       entity.JobRecords,
		Failures:         entity.Failures,
		Requester:        entity.Requester,
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		CreateTime:       entity.CreateTime,
		LastUpdated:      entity.LastUpdated,
		Version:          entity.Version,
	}
}
