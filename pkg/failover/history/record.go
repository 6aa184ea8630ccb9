// Package history archives terminal executions to Parquet files on object
// storage, partitioned by completion date.
package history

import (
	"strings"
	"time"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// AuditRecord is the flattened audit row written to the Parquet archive.
type AuditRecord struct {
	ExecutionID    string `parquet:"name=execution_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	PlanID         string `parquet:"name=plan_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	PlanName       string `parquet:"name=plan_name,type=BYTE_ARRAY,convertedtype=UTF8"`
	Type           string `parquet:"name=type,type=BYTE_ARRAY,convertedtype=UTF8"`
	Status         string `parquet:"name=status,type=BYTE_ARRAY,convertedtype=UTF8"`
	Requester      string `parquet:"name=requester,type=BYTE_ARRAY,convertedtype=UTF8"`
	StartTime      int64  `parquet:"name=start_time,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	EndTime        int64  `parquet:"name=end_time,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	WaveCount      int32  `parquet:"name=wave_count,type=INT32"`
	JobCount       int32  `parquet:"name=job_count,type=INT32"`
	SucceededJobs  int32  `parquet:"name=succeeded_jobs,type=INT32"`
	FailedJobs     int32  `parquet:"name=failed_jobs,type=INT32"`
	FailureSummary string `parquet:"name=failure_summary,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// NewAuditRecord flattens one terminal Execution into an AuditRecord.
func NewAuditRecord(execution *model.Execution) AuditRecord {
	var succeeded, failed int32
	for _, record := range execution.JobRecords {
		switch record.Status {
		case model.JobStatusSucceeded:
			succeeded++
		case model.JobStatusFailed:
			failed++
		}
	}

	endTime := execution.StartTime
	if execution.EndTime != nil {
		endTime = *execution.EndTime
	}

	return AuditRecord{
		ExecutionID:    execution.ID,
		PlanID:         execution.PlanID,
		PlanName:       execution.Snapshot.Plan.Name,
		Type:           execution.Type.String(),
		Status:         execution.Status.String(),
		Requester:      execution.Requester,
		StartTime:      execution.StartTime.UnixMilli(),
		EndTime:        endTime.UnixMilli(),
		WaveCount:      int32(len(execution.Snapshot.Plan.Waves)),
		JobCount:       int32(len(execution.JobRecords)),
		SucceededJobs:  succeeded,
		FailedJobs:     failed,
		FailureSummary: strings.Join(execution.Failures, "; "),
	}
}

// PartitionKey returns the Hive-style partition directory for the record,
// derived from the completion time (e.g., "dt=2026-08-28").
func (r AuditRecord) PartitionKey() string {
	return "dt=" + time.UnixMilli(r.EndTime).UTC().Format("2006-01-02")
}
