package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	logger "github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

// ExecutionStatus represents the lifecycle state of an Execution.
type ExecutionStatus string

const (
	ExecutionStatusPending    ExecutionStatus = "PENDING"
	ExecutionStatusRunning    ExecutionStatus = "RUNNING"
	ExecutionStatusPaused     ExecutionStatus = "PAUSED"
	ExecutionStatusWaveFailed ExecutionStatus = "WAVE_FAILED"
	ExecutionStatusFailed     ExecutionStatus = "FAILED"
	ExecutionStatusCompleted  ExecutionStatus = "COMPLETED"
	ExecutionStatusCancelling ExecutionStatus = "CANCELLING"
	ExecutionStatusCancelled  ExecutionStatus = "CANCELLED"
)

// String returns the string representation of the ExecutionStatus.
func (s ExecutionStatus) String() string {
	return string(s)
}

// IsTerminal checks if the ExecutionStatus represents a terminal state.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// ExecutionType distinguishes a rehearsal run from a real failover.
type ExecutionType string

const (
	ExecutionTypeDrill    ExecutionType = "DRILL"
	ExecutionTypeFailover ExecutionType = "FAILOVER"
)

// String returns the string representation of the ExecutionType.
func (t ExecutionType) String() string {
	return string(t)
}

// JobStatus represents the state of a single backend recovery job.
type JobStatus string

const (
	JobStatusSubmitted  JobStatus = "SUBMITTED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusSucceeded  JobStatus = "SUCCEEDED"
	JobStatusFailed     JobStatus = "FAILED"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal checks if the JobStatus represents a terminal state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// FailureList holds a list of error messages.
type FailureList []string

// Value implements the `driver.Valuer` interface, converting FailureList to a JSON string.
func (fl FailureList) Value() (driver.Value, error) {
	if fl == nil {
		return "[]", nil
	}
	data, err := json.Marshal(fl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to FailureList.
func (fl *FailureList) Scan(value interface{}) error {
	if value == nil {
		*fl = make(FailureList, 0)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for FailureList: %T", value)
	}

	if len(b) == 0 {
		*fl = make(FailureList, 0)
		return nil
	}

	if err := json.Unmarshal(b, fl); err != nil {
		return fmt.Errorf("failed to unmarshal FailureList JSON: %w", err)
	}
	return nil
}

// JobRecord tracks one backend recovery job for a single server within a wave.
// Records are owned exclusively by their Execution.
type JobRecord struct {
	ServerID        string     `json:"server_id"`
	TargetAccountID string     `json:"target_account_id"`
	WaveIndex       int        `json:"wave_index"`
	BackendJobID    string     `json:"backend_job_id,omitempty"`
	Status          JobStatus  `json:"status"`
	LastPolledAt    *time.Time `json:"last_polled_at,omitempty"`
	PollCount       int        `json:"poll_count"`
	ErrorKind       string     `json:"error_kind,omitempty"`
	ErrorDetail     string     `json:"error_detail,omitempty"`
}

// MarkPolled records a completed poll attempt.
func (jr *JobRecord) MarkPolled() {
	now := time.Now()
	jr.LastPolledAt = &now
	jr.PollCount++
}

// MarkFailed transitions the record to FAILED with the given error detail.
func (jr *JobRecord) MarkFailed(kind, detail string) {
	jr.Status = JobStatusFailed
	jr.ErrorKind = kind
	jr.ErrorDetail = detail
}

// JobRecordList holds the job records of an execution.
type JobRecordList []JobRecord

// Value implements the `driver.Valuer` interface, converting JobRecordList to a JSON string.
func (jl JobRecordList) Value() (driver.Value, error) {
	if jl == nil {
		return "[]", nil
	}
	data, err := json.Marshal(jl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to JobRecordList.
func (jl *JobRecordList) Scan(value interface{}) error {
	if value == nil {
		*jl = make(JobRecordList, 0)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for JobRecordList: %T", value)
	}

	if len(b) == 0 {
		*jl = make(JobRecordList, 0)
		return nil
	}

	if err := json.Unmarshal(b, jl); err != nil {
		return fmt.Errorf("failed to unmarshal JobRecordList JSON: %w", err)
	}
	return nil
}

// ForWave returns the records belonging to the given wave index.
func (jl JobRecordList) ForWave(waveIndex int) JobRecordList {
	out := make(JobRecordList, 0)
	for _, jr := range jl {
		if jr.WaveIndex == waveIndex {
			out = append(out, jr)
		}
	}
	return out
}

// AllTerminal reports whether every record in the list is terminal. An empty
// list is considered terminal.
func (jl JobRecordList) AllTerminal() bool {
	for _, jr := range jl {
		if !jr.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// AnyFailed reports whether any record in the list has failed.
func (jl JobRecordList) AnyFailed() bool {
	for _, jr := range jl {
		if jr.Status == JobStatusFailed {
			return true
		}
	}
	return false
}

// Copy creates a deep copy of the JobRecordList.
func (jl JobRecordList) Copy() JobRecordList {
	out := make(JobRecordList, len(jl))
	for i, jr := range jl {
		cp := jr
		if jr.LastPolledAt != nil {
			t := *jr.LastPolledAt
			cp.LastPolledAt = &t
		}
		out[i] = cp
	}
	return out
}

// Execution is a single run (drill or failover) of a recovery plan. It owns
// its JobRecords and carries a frozen snapshot of the plan it executes.
type Execution struct {
	ID               string
	PlanID           string
	Snapshot         PlanSnapshot
	Type             ExecutionType
	Status           ExecutionStatus
	CurrentWaveIndex int
	JobRecords       JobRecordList
	Failures         FailureList
	Requester        string
	StartTime        time.Time
	EndTime          *time.Time
	CreateTime       time.Time
	LastUpdated      time.Time
	Version          int
}

// NewExecution creates a new Execution in PENDING over the given frozen plan
// snapshot.
func NewExecution(snapshot PlanSnapshot, execType ExecutionType, requester string) *Execution {
	now := time.Now()
	return &Execution{
		ID:               NewID(),
		PlanID:           snapshot.Plan.ID,
		Snapshot:         snapshot,
		Type:             execType,
		Status:           ExecutionStatusPending,
		CurrentWaveIndex: 0,
		JobRecords:       make(JobRecordList, 0),
		Failures:         make(FailureList, 0),
		Requester:        requester,
		StartTime:        now,
		CreateTime:       now,
		LastUpdated:      now,
		Version:          0,
	}
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// isValidExecutionTransition checks if the state transition for an Execution is valid.
func isValidExecutionTransition(current, next ExecutionStatus) bool {
	// Any non-terminal state may move to CANCELLING.
	if next == ExecutionStatusCancelling {
		return !current.IsTerminal() && current != ExecutionStatusCancelling
	}
	switch current {
	case ExecutionStatusPending:
		return next == ExecutionStatusRunning
	case ExecutionStatusRunning:
		return next == ExecutionStatusPaused || next == ExecutionStatusWaveFailed || next == ExecutionStatusCompleted
	case ExecutionStatusPaused:
		return next == ExecutionStatusRunning
	case ExecutionStatusWaveFailed:
		return next == ExecutionStatusFailed
	case ExecutionStatusCancelling:
		return next == ExecutionStatusCancelled
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return false
	default:
		return false
	}
}

// TransitionTo safely transitions the state of the Execution. Note: fields
// other than Status and LastUpdated must be set separately by the caller.
func (e *Execution) TransitionTo(newStatus ExecutionStatus) error {
	if !isValidExecutionTransition(e.Status, newStatus) {
		return fmt.Errorf("Execution (ID: %s): Invalid state transition: %s -> %s", e.ID, e.Status, newStatus)
	}
	e.Status = newStatus
	e.LastUpdated = time.Now()
	return nil
}

// MarkAsRunning updates the Execution status to RUNNING.
func (e *Execution) MarkAsRunning() {
	if err := e.TransitionTo(ExecutionStatusRunning); err != nil {
		logger.Warnf("Could not update Execution (ID: %s) status to RUNNING: %v", e.ID, err)
		e.Status = ExecutionStatusRunning
	}
	e.LastUpdated = time.Now()
}

// MarkAsCompleted updates the Execution status to COMPLETED and stamps the end time.
func (e *Execution) MarkAsCompleted() {
	if err := e.TransitionTo(ExecutionStatusCompleted); err != nil {
		logger.Warnf("Could not update Execution (ID: %s) status to COMPLETED: %v", e.ID, err)
		e.Status = ExecutionStatusCompleted
	}
	now := time.Now()
	e.EndTime = &now
	e.LastUpdated = now
}

// MarkAsFailed updates the Execution status to FAILED via WAVE_FAILED when
// needed, appends the failure, and stamps the end time.
func (e *Execution) MarkAsFailed(failure error) {
	if e.Status == ExecutionStatusRunning {
		if err := e.TransitionTo(ExecutionStatusWaveFailed); err != nil {
			logger.Warnf("Could not update Execution (ID: %s) status to WAVE_FAILED: %v", e.ID, err)
		}
	}
	if err := e.TransitionTo(ExecutionStatusFailed); err != nil {
		logger.Warnf("Could not update Execution (ID: %s) status to FAILED: %v", e.ID, err)
		e.Status = ExecutionStatusFailed
	}
	if failure != nil {
		e.AddFailure(failure)
	}
	now := time.Now()
	e.EndTime = &now
	e.LastUpdated = now
}

// MarkAsCancelled settles a CANCELLING Execution to CANCELLED and stamps the
// end time.
func (e *Execution) MarkAsCancelled() {
	if err := e.TransitionTo(ExecutionStatusCancelled); err != nil {
		logger.Warnf("Could not update Execution (ID: %s) status to CANCELLED: %v", e.ID, err)
		e.Status = ExecutionStatusCancelled
	}
	now := time.Now()
	e.EndTime = &now
	e.LastUpdated = now
}

// AddFailure appends an error message to the failure list.
func (e *Execution) AddFailure(err error) {
	if err == nil {
		return
	}
	e.Failures = append(e.Failures, err.Error())
	e.LastUpdated = time.Now()
}

// JobRecordFor returns a pointer to the record for the given server in the
// given wave, or nil if absent. The pointer aliases the Execution's backing
// slice; callers mutate through it under the Execution's owner.
func (e *Execution) JobRecordFor(waveIndex int, serverID string) *JobRecord {
	for i := range e.JobRecords {
		if e.JobRecords[i].WaveIndex == waveIndex && e.JobRecords[i].ServerID == serverID {
			return &e.JobRecords[i]
		}
	}
	return nil
}

// AppendJobRecord adds a new job record to the execution.
func (e *Execution) AppendJobRecord(jr JobRecord) {
	e.JobRecords = append(e.JobRecords, jr)
	e.LastUpdated = time.Now()
}

// Copy creates a deep copy of the Execution.
func (e *Execution) Copy() *Execution {
	cp := *e
	cp.Snapshot = e.Snapshot.Copy()
	cp.JobRecords = e.JobRecords.Copy()
	cp.Failures = append(FailureList(nil), e.Failures...)
	if e.EndTime != nil {
		t := *e.EndTime
		cp.EndTime = &t
	}
	return &cp
}

// DebugString returns a compact debug representation of the Execution,
// omitting the plan snapshot.
func (e *Execution) DebugString() string {
	endTimeStr := "nil"
	if e.EndTime != nil {
		endTimeStr = e.EndTime.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf(
		"&{ID:%s PlanID:%s Type:%s Status:%s CurrentWaveIndex:%d JobRecords:%d Failures:%v StartTime:%s EndTime:%s Version:%d}",
		e.ID, e.PlanID, e.Type, e.Status, e.CurrentWaveIndex, len(e.JobRecords),
		e.Failures, e.StartTime.Format(time.RFC3339Nano), endTimeStr, e.Version,
	)
}
