// Package controller owns the execution lifecycle: it freezes plan snapshots,
// drives waves in dependency order, coordinates the poller and credential
// broker, and persists every state transition before acting on it.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/tigerroll/seawall/pkg/failover/backend"
	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
	"github.com/tigerroll/seawall/pkg/failover/core/metrics"
	"github.com/tigerroll/seawall/pkg/failover/credentials"
	"github.com/tigerroll/seawall/pkg/failover/engine/poller"
	"github.com/tigerroll/seawall/pkg/failover/engine/scheduler"
	"github.com/tigerroll/seawall/pkg/failover/listener/notification"
	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
	logger "github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

const moduleName = "controller"

// Controller is the top-level state machine over executions. Multiple
// executions run concurrently and independently; within one execution, jobs
// of the same wave run in parallel while waves are strictly sequential.
type Controller struct {
	store    repository.ExecutionStore
	defs     repository.DefinitionRepository
	client   backend.Client
	broker   *credentials.Broker
	poller   *poller.Poller
	notifier notification.Notifier
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer

	mu   sync.Mutex
	runs map[string]*run
}

// run is the live tracking state of one attached execution.
type run struct {
	mu       sync.Mutex
	exec     *model.Execution
	graph    *scheduler.WaveGraph
	cancel   context.CancelFunc
	resumeCh chan struct{}
	done     chan struct{}
}

// NewController creates a Controller over the given collaborators.
func NewController(
	store repository.ExecutionStore,
	defs repository.DefinitionRepository,
	client backend.Client,
	broker *credentials.Broker,
	p *poller.Poller,
	notifier notification.Notifier,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *Controller {
	return &Controller{
		store:    store,
		defs:     defs,
		client:   client,
		broker:   broker,
		poller:   p,
		notifier: notifier,
		recorder: recorder,
		tracer:   tracer,
		runs:     make(map[string]*run),
	}
}

// Start freezes a snapshot of the plan, validates its wave graph, creates the
// execution, and begins driving it. A structurally invalid plan surfaces a
// validation error and no execution is created.
func (c *Controller) Start(ctx context.Context, planID string, execType model.ExecutionType, requester string) (*model.Execution, error) {
	snapshot, err := c.freezeSnapshot(ctx, planID)
	if err != nil {
		return nil, err
	}

	graph, err := scheduler.NewWaveGraph(snapshot)
	if err != nil {
		return nil, err
	}

	exec := model.NewExecution(snapshot, execType, requester)
	if err := c.store.SaveExecution(ctx, exec); err != nil {
		return nil, exception.NewInternal(moduleName, fmt.Sprintf("failed to persist execution for plan %s", planID), err)
	}

	// The RUNNING transition is durable before wave 0 is dispatched.
	if err := exec.TransitionTo(model.ExecutionStatusRunning); err != nil {
		return nil, exception.NewInvalidState(moduleName, "execution cannot enter RUNNING", err)
	}
	if err := c.store.UpdateExecution(ctx, exec); err != nil {
		return nil, exception.NewInternal(moduleName, fmt.Sprintf("failed to persist RUNNING for execution %s", exec.ID), err)
	}

	c.recorder.RecordExecutionStart(ctx, exec)
	c.notifier.NotifyTransition(ctx, notification.EventStarted, exec)
	logger.Infof("Execution %s started for plan %s (type %s, %d waves).", exec.ID, planID, execType, graph.Len())

	// The drive loop owns exec once attached; the caller's copy is taken first.
	started := exec.Copy()
	c.attach(exec, graph)
	return started, nil
}

// freezeSnapshot resolves the plan and every group and account it references
// into an immutable snapshot.
func (c *Controller) freezeSnapshot(ctx context.Context, planID string) (model.PlanSnapshot, error) {
	plan, err := c.defs.FindRecoveryPlanByID(ctx, planID)
	if err != nil {
		return model.PlanSnapshot{}, exception.NewValidation(moduleName, fmt.Sprintf("recovery plan %s not found", planID), err)
	}

	groups := make(map[string]model.ProtectionGroup)
	accounts := make(map[string]model.TargetAccount)
	for _, wave := range plan.Waves {
		for _, gid := range wave.GroupIDs {
			if _, ok := groups[gid]; ok {
				continue
			}
			group, err := c.defs.FindProtectionGroupByID(ctx, gid)
			if err != nil {
				return model.PlanSnapshot{}, exception.NewValidation(moduleName,
					fmt.Sprintf("protection group %s referenced by wave %s not found", gid, wave.ID), err)
			}
			groups[gid] = *group

			if _, ok := accounts[group.TargetAccountID]; ok {
				continue
			}
			account, err := c.defs.FindTargetAccountByID(ctx, group.TargetAccountID)
			if err != nil {
				return model.PlanSnapshot{}, exception.NewValidation(moduleName,
					fmt.Sprintf("target account %s referenced by group %s not found", group.TargetAccountID, gid), err)
			}
			accounts[account.ID] = *account
		}
	}

	return model.NewPlanSnapshot(*plan, groups, accounts), nil
}

// attach registers a run for the execution and spawns its drive loop.
func (c *Controller) attach(exec *model.Execution, graph *scheduler.WaveGraph) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		exec:     exec,
		graph:    graph,
		cancel:   cancel,
		resumeCh: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	c.mu.Lock()
	c.runs[exec.ID] = r
	c.mu.Unlock()

	go func() {
		defer close(r.done)
		defer cancel()
		c.drive(ctx, r)
		c.mu.Lock()
		delete(c.runs, exec.ID)
		c.mu.Unlock()
	}()
}

// drive advances the execution wave by wave until a terminal state.
func (c *Controller) drive(ctx context.Context, r *run) {
	execCtx, endSpan := c.tracer.StartExecutionSpan(ctx, r.exec)
	defer endSpan()

	for {
		// Lifecycle gate: observed at every wave boundary.
		if !c.gate(execCtx, r) {
			return
		}

		r.mu.Lock()
		next := r.graph.NextReadyWave(func(i int) bool { return c.waveCompleted(r, i) })
		r.mu.Unlock()

		if next < 0 {
			c.settleCompleted(execCtx, r)
			return
		}

		if err := c.runWave(execCtx, r, next); err != nil {
			if execCtx.Err() != nil {
				c.settleCancelled(execCtx, r)
				return
			}
			c.settleFailed(execCtx, r, err)
			return
		}

		r.mu.Lock()
		failed := r.exec.JobRecords.ForWave(next).AnyFailed()
		r.mu.Unlock()
		if failed {
			c.settleFailed(execCtx, r, exception.Newf(moduleName, exception.KindPermanent,
				"wave %d (%s) had failed jobs", next, r.graph.Wave(next).ID))
			return
		}
	}
}

// gate blocks while the execution is paused and reports whether driving may
// continue. It returns false once the execution is being cancelled, after
// settling it.
func (c *Controller) gate(ctx context.Context, r *run) bool {
	for {
		r.mu.Lock()
		status := r.exec.Status
		r.mu.Unlock()

		switch status {
		case model.ExecutionStatusRunning:
			return true
		case model.ExecutionStatusPaused:
			select {
			case <-r.resumeCh:
				continue
			case <-ctx.Done():
				c.settleCancelled(ctx, r)
				return false
			}
		case model.ExecutionStatusCancelling:
			c.settleCancelled(ctx, r)
			return false
		default:
			logger.Warnf("Execution %s: drive loop exiting in state %s.", r.exec.ID, status)
			return false
		}
	}
}

// waveCompleted reports whether every server of the wave has a succeeded job
// record. Caller holds r.mu.
func (c *Controller) waveCompleted(r *run, waveIndex int) bool {
	wave := r.graph.Wave(waveIndex)
	records := r.exec.JobRecords.ForWave(waveIndex)
	byServer := make(map[string]model.JobStatus, len(records))
	for _, jr := range records {
		byServer[jr.ServerID] = jr.Status
	}
	for _, target := range waveTargets(r.exec.Snapshot, wave) {
		if byServer[target.serverID] != model.JobStatusSucceeded {
			return false
		}
	}
	return true
}

// waveTarget pairs a server with its recovery destination account.
type waveTarget struct {
	serverID  string
	accountID string
}

func waveTargets(snapshot model.PlanSnapshot, wave model.Wave) []waveTarget {
	targets := make([]waveTarget, 0)
	for _, gid := range wave.GroupIDs {
		group, ok := snapshot.Group(gid)
		if !ok {
			continue
		}
		for _, server := range group.Servers {
			targets = append(targets, waveTarget{serverID: server.ID, accountID: group.TargetAccountID})
		}
	}
	return targets
}

// runWave submits and polls all jobs of one wave. Submission reuses existing
// job records (idempotent resume and crash re-attach never double-submit).
// Job-level errors are contained to their records; only persistence failures
// or cancellation surface as an error.
func (c *Controller) runWave(ctx context.Context, r *run, waveIndex int) error {
	wave := r.graph.Wave(waveIndex)
	waveCtx, endSpan := c.tracer.StartWaveSpan(ctx, r.exec, waveIndex)
	defer endSpan()

	r.mu.Lock()
	r.exec.CurrentWaveIndex = waveIndex
	r.mu.Unlock()
	if err := c.persist(ctx, r); err != nil {
		return err
	}

	c.recorder.RecordWaveStart(waveCtx, r.exec, waveIndex)
	logger.Infof("Execution %s: dispatching wave %d (%s).", r.exec.ID, waveIndex, wave.ID)

	if err := c.submitWave(waveCtx, r, waveIndex); err != nil {
		return err
	}

	if err := c.pollWave(waveCtx, r, waveIndex); err != nil {
		return err
	}

	r.mu.Lock()
	failed := r.exec.JobRecords.ForWave(waveIndex).AnyFailed()
	r.mu.Unlock()
	c.recorder.RecordWaveEnd(waveCtx, r.exec, waveIndex, failed)
	logger.Infof("Execution %s: wave %d (%s) reached terminal state (failed=%t).", r.exec.ID, waveIndex, wave.ID, failed)
	return nil
}

// submitWave creates job records and submits backend jobs for every server of
// the wave that does not already have a submitted job.
func (c *Controller) submitWave(ctx context.Context, r *run, waveIndex int) error {
	wave := r.graph.Wave(waveIndex)
	var submitErrs error

	for _, target := range waveTargets(r.exec.Snapshot, wave) {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.mu.Lock()
		existing := r.exec.JobRecordFor(waveIndex, target.serverID)
		hasJob := existing != nil && existing.BackendJobID != ""
		terminal := existing != nil && existing.Status.IsTerminal()
		r.mu.Unlock()
		if hasJob || terminal {
			// Already submitted in a previous attempt; polling will pick it up.
			continue
		}

		account, ok := r.exec.Snapshot.Account(target.accountID)
		if !ok {
			c.recordSubmissionFailure(r, waveIndex, target, exception.Newf(moduleName, exception.KindSubmission,
				"target account %s missing from snapshot", target.accountID))
			continue
		}

		fetchStart := time.Now()
		creds, err := c.broker.GetCredentials(ctx, account)
		c.recorder.RecordDuration(ctx, "credential_fetch_duration", time.Since(fetchStart),
			map[string]string{"account_id": account.ID})
		if err != nil {
			submitErrs = multierror.Append(submitErrs, err)
			c.recordSubmissionFailure(r, waveIndex, target, err)
			continue
		}

		jobID, err := c.client.StartRecovery(ctx, target.serverID, creds)
		if err != nil {
			submitErrs = multierror.Append(submitErrs, err)
			c.recordSubmissionFailure(r, waveIndex, target, err)
			continue
		}

		r.mu.Lock()
		if existing != nil {
			existing.BackendJobID = jobID
			existing.Status = model.JobStatusSubmitted
		} else {
			r.exec.AppendJobRecord(model.JobRecord{
				ServerID:        target.serverID,
				TargetAccountID: target.accountID,
				WaveIndex:       waveIndex,
				BackendJobID:    jobID,
				Status:          model.JobStatusSubmitted,
			})
		}
		r.mu.Unlock()
		c.recorder.RecordJobSubmitted(ctx, r.exec.ID, target.serverID)
		logger.Debugf("Execution %s: submitted job %s for server %s (account %s).", r.exec.ID, jobID, target.serverID, target.accountID)
	}

	if submitErrs != nil {
		logger.Warnf("Execution %s: wave %d had submission failures: %v", r.exec.ID, waveIndex, submitErrs)
	}

	// Submitted job ids are durable before any poll is issued.
	return c.persist(ctx, r)
}

// recordSubmissionFailure records a failed job record for the target without
// aborting sibling submissions.
func (c *Controller) recordSubmissionFailure(r *run, waveIndex int, target waveTarget, err error) {
	kind := exception.KindOf(err)
	if kind == exception.KindInternal {
		kind = exception.KindSubmission
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.exec.JobRecordFor(waveIndex, target.serverID); existing != nil {
		existing.MarkFailed(string(kind), exception.ExtractErrorMessage(err))
		return
	}
	jr := model.JobRecord{
		ServerID:        target.serverID,
		TargetAccountID: target.accountID,
		WaveIndex:       waveIndex,
	}
	jr.MarkFailed(string(kind), exception.ExtractErrorMessage(err))
	r.exec.AppendJobRecord(jr)
}

// pollWave drives all non-terminal records of the wave to terminal state,
// polling jobs concurrently. Each poll goroutine works on a private copy of
// its record; changes land in the canonical record under the run lock when
// they are persisted.
func (c *Controller) pollWave(ctx context.Context, r *run, waveIndex int) error {
	r.mu.Lock()
	var pending []*model.JobRecord
	for i := range r.exec.JobRecords {
		jr := &r.exec.JobRecords[i]
		if jr.WaveIndex == waveIndex && !jr.Status.IsTerminal() && jr.BackendJobID != "" {
			pending = append(pending, jr)
		}
	}
	r.mu.Unlock()

	g, pollCtx := errgroup.WithContext(ctx)
	for _, canonical := range pending {
		canonical := canonical
		account, _ := r.exec.Snapshot.Account(canonical.TargetAccountID)
		scratch := *canonical
		g.Go(func() error {
			return c.poller.PollJob(pollCtx, r.exec.ID, &scratch, account, func(uctx context.Context) error {
				r.mu.Lock()
				*canonical = scratch
				r.mu.Unlock()
				// Poll contexts die on cancellation; the record update itself
				// must still be made durable.
				return c.persist(context.WithoutCancel(uctx), r)
			})
		})
	}
	return g.Wait()
}

// liveRun returns the attached run for the execution, or an invalid-state
// error naming the stored status when no drive loop is attached.
func (c *Controller) liveRun(executionID string) (*run, error) {
	c.mu.Lock()
	r, live := c.runs[executionID]
	c.mu.Unlock()
	if !live {
		exec, err := c.store.FindExecutionByID(context.Background(), executionID)
		if err != nil {
			return nil, exception.NewInvalidState(moduleName, fmt.Sprintf("execution %s not found", executionID), err)
		}
		return nil, exception.NewInvalidState(moduleName,
			fmt.Sprintf("execution %s has no active run (state %s)", executionID, exec.Status), nil)
	}
	return r, nil
}

// persist makes the execution's current state durable. A successful write is
// the commit point for any transition.
func (c *Controller) persist(ctx context.Context, r *run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := c.store.UpdateExecution(ctx, r.exec); err != nil {
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to persist execution %s", r.exec.ID), err)
	}
	return nil
}

func (c *Controller) settleCompleted(ctx context.Context, r *run) {
	r.mu.Lock()
	r.exec.MarkAsCompleted()
	r.mu.Unlock()
	if err := c.persist(ctx, r); err != nil {
		logger.Errorf("Execution %s: failed to persist COMPLETED: %v", r.exec.ID, err)
		return
	}
	c.finish(ctx, r, notification.EventCompleted)
}

func (c *Controller) settleFailed(ctx context.Context, r *run, cause error) {
	r.mu.Lock()
	r.exec.MarkAsFailed(cause)
	r.mu.Unlock()
	if err := c.persist(ctx, r); err != nil {
		logger.Errorf("Execution %s: failed to persist FAILED: %v", r.exec.ID, err)
		return
	}
	c.tracer.RecordError(ctx, moduleName, cause)
	c.finish(ctx, r, notification.EventFailed)
}

func (c *Controller) settleCancelled(ctx context.Context, r *run) {
	// The poll context is already dead; bookkeeping writes go through a
	// detached context.
	bctx := context.WithoutCancel(ctx)
	r.mu.Lock()
	if r.exec.Status != model.ExecutionStatusCancelling {
		// Cancellation raced a lifecycle call that never persisted CANCELLING.
		if err := r.exec.TransitionTo(model.ExecutionStatusCancelling); err != nil {
			r.mu.Unlock()
			return
		}
	}
	r.exec.MarkAsCancelled()
	r.mu.Unlock()
	if err := c.persist(bctx, r); err != nil {
		logger.Errorf("Execution %s: failed to persist CANCELLED: %v", r.exec.ID, err)
		return
	}
	c.finish(bctx, r, notification.EventCancelled)
}

// finish archives the terminal execution and emits the closing notification.
// Archive failures are logged and never mutate execution state.
func (c *Controller) finish(ctx context.Context, r *run, event notification.Event) {
	r.mu.Lock()
	exec := r.exec.Copy()
	r.mu.Unlock()

	c.recorder.RecordExecutionEnd(ctx, exec)
	if err := c.store.AppendHistory(ctx, exec); err != nil {
		logger.Errorf("Execution %s: failed to append history: %v", exec.ID, err)
	}
	c.notifier.NotifyTransition(ctx, event, exec)
	logger.Infof("Execution %s finished with status %s.", exec.ID, exec.Status)
}

// Pause moves a RUNNING execution to PAUSED. The in-flight wave is polled to
// its checkpoint; no further wave is dispatched while paused.
func (c *Controller) Pause(ctx context.Context, executionID string) error {
	r, err := c.liveRun(executionID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exec.Status != model.ExecutionStatusRunning {
		return exception.NewInvalidState(moduleName,
			fmt.Sprintf("cannot pause execution %s in state %s", executionID, r.exec.Status), nil)
	}

	prev := r.exec.Status
	if err := r.exec.TransitionTo(model.ExecutionStatusPaused); err != nil {
		return exception.NewInvalidState(moduleName, "pause rejected", err)
	}
	if err := c.store.UpdateExecution(ctx, r.exec); err != nil {
		r.exec.Status = prev
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to persist PAUSED for execution %s", executionID), err)
	}

	c.notifier.NotifyTransition(ctx, notification.EventPaused, r.exec)
	logger.Infof("Execution %s paused.", executionID)
	return nil
}

// Resume moves a PAUSED execution back to RUNNING and continues from the
// first non-completed wave. Already-submitted jobs are never re-submitted.
func (c *Controller) Resume(ctx context.Context, executionID string) error {
	r, err := c.liveRun(executionID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.exec.Status != model.ExecutionStatusPaused {
		status := r.exec.Status
		r.mu.Unlock()
		return exception.NewInvalidState(moduleName,
			fmt.Sprintf("cannot resume execution %s in state %s", executionID, status), nil)
	}

	prev := r.exec.Status
	if err := r.exec.TransitionTo(model.ExecutionStatusRunning); err != nil {
		r.mu.Unlock()
		return exception.NewInvalidState(moduleName, "resume rejected", err)
	}
	if err := c.store.UpdateExecution(ctx, r.exec); err != nil {
		r.exec.Status = prev
		r.mu.Unlock()
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to persist RUNNING for execution %s", executionID), err)
	}
	resumed := r.exec.Copy()
	r.mu.Unlock()

	select {
	case r.resumeCh <- struct{}{}:
	default:
	}

	c.notifier.NotifyTransition(ctx, notification.EventResumed, resumed)
	logger.Infof("Execution %s resumed.", executionID)
	return nil
}

// Cancel moves any non-terminal execution to CANCELLING and signals the
// poller to stop scheduling new polls. Already-submitted backend jobs are not
// retracted. Cancelling an already-cancelled execution is a no-op success.
func (c *Controller) Cancel(ctx context.Context, executionID string) error {
	c.mu.Lock()
	r, live := c.runs[executionID]
	c.mu.Unlock()

	if !live {
		exec, err := c.store.FindExecutionByID(ctx, executionID)
		if err != nil {
			return exception.NewInvalidState(moduleName, fmt.Sprintf("execution %s not found", executionID), err)
		}
		switch exec.Status {
		case model.ExecutionStatusCancelled, model.ExecutionStatusCancelling:
			return nil
		case model.ExecutionStatusCompleted, model.ExecutionStatusFailed:
			return exception.NewInvalidState(moduleName,
				fmt.Sprintf("cannot cancel execution %s in state %s", executionID, exec.Status), nil)
		}
		// Detached non-terminal execution: settle directly.
		if err := exec.TransitionTo(model.ExecutionStatusCancelling); err != nil {
			return exception.NewInvalidState(moduleName, "cancel rejected", err)
		}
		if err := c.store.UpdateExecution(ctx, exec); err != nil {
			return exception.NewInternal(moduleName, fmt.Sprintf("failed to persist CANCELLING for execution %s", executionID), err)
		}
		exec.MarkAsCancelled()
		if err := c.store.UpdateExecution(ctx, exec); err != nil {
			return exception.NewInternal(moduleName, fmt.Sprintf("failed to persist CANCELLED for execution %s", executionID), err)
		}
		if err := c.store.AppendHistory(ctx, exec); err != nil {
			logger.Errorf("Execution %s: failed to append history: %v", exec.ID, err)
		}
		c.notifier.NotifyTransition(ctx, notification.EventCancelled, exec)
		return nil
	}

	r.mu.Lock()
	switch r.exec.Status {
	case model.ExecutionStatusCancelled, model.ExecutionStatusCancelling:
		r.mu.Unlock()
		return nil
	case model.ExecutionStatusCompleted, model.ExecutionStatusFailed:
		status := r.exec.Status
		r.mu.Unlock()
		return exception.NewInvalidState(moduleName,
			fmt.Sprintf("cannot cancel execution %s in state %s", executionID, status), nil)
	}

	prev := r.exec.Status
	if err := r.exec.TransitionTo(model.ExecutionStatusCancelling); err != nil {
		r.mu.Unlock()
		return exception.NewInvalidState(moduleName, "cancel rejected", err)
	}
	if err := c.store.UpdateExecution(ctx, r.exec); err != nil {
		r.exec.Status = prev
		r.mu.Unlock()
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to persist CANCELLING for execution %s", executionID), err)
	}
	r.mu.Unlock()

	logger.Infof("Execution %s cancelling.", executionID)
	// CANCELLING is durable; now stop new polls and unblock a paused drive loop.
	r.cancel()
	select {
	case r.resumeCh <- struct{}{}:
	default:
	}
	return nil
}

// Status returns a deep copy of the execution's current state.
func (c *Controller) Status(ctx context.Context, executionID string) (*model.Execution, error) {
	c.mu.Lock()
	r, live := c.runs[executionID]
	c.mu.Unlock()

	if live {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.exec.Copy(), nil
	}

	exec, err := c.store.FindExecutionByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	return exec, nil
}

// Wait blocks until the execution's drive loop exits. Returns immediately for
// executions with no attached loop.
func (c *Controller) Wait(executionID string) {
	c.mu.Lock()
	r, live := c.runs[executionID]
	c.mu.Unlock()
	if live {
		<-r.done
	}
}

// ReattachAll reloads every non-terminal execution from the store and resumes
// driving it: jobs with a recorded backend id are polled, never re-submitted.
// Called once on startup; required for crash recovery.
func (c *Controller) ReattachAll(ctx context.Context) error {
	active, err := c.store.FindActiveExecutions(ctx)
	if err != nil {
		return exception.NewInternal(moduleName, "failed to load active executions", err)
	}

	var attachErrs error
	for _, exec := range active {
		c.mu.Lock()
		_, tracked := c.runs[exec.ID]
		c.mu.Unlock()
		if tracked {
			continue
		}

		graph, err := scheduler.NewWaveGraph(exec.Snapshot)
		if err != nil {
			// A snapshot was validated at start; a broken one is unrecoverable.
			attachErrs = multierror.Append(attachErrs, err)
			exec.MarkAsFailed(err)
			if perr := c.store.UpdateExecution(ctx, exec); perr != nil {
				attachErrs = multierror.Append(attachErrs, perr)
			}
			continue
		}

		// An execution that crashed between creation and the RUNNING write is
		// still PENDING; move it to RUNNING so the drive loop picks it up.
		if exec.Status == model.ExecutionStatusPending {
			if terr := exec.TransitionTo(model.ExecutionStatusRunning); terr != nil {
				attachErrs = multierror.Append(attachErrs, terr)
				continue
			}
			if perr := c.store.UpdateExecution(ctx, exec); perr != nil {
				attachErrs = multierror.Append(attachErrs, perr)
				continue
			}
		}

		logger.Infof("Re-attaching execution %s in state %s.", exec.ID, exec.Status)
		c.attach(exec, graph)
	}
	return attachErrs
}
