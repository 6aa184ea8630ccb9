// Package notification emits fire-and-forget events on execution state
// transitions. Delivery failures never affect execution state.
package notification

import (
	"context"
	"fmt"
	"time"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

// Event names the execution transition that triggered a notification.
type Event string

const (
	EventStarted   Event = "STARTED"
	EventPaused    Event = "PAUSED"
	EventResumed   Event = "RESUMED"
	EventCancelled Event = "CANCELLED"
	EventCompleted Event = "COMPLETED"
	EventFailed    Event = "FAILED"
)

// Notifier is the sink for execution transition events. Implementations must
// tolerate being called concurrently; errors are swallowed by the caller.
type Notifier interface {
	// NotifyTransition emits one transition event for the execution.
	NotifyTransition(ctx context.Context, event Event, execution *model.Execution)
}

// LogNotifier is a Notifier implementation that only logs notifications.
type LogNotifier struct{}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier() Notifier {
	logger.Infof("Notification: Initializing log notifier.")
	return &LogNotifier{}
}

// NotifyTransition logs the transition event.
func (n *LogNotifier) NotifyTransition(ctx context.Context, event Event, execution *model.Execution) {
	duration := time.Duration(0)
	if execution.EndTime != nil {
		duration = execution.EndTime.Sub(execution.StartTime)
	}

	message := fmt.Sprintf(
		"Execution Notification: %s for execution %s (plan %s, type %s), status %s, wave %d, duration %s, failures %d",
		event,
		execution.ID,
		execution.PlanID,
		execution.Type,
		execution.Status,
		execution.CurrentWaveIndex,
		duration,
		len(execution.Failures),
	)

	switch event {
	case EventFailed:
		logger.Warnf(message)
	default:
		logger.Infof(message)
	}
}

var _ Notifier = (*LogNotifier)(nil)
