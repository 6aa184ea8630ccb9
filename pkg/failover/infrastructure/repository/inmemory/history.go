package inmemory

import (
	"context"
	"fmt"
	"sort"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
)

// AppendHistory records a terminal execution in the audit log. Appending a
// non-terminal execution is an error.
func (s *InMemoryExecutionStore) AppendHistory(ctx context.Context, execution *model.Execution) error {
	if !execution.Status.IsTerminal() {
		return fmt.Errorf("cannot append non-terminal execution %s (state %s) to history", execution.ID, execution.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, execution.Copy())
	return nil
}

// ListHistory returns history records matching the filter, most recent first.
func (s *InMemoryExecutionStore) ListHistory(ctx context.Context, filter repository.HistoryFilter) ([]*model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*model.Execution, 0)
	for _, execution := range s.history {
		if filter.Matches(execution) {
			matched = append(matched, execution.Copy())
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		ti, tj := matched[i].StartTime, matched[j].StartTime
		if matched[i].EndTime != nil {
			ti = *matched[i].EndTime
		}
		if matched[j].EndTime != nil {
			tj = *matched[j].EndTime
		}
		return ti.After(tj)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// ClearHistory removes history records matching the filter. Records of
// executions that are still non-terminal in the live store are retained.
func (s *InMemoryExecutionStore) ClearHistory(ctx context.Context, filter repository.HistoryFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]*model.Execution, 0, len(s.history))
	removed := 0
	for _, execution := range s.history {
		if !filter.Matches(execution) {
			kept = append(kept, execution)
			continue
		}
		if live, ok := s.executions[execution.ID]; ok && !live.Status.IsTerminal() {
			kept = append(kept, execution)
			continue
		}
		removed++
	}
	s.history = kept
	return removed, nil
}
