package inmemory

import (
	"context"
	"fmt"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
)

// SaveExecution persists a new Execution. It returns an error if an Execution
// with the same ID already exists.
func (s *InMemoryExecutionStore) SaveExecution(ctx context.Context, execution *model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[execution.ID]; exists {
		return fmt.Errorf("Execution with ID %s already exists", execution.ID)
	}
	s.executions[execution.ID] = execution.Copy()
	return nil
}

// UpdateExecution updates an existing Execution. It returns an error if the
// Execution with the given ID is not found.
func (s *InMemoryExecutionStore) UpdateExecution(ctx context.Context, execution *model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[execution.ID]; !exists {
		return fmt.Errorf("Execution with ID %s not found for update", execution.ID)
	}
	execution.Version++
	s.executions[execution.ID] = execution.Copy()
	return nil
}

// FindExecutionByID finds an Execution by its ID.
func (s *InMemoryExecutionStore) FindExecutionByID(ctx context.Context, id string) (*model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	execution, ok := s.executions[id]
	if !ok {
		return nil, repository.ErrExecutionNotFound
	}

	// Deep copy to prevent external modification of internal state.
	return execution.Copy(), nil
}

// FindActiveExecutions finds all Executions in a non-terminal state.
func (s *InMemoryExecutionStore) FindActiveExecutions(ctx context.Context) ([]*model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*model.Execution, 0)
	for _, execution := range s.executions {
		if !execution.Status.IsTerminal() {
			active = append(active, execution.Copy())
		}
	}
	return active, nil
}
