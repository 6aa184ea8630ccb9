// Package inmemory provides in-memory implementations of the execution and
// definition stores. All data lives in maps; suitable for tests and the demo
// entrypoint.
package inmemory

import (
	"sync"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
)

// InMemoryExecutionStore is an in-memory implementation of the ExecutionStore
// interface.
type InMemoryExecutionStore struct {
	executions map[string]*model.Execution
	history    []*model.Execution
	mu         sync.RWMutex
}

// NewInMemoryExecutionStore creates and initializes a new InMemoryExecutionStore.
func NewInMemoryExecutionStore() *InMemoryExecutionStore {
	return &InMemoryExecutionStore{
		executions: make(map[string]*model.Execution),
		history:    make([]*model.Execution, 0),
	}
}

// Close releases resources used by the store. As an in-memory store it holds
// no external resources, so this method always returns nil.
func (s *InMemoryExecutionStore) Close() error {
	return nil
}
