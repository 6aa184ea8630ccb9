// Package sql provides the relational ExecutionStore backed by the database
// adapter layer. Execution state is the single source of truth for the
// engine, so every write here is the commit point of a state transition.
package sql

import (
	"context"
	"fmt"

	"github.com/tigerroll/seawall/pkg/failover/adapter/database"
	"github.com/tigerroll/seawall/pkg/failover/core/config"
	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	repository "github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
)

const moduleName = "execution_store"

// activeStatuses enumerates every non-terminal execution state. Used to
// re-discover in-flight executions after a restart.
var activeStatuses = []string{
	model.ExecutionStatusPending.String(),
	model.ExecutionStatusRunning.String(),
	model.ExecutionStatusPaused.String(),
	model.ExecutionStatusWaveFailed.String(),
	model.ExecutionStatusCancelling.String(),
}

// SQLExecutionStore implements repository.ExecutionStore on top of the
// database adapter layer.
type SQLExecutionStore struct {
	// dbResolver resolves the named database connection on each operation, so
	// a reconnected provider is picked up transparently.
	dbResolver database.DBConnectionResolver
	// dbName is the name of the database connection used by this store
	// (e.g., "metadata").
	dbName string
}

// NewSQLExecutionStore creates a new SQLExecutionStore bound to the database
// connection named by infrastructure.execution_store_db_ref.
func NewSQLExecutionStore(dbResolver database.DBConnectionResolver, cfg *config.Config) repository.ExecutionStore {
	return &SQLExecutionStore{
		dbResolver: dbResolver,
		dbName:     cfg.Seawall.Infrastructure.ExecutionStoreDBRef,
	}
}

// getDBConnection resolves the DBConnection used by this store.
func (s *SQLExecutionStore) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := s.dbResolver.ResolveDBConnection(ctx, s.dbName)
	if err != nil {
		return nil, exception.NewInternal(moduleName, fmt.Sprintf("failed to resolve DB connection '%s'", s.dbName), err)
	}
	return conn, nil
}

// --- ExecutionRepository implementation ---

// SaveExecution persists a new Execution. The write must succeed before the
// engine acts on the execution, so errors are never swallowed here.
func (s *SQLExecutionStore) SaveExecution(ctx context.Context, execution *model.Execution) error {
	entity := fromDomainExecution(execution)

	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.ExecuteUpdate(ctx, entity, "CREATE", entity.TableName(), nil); err != nil {
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to save Execution (ID: %s)", execution.ID), err)
	}
	return nil
}

// UpdateExecution updates an existing Execution with an optimistic version
// check. The version on the domain object is incremented on success and
// rolled back on any failure.
func (s *SQLExecutionStore) UpdateExecution(ctx context.Context, execution *model.Execution) error {
	originalVersion := execution.Version
	execution.Version++
	entity := fromDomainExecution(execution)

	conn, err := s.getDBConnection(ctx)
	if err != nil {
		execution.Version = originalVersion
		return err
	}

	rowsAffected, err := conn.ExecuteUpdate(
		ctx,
		entity,
		"UPDATE",
		entity.TableName(),
		map[string]interface{}{"id": execution.ID, "version": originalVersion},
	)
	if err != nil {
		execution.Version = originalVersion
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to update Execution (ID: %s)", execution.ID), err)
	}
	if rowsAffected == 0 {
		execution.Version = originalVersion
		return exception.NewPermanent(moduleName,
			fmt.Sprintf("Execution (ID: %s) with version %d not found for update", execution.ID, originalVersion), nil, false)
	}
	return nil
}

// FindExecutionByID finds an Execution by its ID, job records included.
func (s *SQLExecutionStore) FindExecutionByID(ctx context.Context, executionID string) (*model.Execution, error) {
	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []ExecutionEntity
	err = conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"id": executionID}, "", 1)
	if err != nil {
		if conn.IsTableNotExistError(err) {
			return nil, repository.ErrExecutionNotFound
		}
		return nil, exception.NewInternal(moduleName, fmt.Sprintf("failed to find Execution (ID: %s)", executionID), err)
	}
	if len(entities) == 0 {
		return nil, repository.ErrExecutionNotFound
	}
	return toDomainExecution(&entities[0]), nil
}

// FindActiveExecutions finds all Executions in a non-terminal state.
func (s *SQLExecutionStore) FindActiveExecutions(ctx context.Context) ([]*model.Execution, error) {
	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []ExecutionEntity
	err = conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"status": activeStatuses}, "create_time asc", 0)
	if err != nil {
		if conn.IsTableNotExistError(err) {
			return []*model.Execution{}, nil
		}
		return nil, exception.NewInternal(moduleName, "failed to find active Executions", err)
	}

	active := make([]*model.Execution, 0, len(entities))
	for i := range entities {
		active = append(active, toDomainExecution(&entities[i]))
	}
	return active, nil
}

// --- ExecutionHistoryRepository implementation ---

// AppendHistory records a terminal execution in the audit log. Appending a
// non-terminal execution is an error.
func (s *SQLExecutionStore) AppendHistory(ctx context.Context, execution *model.Execution) error {
	if !execution.Status.IsTerminal() {
		return exception.NewInvalidState(moduleName,
			fmt.Sprintf("cannot append non-terminal execution %s (state %s) to history", execution.ID, execution.Status), nil)
	}

	entity := fromDomainExecutionHistory(execution)

	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.ExecuteUpdate(ctx, entity, "CREATE", entity.TableName(), nil); err != nil {
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to append Execution (ID: %s) to history", execution.ID), err)
	}
	return nil
}

// ListHistory returns history records matching the filter, most recent first.
// Equality conditions are pushed into the query; the completion time range and
// the limit are applied in memory via the filter.
func (s *SQLExecutionStore) ListHistory(ctx context.Context, filter repository.HistoryFilter) ([]*model.Execution, error) {
	entities, err := s.queryHistory(ctx, filter)
	if err != nil {
		return nil, err
	}

	matched := make([]*model.Execution, 0, len(entities))
	for i := range entities {
		execution := toDomainExecutionFromHistory(&entities[i])
		if filter.Matches(execution) {
			matched = append(matched, execution)
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// ClearHistory removes history records matching the filter. Records of
// executions that are still non-terminal in the live store are retained.
func (s *SQLExecutionStore) ClearHistory(ctx context.Context, filter repository.HistoryFilter) (int, error) {
	entities, err := s.queryHistory(ctx, filter)
	if err != nil {
		return 0, err
	}

	live, err := s.FindActiveExecutions(ctx)
	if err != nil {
		return 0, err
	}
	retained := make(map[string]struct{}, len(live))
	for _, execution := range live {
		retained[execution.ID] = struct{}{}
	}

	removable := make([]string, 0, len(entities))
	for i := range entities {
		execution := toDomainExecutionFromHistory(&entities[i])
		if !filter.Matches(execution) {
			continue
		}
		if _, ok := retained[execution.ID]; ok {
			continue
		}
		removable = append(removable, execution.ID)
	}
	if len(removable) == 0 {
		return 0, nil
	}

	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := conn.ExecuteUpdate(ctx, &ExecutionHistoryEntity{}, "DELETE",
		ExecutionHistoryEntity{}.TableName(), map[string]interface{}{"id": removable})
	if err != nil {
		return 0, exception.NewInternal(moduleName, "failed to clear execution history", err)
	}
	return int(rowsAffected), nil
}

// queryHistory fetches history rows using the filter's equality conditions,
// ordered most recent first. Time-range and limit restrictions are left to
// the caller.
func (s *SQLExecutionStore) queryHistory(ctx context.Context, filter repository.HistoryFilter) ([]ExecutionHistoryEntity, error) {
	conn, err := s.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	query := make(map[string]interface{})
	if filter.PlanID != "" {
		query["plan_id"] = filter.PlanID
	}
	if filter.Status != "" {
		query["status"] = filter.Status.String()
	}
	if filter.Type != "" {
		query["type"] = filter.Type.String()
	}

	var entities []ExecutionHistoryEntity
	err = conn.ExecuteQueryAdvanced(ctx, &entities, query, "end_time desc", 0)
	if err != nil {
		if conn.IsTableNotExistError(err) {
			return []ExecutionHistoryEntity{}, nil
		}
		return nil, exception.NewInternal(moduleName, "failed to list execution history", err)
	}
	return entities, nil
}

// Close releases resources used by the store. Connections are owned by the
// database providers and closed through their lifecycle, so this is a no-op.
func (s *SQLExecutionStore) Close() error {
	return nil
}

var _ repository.ExecutionStore = (*SQLExecutionStore)(nil)
