package repository

// ExecutionStore is the durable single source of truth for execution state.
// It embeds the per-aggregate repository interfaces to separate concerns.
type ExecutionStore interface {
	ExecutionRepository
	ExecutionHistoryRepository

	// Close releases resources (such as database connections) used by the store.
	Close() error
}
