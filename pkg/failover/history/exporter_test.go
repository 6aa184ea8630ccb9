package history

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/seawall/pkg/failover/adapter/storage"
	"github.com/tigerroll/seawall/pkg/failover/adapter/storage/local"
	coreConfig "github.com/tigerroll/seawall/pkg/failover/core/config"
	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	repository "github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
	"github.com/tigerroll/seawall/pkg/failover/infrastructure/repository/inmemory"
)

func newArchiveFixture(t *testing.T) (*Exporter, *inmemory.InMemoryExecutionStore, storageAdapter.StorageConnectionResolver, *coreConfig.Config) {
	t.Helper()

	cfg := coreConfig.NewConfig()
	cfg.Seawall.StorageConfigs = map[string]interface{}{
		"audit": map[string]interface{}{
			"type":        "local",
			"base_dir":    t.TempDir(),
			"bucket_name": "archive",
		},
	}

	resolver, err := storageAdapter.NewConnectionResolver(
		[]storageAdapter.StorageProvider{local.NewLocalProvider(cfg)},
		cfg,
	)
	require.NoError(t, err)

	store := inmemory.NewInMemoryExecutionStore()
	return NewExporter(store, resolver, cfg), store, resolver, cfg
}

func terminalExecution(t *testing.T, planID string, status model.ExecutionStatus, end time.Time) *model.Execution {
	t.Helper()

	snapshot := model.NewPlanSnapshot(
		model.RecoveryPlan{
			ID:   planID,
			Name: "checkout stack",
			Waves: []model.Wave{
				{ID: "w1", Name: "databases", Sequence: 1, GroupIDs: []string{"g1"}},
			},
		},
		map[string]model.ProtectionGroup{
			"g1": {ID: "g1", Name: "databases", TargetAccountID: "acct-1", Servers: []model.Server{{ID: "srv-1"}}},
		},
		map[string]model.TargetAccount{
			"acct-1": {ID: "acct-1", Name: "dr"},
		},
	)

	exec := model.NewExecution(snapshot, model.ExecutionTypeDrill, "tester")
	exec.Status = status
	exec.StartTime = end.Add(-10 * time.Minute)
	exec.EndTime = &end
	exec.JobRecords = model.JobRecordList{
		{ServerID: "srv-1", TargetAccountID: "acct-1", WaveIndex: 0, BackendJobID: "job-1", Status: model.JobStatusSucceeded},
	}
	return exec
}

func TestArchive_ExportsPartitionedParquetFiles(t *testing.T) {
	exporter, store, resolver, _ := newArchiveFixture(t)
	ctx := context.Background()

	day1 := time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendHistory(ctx, terminalExecution(t, "plan-1", model.ExecutionStatusCompleted, day1)))
	require.NoError(t, store.AppendHistory(ctx, terminalExecution(t, "plan-1", model.ExecutionStatusFailed, day2)))

	archived, err := exporter.Archive(ctx, repository.HistoryFilter{PlanID: "plan-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, archived)

	conn, err := resolver.ResolveStorageConnection(ctx, "audit")
	require.NoError(t, err)

	var objects []string
	require.NoError(t, conn.ListObjects(ctx, "", "history/", func(objectName string) error {
		objects = append(objects, objectName)
		return nil
	}))
	require.Len(t, objects, 2)

	var day1Seen, day2Seen bool
	for _, name := range objects {
		switch {
		case strings.HasPrefix(name, "history/dt=2026-08-27/"):
			day1Seen = true
		case strings.HasPrefix(name, "history/dt=2026-08-28/"):
			day2Seen = true
		}

		rc, err := conn.Download(ctx, "", name)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
	assert.True(t, day1Seen, "expected a partition for 2026-08-27")
	assert.True(t, day2Seen, "expected a partition for 2026-08-28")
}

func TestArchive_EmptyHistoryIsNoOp(t *testing.T) {
	exporter, _, _, _ := newArchiveFixture(t)

	archived, err := exporter.Archive(context.Background(), repository.HistoryFilter{})
	require.NoError(t, err)
	assert.Zero(t, archived)
}

func TestArchive_RejectsUnknownCompression(t *testing.T) {
	exporter, store, _, _ := newArchiveFixture(t)
	exporter.compression = "LZ4_RAW"

	end := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendHistory(context.Background(), terminalExecution(t, "plan-1", model.ExecutionStatusCompleted, end)))

	_, err := exporter.Archive(context.Background(), repository.HistoryFilter{})
	require.Error(t, err)
}

func TestArchive_UnknownStorageRefFails(t *testing.T) {
	exporter, store, _, _ := newArchiveFixture(t)
	exporter.storageRef = "missing"

	end := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendHistory(context.Background(), terminalExecution(t, "plan-1", model.ExecutionStatusCompleted, end)))

	_, err := exporter.Archive(context.Background(), repository.HistoryFilter{})
	require.Error(t, err)
}
