package history

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	storageAdapter "github.com/tigerroll/seawall/pkg/failover/adapter/storage"
	coreConfig "github.com/tigerroll/seawall/pkg/failover/core/config"
	repository "github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
	exception "github.com/tigerroll/seawall/pkg/failover/support/util/exception"
	logger "github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

const moduleName = "history"

// Exporter archives terminal executions from the history store to Parquet
// files on the configured storage connection. Archiving is read-only with
// respect to executions: a failed export never mutates execution state.
type Exporter struct {
	store       repository.ExecutionStore
	resolver    storageAdapter.StorageConnectionResolver
	storageRef  string
	baseDir     string
	compression string
}

// NewExporter creates a new history Exporter from the infrastructure
// configuration.
func NewExporter(
	store repository.ExecutionStore,
	resolver storageAdapter.StorageConnectionResolver,
	cfg *coreConfig.Config,
) *Exporter {
	infra := cfg.Seawall.Infrastructure
	return &Exporter{
		store:       store,
		resolver:    resolver,
		storageRef:  infra.HistoryArchiveStorageRef,
		baseDir:     infra.HistoryArchiveBaseDir,
		compression: infra.HistoryArchiveCompression,
	}
}

// Archive exports the history entries matching the filter to Parquet files,
// one file per completion-date partition. It returns the number of records
// archived. Partition failures are aggregated; a failed partition does not
// prevent the remaining partitions from being uploaded.
func (e *Exporter) Archive(ctx context.Context, filter repository.HistoryFilter) (int, error) {
	executions, err := e.store.ListHistory(ctx, filter)
	if err != nil {
		return 0, exception.NewInternal(moduleName, "failed to list execution history for archiving", err)
	}
	if len(executions) == 0 {
		logger.Infof("History archive: no terminal executions matched the filter, nothing to export.")
		return 0, nil
	}

	codec, err := compressionCodec(e.compression)
	if err != nil {
		return 0, exception.NewValidation(moduleName, fmt.Sprintf("invalid compression type '%s'", e.compression), err)
	}

	conn, err := e.resolver.ResolveStorageConnection(ctx, e.storageRef)
	if err != nil {
		return 0, exception.NewInternal(moduleName, fmt.Sprintf("failed to resolve storage connection '%s'", e.storageRef), err)
	}

	// Group audit rows by completion-date partition.
	partitions := make(map[string][]AuditRecord)
	for _, execution := range executions {
		record := NewAuditRecord(execution)
		partitions[record.PartitionKey()] = append(partitions[record.PartitionKey()], record)
	}

	var multiErr error
	archived := 0
	for partitionKey, records := range partitions {
		if err := e.uploadPartition(ctx, conn, codec, partitionKey, records); err != nil {
			multiErr = multierror.Append(multiErr, err)
			continue
		}
		archived += len(records)
	}

	if multiErr != nil {
		return archived, exception.NewInternal(moduleName, "history archive completed with partition failures", multiErr)
	}
	logger.Infof("History archive: exported %d execution(s) across %d partition(s) to storage '%s'.", archived, len(partitions), e.storageRef)
	return archived, nil
}

// uploadPartition writes one partition's records to an in-memory Parquet file
// and uploads it under baseDir/partitionKey/.
func (e *Exporter) uploadPartition(
	ctx context.Context,
	conn storageAdapter.StorageConnection,
	codec parquet.CompressionCodec,
	partitionKey string,
	records []AuditRecord,
) (err error) {
	// The Parquet library panics on some malformed schemas; convert to an error.
	defer func() {
		if r := recover(); r != nil {
			err = exception.Newf(moduleName, exception.KindInternal, "parquet writer panicked for partition '%s': %v", partitionKey, r)
			logger.Errorf("History archive: recovered from panic for partition '%s': %v", partitionKey, r)
		}
	}()

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(AuditRecord), int64(len(records)))
	if err != nil {
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to create parquet writer for partition '%s'", partitionKey), err)
	}
	pw.CompressionType = codec

	for _, record := range records {
		if err := pw.Write(record); err != nil {
			return exception.NewInternal(moduleName, fmt.Sprintf("failed to write audit record '%s' for partition '%s'", record.ExecutionID, partitionKey), err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to finalize parquet file for partition '%s'", partitionKey), err)
	}

	fileName := fmt.Sprintf("executions_%s_%s.parquet", time.Now().UTC().Format("20060102150405"), randomSuffix(8))
	objectName := path.Join(e.baseDir, partitionKey, fileName)

	if err := conn.Upload(ctx, "", objectName, buf, "application/octet-stream"); err != nil {
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to upload parquet file '%s' for partition '%s'", objectName, partitionKey), err)
	}
	logger.Debugf("History archive: uploaded %d record(s) to '%s'.", len(records), objectName)
	return nil
}

// compressionCodec returns the Parquet compression codec from a string.
func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

// randomSuffix generates a random string used to keep archive filenames unique.
func randomSuffix(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[seededRand.Intn(len(charset))]
	}
	return string(b)
}
