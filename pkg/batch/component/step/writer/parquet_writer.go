package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/dayche/pkg/batch/adapter/storage"
	port "github.com/tigerroll/dayche/pkg/batch/core/application/port"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// Bucket is the bucket of the storage connection files go to.
	Bucket string
	// OutputBaseDir is the directory within the bucket, e.g. "eod_quotes".
	OutputBaseDir string
	// CompressionType is "SNAPPY" (default), "GZIP" or "NONE".
	CompressionType string
}

// ParquetWriter implements port.ItemWriter by buffering items per partition and
// writing one Parquet file per partition on Close.
// T must carry parquet struct tags, which define the file schema.
type ParquetWriter[T any] struct {
	name             string
	config           ParquetWriterConfig
	conn             storage.StorageConnection
	itemPrototype    *T
	partitionKeyFunc func(T) (string, error)
	log              *logger.Logger
	now              func() time.Time

	bufferedItems        map[string][]T
	totalRecordsBuffered int64
	written              []string
}

// NewParquetWriter creates a new instance of ParquetWriter.
// partitionKeyFunc returns a Hive-style directory for an item, e.g. "symbol=BTCUSD".
func NewParquetWriter[T any](
	name string,
	conn storage.StorageConnection,
	config ParquetWriterConfig,
	itemPrototype *T,
	partitionKeyFunc func(T) (string, error),
	log *logger.Logger,
) (*ParquetWriter[T], error) {
	if log == nil {
		log = logger.Discard()
	}
	if conn == nil {
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s' requires a storage connection", name)
	}
	if config.OutputBaseDir == "" {
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s' requires an output directory", name)
	}
	if config.CompressionType == "" {
		config.CompressionType = "SNAPPY"
	}
	if _, err := getCompressionCodec(config.CompressionType); err != nil {
		return nil, exception.NewBatchErrorf("writer", "Invalid compression type for ParquetWriter '%s'", name, err)
	}

	return &ParquetWriter[T]{
		name:             name,
		config:           config,
		conn:             conn,
		itemPrototype:    itemPrototype,
		partitionKeyFunc: partitionKeyFunc,
		log:              log,
		now:              time.Now,
		bufferedItems:    make(map[string][]T),
	}, nil
}

// Open clears internal buffers.
func (w *ParquetWriter[T]) Open(ctx context.Context) error {
	w.bufferedItems = make(map[string][]T)
	w.totalRecordsBuffered = 0
	w.written = nil
	w.log.Debugf("ParquetWriter '%s' opened. Target: %s/%s", w.name, w.conn.Name(), w.config.OutputBaseDir)
	return nil
}

// Write buffers items by partition key. Nothing is written to storage until Close.
func (w *ParquetWriter[T]) Write(ctx context.Context, items []T) error {
	for _, item := range items {
		partitionKey, err := w.partitionKeyFunc(item)
		if err != nil {
			return exception.NewBatchErrorf("writer", "Failed to get partition key for item in ParquetWriter '%s'", w.name, err)
		}
		w.bufferedItems[partitionKey] = append(w.bufferedItems[partitionKey], item)
		w.totalRecordsBuffered++
	}
	w.log.Debugf("ParquetWriter '%s' buffered %d items. Total buffered: %d.", w.name, len(items), w.totalRecordsBuffered)
	return nil
}

// Close writes every buffered partition as one Parquet file and uploads it.
// Failing partitions do not stop the others; all failures are returned together.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	if w.totalRecordsBuffered == 0 {
		w.log.Infof("ParquetWriter '%s': No records buffered, skipping Parquet file generation.", w.name)
		return nil
	}

	codec, _ := getCompressionCodec(w.config.CompressionType)

	keys := make([]string, 0, len(w.bufferedItems))
	for k := range w.bufferedItems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs *multierror.Error
	for _, partitionKey := range keys {
		items := w.bufferedItems[partitionKey]
		buf, err := w.encode(items, codec)
		if err != nil {
			errs = multierror.Append(errs, exception.NewBatchErrorf("writer", "Failed to encode partition '%s' in ParquetWriter '%s'", partitionKey, w.name, err))
			continue
		}

		fileName := fmt.Sprintf("data_%s_%s.parquet", w.now().UTC().Format("20060102150405"), uuid.NewString()[:8])
		objectName := path.Join(w.config.OutputBaseDir, partitionKey, fileName)
		if err := w.conn.Upload(ctx, w.config.Bucket, objectName, buf, "application/octet-stream"); err != nil {
			errs = multierror.Append(errs, exception.NewBatchErrorf("writer", "Failed to upload partition '%s' to '%s'", partitionKey, objectName, err))
			continue
		}
		w.written = append(w.written, objectName)
		w.log.Infof("ParquetWriter '%s': wrote %d rows to %s", w.name, len(items), objectName)
	}

	w.bufferedItems = make(map[string][]T)
	w.totalRecordsBuffered = 0
	return errs.ErrorOrNil()
}

// Written returns the object names uploaded by the last Close.
func (w *ParquetWriter[T]) Written() []string {
	return w.written
}

func (w *ParquetWriter[T]) encode(items []T, codec parquet.CompressionCodec) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, w.itemPrototype, 1)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = codec

	// parquet-go panics on schema mismatches.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked: %v", r)
		}
	}()

	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return buf, nil
}

// getCompressionCodec returns the Parquet compression codec from a string.
func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
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

var _ port.ItemWriter[any] = (*ParquetWriter[any])(nil)
