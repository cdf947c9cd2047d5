package arrow

import (
	"bytes"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/apathy-ca/yori/cache"
)

// SnapshotSchema returns the Arrow schema for a cache snapshot.
//
// Fields:
//   - key: string - Cache key
//   - value: string - Stored value
//   - expires_at_ns: int64 (nullable) - Expiration instant, unix nanoseconds; null when the entry never expires
//   - last_access_ns: int64 - Recency counter, nanoseconds since cache creation
func SnapshotSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "key", Type: arrow.BinaryTypes.String},
			{Name: "value", Type: arrow.BinaryTypes.String},
			{Name: "expires_at_ns", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
			{Name: "last_access_ns", Type: arrow.PrimitiveTypes.Int64},
		},
		nil,
	)
}

// Exporter converts cache snapshots to Arrow records and IPC payloads.
type Exporter struct {
	allocator memory.Allocator
}

// NewExporter creates a new Exporter.
func NewExporter() *Exporter {
	return &Exporter{
		allocator: memory.DefaultAllocator,
	}
}

// NewSnapshotRecord builds an Arrow record from a cache snapshot. The caller
// owns the returned record and must Release it.
func (e *Exporter) NewSnapshotRecord(views []cache.EntryView) arrow.Record {
	builder := array.NewRecordBuilder(e.allocator, SnapshotSchema())
	defer builder.Release()

	keys := builder.Field(0).(*array.StringBuilder)
	values := builder.Field(1).(*array.StringBuilder)
	expires := builder.Field(2).(*array.Int64Builder)
	access := builder.Field(3).(*array.Int64Builder)

	for _, v := range views {
		keys.Append(v.Key)
		values.Append(v.Value)
		if v.ExpiresAt.IsZero() {
			expires.AppendNull()
		} else {
			expires.Append(v.ExpiresAt.UnixNano())
		}
		access.Append(int64(v.LastAccess))
	}

	return builder.NewRecord()
}

// ExportSnapshot serializes a cache snapshot to Arrow IPC bytes.
func (e *Exporter) ExportSnapshot(views []cache.EntryView) ([]byte, error) {
	record := e.NewSnapshotRecord(views)
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(record.Schema()), ipc.WithAllocator(e.allocator))

	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// ReadSnapshot deserializes Arrow IPC bytes back into snapshot views.
func (e *Exporter) ReadSnapshot(data []byte) ([]cache.EntryView, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(e.allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	var views []cache.EntryView
	for reader.Next() {
		record := reader.Record()

		keys := record.Column(0).(*array.String)
		values := record.Column(1).(*array.String)
		expires := record.Column(2).(*array.Int64)
		access := record.Column(3).(*array.Int64)

		for i := 0; i < int(record.NumRows()); i++ {
			view := cache.EntryView{
				Key:        keys.Value(i),
				Value:      values.Value(i),
				LastAccess: time.Duration(access.Value(i)),
			}
			if expires.IsValid(i) {
				view.ExpiresAt = time.Unix(0, expires.Value(i))
			}
			views = append(views, view)
		}
	}

	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return views, nil
}
