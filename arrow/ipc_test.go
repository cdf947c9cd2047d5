package arrow

import (
	"testing"
	"time"

	"github.com/apathy-ca/yori/cache"
)

func TestSnapshotSchema(t *testing.T) {
	schema := SnapshotSchema()
	if schema == nil {
		t.Fatal("SnapshotSchema returned nil")
	}
	if schema.NumFields() != 4 {
		t.Errorf("Expected 4 fields, got %d", schema.NumFields())
	}

	names := []string{"key", "value", "expires_at_ns", "last_access_ns"}
	for i, want := range names {
		if got := schema.Field(i).Name; got != want {
			t.Errorf("Expected field %d to be %s, got %s", i, want, got)
		}
	}
	if !schema.Field(2).Nullable {
		t.Error("Expected expires_at_ns to be nullable")
	}
}

func TestNewSnapshotRecord(t *testing.T) {
	c := cache.New(10, 0)
	_ = c.SetWithTTL("a", "1", time.Hour)
	_ = c.Set("b", "2")

	e := NewExporter()
	record := e.NewSnapshotRecord(c.Snapshot())
	defer record.Release()

	if record.NumRows() != 2 {
		t.Errorf("Expected 2 rows, got %d", record.NumRows())
	}
	if record.NumCols() != 4 {
		t.Errorf("Expected 4 columns, got %d", record.NumCols())
	}
}

func TestExportSnapshotRoundtrip(t *testing.T) {
	c := cache.New(10, 0)
	_ = c.SetWithTTL("a", "1", time.Hour)
	_ = c.Set("b", "2")

	e := NewExporter()
	data, err := e.ExportSnapshot(c.Snapshot())
	if err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Expected non-empty IPC payload")
	}

	views, err := e.ReadSnapshot(data)
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("Expected 2 views, got %d", len(views))
	}

	byKey := make(map[string]cache.EntryView, len(views))
	for _, v := range views {
		byKey[v.Key] = v
	}

	a, ok := byKey["a"]
	if !ok {
		t.Fatal("Expected key a in roundtrip")
	}
	if a.Value != "1" {
		t.Errorf("Expected value 1, got %q", a.Value)
	}
	if a.ExpiresAt.IsZero() {
		t.Error("Expected a to keep its expiration through the roundtrip")
	}

	b, ok := byKey["b"]
	if !ok {
		t.Fatal("Expected key b in roundtrip")
	}
	if !b.ExpiresAt.IsZero() {
		t.Error("Expected b to stay permanent through the roundtrip")
	}
}

func TestExportEmptySnapshot(t *testing.T) {
	e := NewExporter()

	data, err := e.ExportSnapshot(nil)
	if err != nil {
		t.Fatalf("ExportSnapshot failed on empty snapshot: %v", err)
	}

	views, err := e.ReadSnapshot(data)
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if len(views) != 0 {
		t.Errorf("Expected 0 views, got %d", len(views))
	}
}
