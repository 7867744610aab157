package storage

import (
	"bytes"
	"path/filepath"
	"testing"
)

type record struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateGetUpdateDelete(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBucket("things"); err != nil {
		t.Fatal(err)
	}

	var created record
	if err := store.Create("things", func(id string) interface{} {
		created = record{ID: id, Value: 42}
		return &created
	}); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("create did not assign an id")
	}

	var got record
	if err := store.Get("things", created.ID, &got); err != nil {
		t.Fatal(err)
	}
	if got.Value != 42 {
		t.Errorf("expected 42, got %d", got.Value)
	}

	got.Value = 7
	if err := store.Update("things", created.ID, &got); err != nil {
		t.Fatal(err)
	}
	var updated record
	if err := store.Get("things", created.ID, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Value != 7 {
		t.Errorf("expected 7 after update, got %d", updated.Value)
	}

	if err := store.Delete("things", created.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.Get("things", created.ID, &got); err == nil {
		t.Error("expected error getting a deleted record")
	}
}

func TestUpdateMissingRecordFails(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBucket("things"); err != nil {
		t.Fatal(err)
	}
	r := record{ID: "nope", Value: 1}
	if err := store.Update("things", "nope", &r); err == nil {
		t.Error("expected error updating a missing record")
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBucket("things"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 12; i++ {
		v := i
		if err := store.Create("things", func(id string) interface{} {
			return &record{ID: id, Value: v}
		}); err != nil {
			t.Fatal(err)
		}
	}
	var ids []string
	if err := store.List("things", func(id string, _ []byte) error {
		ids = append(ids, id)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(ids) != 12 {
		t.Fatalf("expected 12 records, got %d", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("ids not in insertion order: %v", ids)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBucket("raw"); err != nil {
		t.Fatal(err)
	}

	// Missing records come back nil, not an error.
	v, err := store.GetBytes("raw", "band")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("expected nil for missing record, got %v", v)
	}

	payload := []byte{0x00, 0x00, 0xc0, 0x40, 0x00, 0x00, 0x08, 0x41}
	if err := store.PutBytes("raw", "band", payload); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetBytes("raw", "band")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round trip mismatch: %v", got)
	}
}

func TestMissingBucketErrors(t *testing.T) {
	store := newTestStore(t)
	var r record
	if err := store.Get("ghost", "x", &r); err == nil {
		t.Error("expected error for missing bucket")
	}
	if err := store.PutBytes("ghost", "x", []byte{1}); err == nil {
		t.Error("expected error for missing bucket")
	}
}
