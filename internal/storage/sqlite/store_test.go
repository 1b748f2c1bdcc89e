package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/alfred/internal/storage"
	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "remote.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remote.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() {
		_ = sqlDB.Close()
	}()

	var name string
	err = sqlDB.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'widget_data'",
	).Scan(&name)
	if err != nil {
		t.Fatalf("expected widget_data table: %v", err)
	}
}

func TestUpsertSelectRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	updatedAt := time.Now().UTC().Truncate(time.Millisecond)
	record := storage.Record{
		UserID:     "user-1",
		InstanceID: "proflow-default",
		WidgetType: "proflow",
		Payload:    []byte(`{"version":1}`),
		UpdatedAt:  updatedAt,
	}
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.Select(ctx, "user-1", "proflow-default")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.WidgetType != "proflow" {
		t.Fatalf("widget type = %q", got.WidgetType)
	}
	if string(got.Payload) != `{"version":1}` {
		t.Fatalf("payload = %q", got.Payload)
	}
	if !got.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("updated at = %v, want %v", got.UpdatedAt, updatedAt)
	}
}

func TestUpsertOverwritesWithoutDuplicating(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, payload := range []string{`{"n":1}`, `{"n":2}`} {
		if err := store.Upsert(ctx, storage.Record{
			UserID:     "user-1",
			InstanceID: "proflow-default",
			WidgetType: "proflow",
			Payload:    []byte(payload),
		}); err != nil {
			t.Fatalf("upsert %s: %v", payload, err)
		}
	}

	got, err := store.Select(ctx, "user-1", "proflow-default")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if string(got.Payload) != `{"n":2}` {
		t.Fatalf("payload = %q, want last write", got.Payload)
	}

	var count int
	if err := store.sqlDB.QueryRow("SELECT COUNT(*) FROM widget_data").Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestInstancesDoNotCollide(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, storage.Record{
		UserID: "user-1", InstanceID: "a", WidgetType: "proflow", Payload: []byte(`{"n":1}`),
	}); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := store.Upsert(ctx, storage.Record{
		UserID: "user-1", InstanceID: "b", WidgetType: "proflow", Payload: []byte(`{"n":2}`),
	}); err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	a, err := store.Select(ctx, "user-1", "a")
	if err != nil {
		t.Fatalf("select a: %v", err)
	}
	b, err := store.Select(ctx, "user-1", "b")
	if err != nil {
		t.Fatalf("select b: %v", err)
	}
	if string(a.Payload) == string(b.Payload) {
		t.Fatal("expected distinct rows per instance")
	}
}

func TestSelectMissingReturnsNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Select(context.Background(), "user-1", "absent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, storage.Record{
		UserID: "user-1", InstanceID: "a", WidgetType: "proflow", Payload: []byte(`{}`),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Delete(ctx, "user-1", "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "user-1", "a"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if _, err := store.Select(ctx, "user-1", "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUpsertValidatesInputs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	cases := []storage.Record{
		{InstanceID: "a", WidgetType: "proflow", Payload: []byte(`{}`)},
		{UserID: "u", WidgetType: "proflow", Payload: []byte(`{}`)},
		{UserID: "u", InstanceID: "a", Payload: []byte(`{}`)},
		{UserID: "u", InstanceID: "a", WidgetType: "proflow"},
	}
	for i, record := range cases {
		if err := store.Upsert(ctx, record); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
