package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/beacon/internal/adapters/export"
	"github.com/okian/beacon/internal/domain/event"
)

func setupTestSink(t *testing.T) *Sink {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test sink: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func pageView(id, appID string) event.Event {
	return event.Event{
		ID:         id,
		RecordedAt: time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC),
		Entity:     event.EntityPage,
		Action:     event.ActionView,
		Path:       "/home",
		AppID:      appID,
	}
}

func TestWriteBatch(t *testing.T) {
	s := setupTestSink(t)
	ctx := context.Background()

	batch := event.Batch{
		pageView("id-1", "app-a"),
		pageView("id-2", "app-a"),
		{
			ID:         "id-3",
			RecordedAt: time.Now().UTC(),
			Entity:     event.EntityAnchor,
			Action:     event.ActionClick,
			AppID:      "app-b",
			TS:         time.Date(2024, 5, 6, 11, 59, 0, 0, time.UTC),
		},
	}

	if err := s.WriteBatch(ctx, batch); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}

	n, err := s.CountByTenant(ctx, "app-a")
	if err != nil {
		t.Fatalf("CountByTenant failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows for app-a, got %d", n)
	}

	var eventJSON string
	row := s.db.QueryRow(`SELECT event FROM events WHERE id = 'id-3'`)
	if err := row.Scan(&eventJSON); err != nil {
		t.Fatalf("failed to read back event column: %v", err)
	}
	for _, want := range []string{`"entity":"anchor"`, `"action":"click"`, `"ts":"2024-05-06T11:59:00Z"`} {
		if !strings.Contains(eventJSON, want) {
			t.Errorf("event column %s missing %s", eventJSON, want)
		}
	}
}

func TestWriteBatch_EmptyIsNoOp(t *testing.T) {
	s := setupTestSink(t)

	if err := s.WriteBatch(context.Background(), nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

func TestWriteBatch_RollsBackWholeBatch(t *testing.T) {
	s := setupTestSink(t)
	ctx := context.Background()

	if err := s.WriteBatch(ctx, event.Batch{pageView("dup", "app-a")}); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	// Second event collides with the primary key; the first must not
	// become visible either.
	batch := event.Batch{pageView("fresh", "app-c"), pageView("dup", "app-c")}
	err := s.WriteBatch(ctx, batch)
	if err == nil {
		t.Fatal("expected batch failure on primary key collision")
	}
	if !errors.Is(err, export.ErrPartialWrite) {
		t.Errorf("expected ErrPartialWrite, got %v", err)
	}

	n, err := s.CountByTenant(ctx, "app-c")
	if err != nil {
		t.Fatalf("CountByTenant failed: %v", err)
	}
	if n != 0 {
		t.Errorf("partial write observable: %d rows from rolled-back batch", n)
	}
}

func TestMigrateTenantColumn(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	// Build a pre-migration database with the historical app_id column.
	legacy, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open legacy db: %v", err)
	}
	_, err = legacy.Exec(`
	CREATE TABLE events(
	  id          TEXT PRIMARY KEY NOT NULL,
	  recorded_at TEXT NOT NULL,
	  app_id      TEXT,
	  recorded_by TEXT,
	  event       TEXT NOT NULL
	);
	INSERT INTO events VALUES
	  ('old-1', '2023-01-01T00:00:00Z', 'legacy-app', NULL, '{"entity":"page","action":"view"}'),
	  ('old-2', '2023-01-02T00:00:00Z', 'ignored', 'already-set', '{"entity":"anchor","action":"click"}');
	`)
	if err != nil {
		t.Fatalf("failed to seed legacy schema: %v", err)
	}
	_ = legacy.Close()

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New on legacy database failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	// Backfilled from app_id where recorded_by was null.
	n, err := s.CountByTenant(ctx, "legacy-app")
	if err != nil {
		t.Fatalf("CountByTenant failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected backfilled recorded_by 'legacy-app', got %d rows", n)
	}

	// Pre-existing recorded_by values survive.
	n, err = s.CountByTenant(ctx, "already-set")
	if err != nil {
		t.Fatalf("CountByTenant failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected preserved recorded_by 'already-set', got %d rows", n)
	}

	// app_id is gone and recorded_by is mandatory.
	var hasAppID bool
	row := s.db.QueryRow(`SELECT COUNT(*) > 0 FROM pragma_table_info('events') WHERE name = 'app_id'`)
	if err := row.Scan(&hasAppID); err != nil {
		t.Fatalf("failed to inspect migrated table: %v", err)
	}
	if hasAppID {
		t.Error("app_id column should be dropped after migration")
	}

	if err := s.WriteBatch(ctx, event.Batch{pageView("new-1", "post-migration")}); err != nil {
		t.Errorf("write after migration failed: %v", err)
	}
}

func TestMigrateTenantColumn_FirstGenerationSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "first-gen.db")

	// Oldest historical shape: app_id only, no recorded_by column at all.
	legacy, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open legacy db: %v", err)
	}
	_, err = legacy.Exec(`
	CREATE TABLE events(
	  id          TEXT PRIMARY KEY NOT NULL,
	  recorded_at TEXT NOT NULL,
	  app_id      TEXT,
	  event       TEXT NOT NULL
	);
	INSERT INTO events VALUES
	  ('gen1-1', '2022-06-01T00:00:00Z', 'first-gen-app', '{"entity":"page","action":"view"}');
	`)
	if err != nil {
		t.Fatalf("failed to seed first-generation schema: %v", err)
	}
	_ = legacy.Close()

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New on app_id-only legacy database failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	n, err := s.CountByTenant(ctx, "first-gen-app")
	if err != nil {
		t.Fatalf("CountByTenant failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected backfilled recorded_by 'first-gen-app', got %d rows", n)
	}

	var hasAppID bool
	row := s.db.QueryRow(`SELECT COUNT(*) > 0 FROM pragma_table_info('events') WHERE name = 'app_id'`)
	if err := row.Scan(&hasAppID); err != nil {
		t.Fatalf("failed to inspect migrated table: %v", err)
	}
	if hasAppID {
		t.Error("app_id column should be dropped after migration")
	}

	if err := s.WriteBatch(ctx, event.Batch{pageView("gen1-new", "post-migration")}); err != nil {
		t.Errorf("write after migration failed: %v", err)
	}
}
