// Package sqlite implements the relational export sink on an embedded
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/beacon/internal/adapters/export"
	"github.com/okian/beacon/internal/domain/event"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

const sinkName = "sqlite"

// Sink writes each batch as a single transaction: all rows commit or the
// whole batch rolls back and is reported as one failure.
type Sink struct {
	db *sql.DB
}

// eventColumn is the folded entity/action representation stored in the
// events.event column.
type eventColumn struct {
	Entity string `json:"entity"`
	Action string `json:"action"`
	Path   string `json:"path,omitempty"`
	TS     string `json:"ts,omitempty"`
}

// New opens the database at dsn, applies the schema and the tenant-column
// migration, and returns a ready sink.
func New(dsn string) (*Sink, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Migration first: createSchema indexes recorded_by, which a legacy
	// table does not have yet. A fresh database makes the migration a no-op.
	if err := migrateTenantColumn(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Sink{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS events(
	  id          TEXT PRIMARY KEY NOT NULL,
	  recorded_at TEXT NOT NULL,
	  recorded_by TEXT NOT NULL,
	  event       TEXT NOT NULL CHECK (json_valid(event))
	);
	CREATE INDEX IF NOT EXISTS idx_events_recorded_at ON events(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_events_recorded_by ON events(recorded_by);
	`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

// migrateTenantColumn upgrades pre-migration databases whose tenant column
// is still called app_id. Two historical shapes exist: app_id only, and
// app_id alongside a nullable recorded_by. Both end up the same way:
// recorded_by backfilled from app_id where null, table rebuilt without
// app_id so recorded_by can be NOT NULL. Runs before the sink serves
// traffic; a fresh database is a no-op.
func migrateTenantColumn(db *sql.DB) error {
	hasAppID, err := tableHasColumn(db, "app_id")
	if err != nil {
		return err
	}
	if !hasAppID {
		return nil
	}

	hasRecordedBy, err := tableHasColumn(db, "recorded_by")
	if err != nil {
		return err
	}
	if !hasRecordedBy {
		// First-generation schema: bring the column into existence so the
		// backfill below can COALESCE over it.
		if _, err := db.Exec(`ALTER TABLE events ADD COLUMN recorded_by TEXT`); err != nil {
			return fmt.Errorf("failed to add tenant column: %w", err)
		}
	}

	_, err = db.Exec(`
	CREATE TABLE events_migrated(
	  id          TEXT PRIMARY KEY NOT NULL,
	  recorded_at TEXT NOT NULL,
	  recorded_by TEXT NOT NULL,
	  event       TEXT NOT NULL CHECK (json_valid(event))
	);
	INSERT INTO events_migrated (id, recorded_at, recorded_by, event)
	  SELECT id, recorded_at, COALESCE(recorded_by, app_id), event FROM events;
	DROP TABLE events;
	ALTER TABLE events_migrated RENAME TO events;
	CREATE INDEX IF NOT EXISTS idx_events_recorded_at ON events(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_events_recorded_by ON events(recorded_by);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate tenant column: %w", err)
	}
	return nil
}

func tableHasColumn(db *sql.DB, column string) (bool, error) {
	var has bool
	row := db.QueryRow(`SELECT COUNT(*) > 0 FROM pragma_table_info('events') WHERE name = ?`, column)
	if err := row.Scan(&has); err != nil {
		return false, fmt.Errorf("failed to inspect events table: %w", err)
	}
	return has, nil
}

// Name identifies the sink in logs and metric labels.
func (s *Sink) Name() string { return sinkName }

// WriteBatch inserts every event in one transaction.
func (s *Sink) WriteBatch(ctx context.Context, batch event.Batch) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return export.WrapSink(sinkName, export.ErrConnection, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events(id, recorded_at, recorded_by, event) VALUES(?,?,?,json(?))`)
	if err != nil {
		_ = tx.Rollback()
		return export.WrapSink(sinkName, export.ErrConnection, err)
	}
	defer stmt.Close()

	for _, e := range batch {
		payload, err := json.Marshal(foldEvent(e))
		if err != nil {
			_ = tx.Rollback()
			return export.WrapSink(sinkName, export.ErrSerialization, err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.RecordedAt.Format(time.RFC3339Nano), e.AppID, string(payload)); err != nil {
			_ = tx.Rollback()
			return export.WrapSink(sinkName, export.ErrPartialWrite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return export.WrapSink(sinkName, export.ErrConnection, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Sink) Close() error {
	return s.db.Close()
}

// CountByTenant reports rows per recorded_by value, used by operational
// tooling and tests.
func (s *Sink) CountByTenant(ctx context.Context, recordedBy string) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE recorded_by = ?`, recordedBy)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

func foldEvent(e event.Event) eventColumn {
	col := eventColumn{
		Entity: string(e.Entity),
		Action: string(e.Action),
		Path:   e.Path,
	}
	if !e.TS.IsZero() {
		col.TS = e.TS.Format(time.RFC3339)
	}
	return col
}
