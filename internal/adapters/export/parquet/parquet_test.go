package parquet

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	pq "github.com/parquet-go/parquet-go"

	"github.com/okian/beacon/internal/adapters/export"
	"github.com/okian/beacon/internal/domain/event"
)

func sampleBatch() event.Batch {
	return event.Batch{
		{
			ID:         "id-1",
			RecordedAt: time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC),
			Entity:     event.EntityPage,
			Action:     event.ActionView,
			Path:       "/home",
			AppID:      "app-a",
		},
		{
			ID:         "id-2",
			RecordedAt: time.Date(2024, 5, 6, 12, 0, 1, 0, time.UTC),
			Entity:     event.EntityAnchor,
			Action:     event.ActionClick,
			AppID:      "app-b",
			TS:         time.Date(2024, 5, 6, 11, 59, 0, 0, time.UTC),
		},
	}
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestWriteBatch_OneFilePerBatch(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}
	ctx := context.Background()

	if err := s.WriteBatch(ctx, sampleBatch()); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}
	if err := s.WriteBatch(ctx, sampleBatch()); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}

	files := listFiles(t, dir)
	if len(files) != 2 {
		t.Fatalf("expected 2 batch files, got %d: %v", len(files), files)
	}
	for _, name := range files {
		if filepath.Ext(name) != ".parquet" {
			t.Errorf("unexpected file name %s", name)
		}
	}
	// ULID names written later sort later.
	if !sort.StringsAreSorted(files) {
		t.Errorf("batch file names not in write order: %v", files)
	}
}

func TestWriteBatch_EmptyProducesNoFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	if err := s.WriteBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("empty batch produced files: %v", files)
	}
}

func TestWriteBatch_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	if err := s.WriteBatch(context.Background(), sampleBatch()); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}

	files := listFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %v", files)
	}

	data, err := os.ReadFile(filepath.Join(dir, files[0]))
	if err != nil {
		t.Fatalf("failed to read batch file: %v", err)
	}

	rows, err := pq.Read[row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to read parquet rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0].ID != "id-1" || rows[0].Entity != "page" || rows[0].Action != "view" ||
		rows[0].Path != "/home" || rows[0].RecordedBy != "app-a" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].RecordedBy != "app-b" || rows[1].TS != "2024-05-06T11:59:00Z" {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
}

// fakeUploader records uploads and can be told to fail.
type fakeUploader struct {
	names []string
	fail  error
}

func (u *fakeUploader) Upload(_ context.Context, name string, _ []byte) error {
	if u.fail != nil {
		return u.fail
	}
	u.names = append(u.names, name)
	return nil
}

func TestWriteBatch_Upload(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	s, err := New(dir, WithUploader(up))
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	if err := s.WriteBatch(context.Background(), sampleBatch()); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}
	if len(up.names) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(up.names))
	}

	files := listFiles(t, dir)
	if len(files) != 1 || files[0] != up.names[0] {
		t.Errorf("uploaded name %v does not match local file %v", up.names, files)
	}
}

func TestWriteBatch_UploadFailureKeepsLocalFile(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{fail: errors.New("bucket unreachable")}
	s, err := New(dir, WithUploader(up))
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	err = s.WriteBatch(context.Background(), sampleBatch())
	if err == nil {
		t.Fatal("expected upload failure to surface")
	}
	if !errors.Is(err, export.ErrConnection) {
		t.Errorf("expected ErrConnection, got %v", err)
	}
	if files := listFiles(t, dir); len(files) != 1 {
		t.Errorf("local batch file should remain after upload failure, got %v", files)
	}
}
