// Package parquet implements the columnar-file export sink. Every non-empty
// batch becomes one self-contained parquet file; empty batches produce no
// file.
package parquet

import (
	"bytes"
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	pq "github.com/parquet-go/parquet-go"

	"github.com/okian/beacon/internal/adapters/export"
	"github.com/okian/beacon/internal/domain/event"
)

const sinkName = "parquet"

// row is the flat columnar shape of one exported event.
type row struct {
	ID         string `parquet:"id"`
	RecordedAt string `parquet:"recorded_at"`
	RecordedBy string `parquet:"recorded_by"`
	Entity     string `parquet:"entity"`
	Action     string `parquet:"action"`
	Path       string `parquet:"path,optional"`
	TS         string `parquet:"ts,optional"`
}

// Uploader pushes a finished batch file to remote object storage.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) error
}

// Sink writes batch files under a local directory and optionally mirrors
// them to an Uploader. Batch files are named by monotonic ULID so a
// directory listing is in write order.
type Sink struct {
	dir      string
	uploader Uploader

	// Monotonic entropy keeps same-millisecond file names ordered.
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Option applies a configuration option to the Sink.
type Option func(*Sink)

// WithUploader mirrors every written batch file to remote object storage.
func WithUploader(u Uploader) Option {
	return func(s *Sink) {
		s.uploader = u
	}
}

// New creates a parquet sink writing under dir, creating it if needed.
func New(dir string, opts ...Option) (*Sink, error) {
	s := &Sink{
		dir:     dir,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, export.WrapSink(sinkName, export.ErrConnection, err)
	}

	return s, nil
}

// Name identifies the sink in logs and metric labels.
func (s *Sink) Name() string { return sinkName }

// WriteBatch serializes the batch to one parquet file. An encoding failure
// fails the whole batch for this sink only. When an uploader is configured,
// an upload failure is reported as this sink's failure but the local file
// remains.
func (s *Sink) WriteBatch(ctx context.Context, batch event.Batch) error {
	if len(batch) == 0 {
		return nil
	}

	data, err := serialize(batch)
	if err != nil {
		return export.WrapSink(sinkName, export.ErrSerialization, err)
	}

	name := s.nextName() + ".parquet"
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return export.WrapSink(sinkName, export.ErrConnection, err)
	}

	if s.uploader != nil {
		if err := s.uploader.Upload(ctx, name, data); err != nil {
			return export.WrapSink(sinkName, export.ErrConnection, err)
		}
	}

	return nil
}

// Close releases nothing; files are closed per batch.
func (s *Sink) Close() error { return nil }

func (s *Sink) nextName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// serialize encodes the batch as a single parquet row group.
func serialize(batch event.Batch) ([]byte, error) {
	rows := make([]row, len(batch))
	for i, e := range batch {
		rows[i] = row{
			ID:         e.ID,
			RecordedAt: e.RecordedAt.Format(time.RFC3339Nano),
			RecordedBy: e.AppID,
			Entity:     string(e.Entity),
			Action:     string(e.Action),
			Path:       e.Path,
		}
		if !e.TS.IsZero() {
			rows[i].TS = e.TS.Format(time.RFC3339)
		}
	}

	var buf bytes.Buffer
	w := pq.NewGenericWriter[row](&buf)
	if _, err := w.Write(rows); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
