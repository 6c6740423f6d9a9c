// Package store persists batches, input files, extracted records and
// processing events.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-extractor/internal/config"
	"github.com/sells-group/contact-extractor/internal/model"
)

// ErrNotFound is returned when a batch or file does not exist.
var ErrNotFound = eris.New("store: not found")

// BatchFilter specifies criteria for listing batches.
type BatchFilter struct {
	Status model.BatchStatus `json:"status,omitempty"`
	Limit  int               `json:"limit,omitempty"`
	Offset int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for batch processing.
type Store interface {
	// Batches
	CreateBatch(ctx context.Context, name string, groupSize, totalFiles int) (*model.Batch, error)
	UpdateBatch(ctx context.Context, batchID string, status model.BatchStatus, counts model.BatchCounts) error
	GetBatch(ctx context.Context, batchID string) (*model.Batch, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]model.Batch, error)

	// Files
	CreateFile(ctx context.Context, batchID, name, path string, size int64) (*model.File, error)
	UpdateFile(ctx context.Context, fileID string, status model.FileStatus, durationSec float64, errMsg string) error
	ListFiles(ctx context.Context, batchID string) ([]model.File, error)

	// Records
	SaveRecords(ctx context.Context, batchID, fileID string, kind model.RecordKind, records []model.CleanRecord) (int, error)
	ListRecords(ctx context.Context, batchID string, kind model.RecordKind) ([]model.StoredRecord, error)

	// Processing log
	LogEvent(ctx context.Context, ev model.ProcessingEvent) error
	ListEvents(ctx context.Context, batchID string) ([]model.ProcessingEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "contacts.db"
		}
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// recordRow flattens a record into the column order of recordColumns.
func recordRow(id, batchID, fileID string, kind model.RecordKind, r model.CleanRecord, now any) []any {
	row := make([]any, 0, len(recordColumns))
	row = append(row, id, batchID, fileID, string(kind))
	for _, v := range r.Values() {
		row = append(row, v)
	}
	return append(row, now)
}

// recordColumns is the records table column order used for inserts.
var recordColumns = append(append([]string{"id", "batch_id", "file_id", "kind"}, model.RecordColumns...), "created_at")
