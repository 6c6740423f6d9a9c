package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-extractor/internal/db"
	"github.com/sells-group/contact-extractor/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name             TEXT NOT NULL,
	group_size       INTEGER NOT NULL DEFAULT 25,
	status           TEXT NOT NULL DEFAULT 'processing',
	total_files      INTEGER NOT NULL DEFAULT 0,
	processed_files  INTEGER NOT NULL DEFAULT 0,
	total_records    INTEGER NOT NULL DEFAULT 0,
	filtered_records INTEGER NOT NULL DEFAULT 0,
	duplicates_found INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	batch_id     TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	path         TEXT NOT NULL DEFAULT '',
	size         BIGINT NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'pending',
	duration_sec DOUBLE PRECISION NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS records (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	batch_id       TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	file_id        TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	kind           TEXT NOT NULL,
	first_name     TEXT NOT NULL,
	last_name      TEXT NOT NULL,
	mobile         TEXT NOT NULL,
	landline       TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL,
	email          TEXT NOT NULL DEFAULT '',
	date_of_birth  TEXT NOT NULL DEFAULT '',
	last_seen_date TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS processing_logs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	batch_id   TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	file_id    TEXT NOT NULL DEFAULT '',
	level      TEXT NOT NULL,
	message    TEXT NOT NULL,
	details    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
CREATE INDEX IF NOT EXISTS idx_files_batch_id ON files(batch_id);
CREATE INDEX IF NOT EXISTS idx_records_batch_kind ON records(batch_id, kind);
CREATE INDEX IF NOT EXISTS idx_records_mobile ON records(mobile);
CREATE INDEX IF NOT EXISTS idx_processing_logs_batch_id ON processing_logs(batch_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateBatch(ctx context.Context, name string, groupSize, totalFiles int) (*model.Batch, error) {
	b := &model.Batch{
		ID:         uuid.New().String(),
		Name:       name,
		GroupSize:  groupSize,
		Status:     model.BatchStatusProcessing,
		TotalFiles: totalFiles,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO batches (id, name, group_size, status, total_files, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.Name, b.GroupSize, string(b.Status), b.TotalFiles, b.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert batch")
	}
	return b, nil
}

func (s *PostgresStore) UpdateBatch(ctx context.Context, batchID string, status model.BatchStatus, counts model.BatchCounts) error {
	var completedAt *time.Time
	if status != model.BatchStatusProcessing {
		now := time.Now().UTC()
		completedAt = &now
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE batches SET status = $1, total_files = $2, processed_files = $3, total_records = $4,
		 filtered_records = $5, duplicates_found = $6, completed_at = $7 WHERE id = $8`,
		string(status), counts.TotalFiles, counts.ProcessedFiles, counts.TotalRecords,
		counts.FilteredRecords, counts.DuplicatesFound, completedAt, batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update batch %s", batchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "batch %s", batchID)
	}
	return nil
}

func (s *PostgresStore) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	row := s.pool.QueryRow(ctx, batchSelect+` WHERE id = $1`, batchID)
	b, err := scanPgBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: batch %s", batchID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get batch %s", batchID)
	}
	return b, nil
}

func (s *PostgresStore) ListBatches(ctx context.Context, filter BatchFilter) ([]model.Batch, error) {
	query := batchSelect + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batches")
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		b, err := scanPgBatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan batch")
		}
		batches = append(batches, *b)
	}
	return batches, eris.Wrap(rows.Err(), "postgres: list batches iterate")
}

func (s *PostgresStore) CreateFile(ctx context.Context, batchID, name, path string, size int64) (*model.File, error) {
	f := &model.File{
		ID:        uuid.New().String(),
		BatchID:   batchID,
		Name:      name,
		Path:      path,
		Size:      size,
		Status:    model.FileStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO files (id, batch_id, name, path, size, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.BatchID, f.Name, f.Path, f.Size, string(f.Status), f.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert file for batch %s", batchID)
	}
	return f, nil
}

func (s *PostgresStore) UpdateFile(ctx context.Context, fileID string, status model.FileStatus, durationSec float64, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE files SET status = $1, duration_sec = $2, error = $3 WHERE id = $4`,
		string(status), durationSec, errMsg, fileID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update file %s", fileID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "file %s", fileID)
	}
	return nil
}

func (s *PostgresStore) ListFiles(ctx context.Context, batchID string) ([]model.File, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, batch_id, name, path, size, status, duration_sec, error, created_at
		 FROM files WHERE batch_id = $1 ORDER BY created_at, id`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list files")
	}
	defer rows.Close()

	var files []model.File
	for rows.Next() {
		var f model.File
		var status string
		if err := rows.Scan(&f.ID, &f.BatchID, &f.Name, &f.Path, &f.Size, &status, &f.DurationSec, &f.Error, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan file")
		}
		f.Status = model.FileStatus(status)
		files = append(files, f)
	}
	return files, eris.Wrap(rows.Err(), "postgres: list files iterate")
}

// SaveRecords bulk-loads records with COPY inside a transaction.
func (s *PostgresStore) SaveRecords(ctx context.Context, batchID, fileID string, kind model.RecordKind, records []model.CleanRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = recordRow(uuid.New().String(), batchID, fileID, kind, r, now)
	}

	var n int64
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		n, err = db.CopyFrom(ctx, tx, "records", recordColumns, rows)
		return err
	})
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save records for file %s", fileID)
	}
	return int(n), nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, batchID string, kind model.RecordKind) ([]model.StoredRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+strings.Join(recordColumns, ", ")+` FROM records
		 WHERE batch_id = $1 AND kind = $2 ORDER BY created_at, id`,
		batchID, string(kind),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []model.StoredRecord
	for rows.Next() {
		var r model.StoredRecord
		var k string
		if err := rows.Scan(&r.ID, &r.BatchID, &r.FileID, &k,
			&r.FirstName, &r.LastName, &r.Mobile, &r.Landline, &r.Address, &r.Email,
			&r.DateOfBirth, &r.LastSeenDate, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		r.Kind = model.RecordKind(k)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) LogEvent(ctx context.Context, ev model.ProcessingEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var details []byte
	if len(ev.Details) > 0 {
		var err error
		details, err = json.Marshal(ev.Details)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal event details")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO processing_logs (id, batch_id, file_id, level, message, details, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.BatchID, ev.FileID, string(ev.Level), ev.Message, details, ev.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert event for batch %s", ev.BatchID)
}

func (s *PostgresStore) ListEvents(ctx context.Context, batchID string) ([]model.ProcessingEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, batch_id, file_id, level, message, details, created_at
		 FROM processing_logs WHERE batch_id = $1 ORDER BY created_at, id`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var events []model.ProcessingEvent
	for rows.Next() {
		var ev model.ProcessingEvent
		var level string
		var details []byte
		if err := rows.Scan(&ev.ID, &ev.BatchID, &ev.FileID, &level, &ev.Message, &details, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		ev.Level = model.EventLevel(level)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &ev.Details); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal event details")
			}
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list events iterate")
}

func scanPgBatch(row scannable) (*model.Batch, error) {
	var b model.Batch
	var status string
	err := row.Scan(&b.ID, &b.Name, &b.GroupSize, &status, &b.TotalFiles, &b.ProcessedFiles,
		&b.TotalRecords, &b.FilteredRecords, &b.DuplicatesFound, &b.CreatedAt, &b.CompletedAt)
	if err != nil {
		return nil, err
	}
	b.Status = model.BatchStatus(status)
	return &b, nil
}
