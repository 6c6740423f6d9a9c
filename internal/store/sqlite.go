package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/contact-extractor/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps the pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	group_size       INTEGER NOT NULL DEFAULT 25,
	status           TEXT NOT NULL DEFAULT 'processing',
	total_files      INTEGER NOT NULL DEFAULT 0,
	processed_files  INTEGER NOT NULL DEFAULT 0,
	total_records    INTEGER NOT NULL DEFAULT 0,
	filtered_records INTEGER NOT NULL DEFAULT 0,
	duplicates_found INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at     DATETIME
);

CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY,
	batch_id     TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	path         TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'pending',
	duration_sec REAL NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS records (
	id             TEXT PRIMARY KEY,
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
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS processing_logs (
	id         TEXT PRIMARY KEY,
	batch_id   TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	file_id    TEXT NOT NULL DEFAULT '',
	level      TEXT NOT NULL,
	message    TEXT NOT NULL,
	details    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
CREATE INDEX IF NOT EXISTS idx_files_batch_id ON files(batch_id);
CREATE INDEX IF NOT EXISTS idx_records_batch_kind ON records(batch_id, kind);
CREATE INDEX IF NOT EXISTS idx_records_mobile ON records(mobile);
CREATE INDEX IF NOT EXISTS idx_processing_logs_batch_id ON processing_logs(batch_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateBatch(ctx context.Context, name string, groupSize, totalFiles int) (*model.Batch, error) {
	b := &model.Batch{
		ID:         uuid.New().String(),
		Name:       name,
		GroupSize:  groupSize,
		Status:     model.BatchStatusProcessing,
		TotalFiles: totalFiles,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, name, group_size, status, total_files, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.GroupSize, string(b.Status), b.TotalFiles, b.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert batch")
	}
	return b, nil
}

func (s *SQLiteStore) UpdateBatch(ctx context.Context, batchID string, status model.BatchStatus, counts model.BatchCounts) error {
	var completedAt any
	if status != model.BatchStatusProcessing {
		completedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, total_files = ?, processed_files = ?, total_records = ?,
		 filtered_records = ?, duplicates_found = ?, completed_at = ? WHERE id = ?`,
		string(status), counts.TotalFiles, counts.ProcessedFiles, counts.TotalRecords,
		counts.FilteredRecords, counts.DuplicatesFound, completedAt, batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update batch %s", batchID)
	}
	return checkRowsAffected(res, "batch", batchID)
}

const batchSelect = `SELECT id, name, group_size, status, total_files, processed_files, total_records,
	filtered_records, duplicates_found, created_at, completed_at FROM batches`

func (s *SQLiteStore) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	row := s.db.QueryRowContext(ctx, batchSelect+` WHERE id = ?`, batchID)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: batch %s", batchID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get batch %s", batchID)
	}
	return b, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context, filter BatchFilter) ([]model.Batch, error) {
	query := batchSelect + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batches")
	}
	defer rows.Close() //nolint:errcheck

	var batches []model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan batch")
		}
		batches = append(batches, *b)
	}
	return batches, eris.Wrap(rows.Err(), "sqlite: list batches iterate")
}

func (s *SQLiteStore) CreateFile(ctx context.Context, batchID, name, path string, size int64) (*model.File, error) {
	f := &model.File{
		ID:        uuid.New().String(),
		BatchID:   batchID,
		Name:      name,
		Path:      path,
		Size:      size,
		Status:    model.FileStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, batch_id, name, path, size, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.BatchID, f.Name, f.Path, f.Size, string(f.Status), f.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert file for batch %s", batchID)
	}
	return f, nil
}

func (s *SQLiteStore) UpdateFile(ctx context.Context, fileID string, status model.FileStatus, durationSec float64, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET status = ?, duration_sec = ?, error = ? WHERE id = ?`,
		string(status), durationSec, errMsg, fileID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update file %s", fileID)
	}
	return checkRowsAffected(res, "file", fileID)
}

func (s *SQLiteStore) ListFiles(ctx context.Context, batchID string) ([]model.File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, name, path, size, status, duration_sec, error, created_at
		 FROM files WHERE batch_id = ? ORDER BY created_at, rowid`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list files")
	}
	defer rows.Close() //nolint:errcheck

	var files []model.File
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.ID, &f.BatchID, &f.Name, &f.Path, &f.Size, &f.Status, &f.DurationSec, &f.Error, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan file")
		}
		files = append(files, f)
	}
	return files, eris.Wrap(rows.Err(), "sqlite: list files iterate")
}

func (s *SQLiteStore) SaveRecords(ctx context.Context, batchID, fileID string, kind model.RecordKind, records []model.CleanRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save records")
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(recordColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (`+strings.Join(recordColumns, ", ")+`) VALUES (`+placeholders+`)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert record")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, recordRow(uuid.New().String(), batchID, fileID, kind, r, now)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert record for file %s", fileID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit records")
	}
	return len(records), nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, batchID string, kind model.RecordKind) ([]model.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(recordColumns, ", ")+` FROM records
		 WHERE batch_id = ? AND kind = ? ORDER BY created_at, rowid`,
		batchID, string(kind),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StoredRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) LogEvent(ctx context.Context, ev model.ProcessingEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var details sql.NullString
	if len(ev.Details) > 0 {
		data, err := json.Marshal(ev.Details)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal event details")
		}
		details = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processing_logs (id, batch_id, file_id, level, message, details, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.BatchID, ev.FileID, string(ev.Level), ev.Message, details, ev.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert event for batch %s", ev.BatchID)
}

func (s *SQLiteStore) ListEvents(ctx context.Context, batchID string) ([]model.ProcessingEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, file_id, level, message, details, created_at
		 FROM processing_logs WHERE batch_id = ? ORDER BY created_at, rowid`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close() //nolint:errcheck

	var events []model.ProcessingEvent
	for rows.Next() {
		var ev model.ProcessingEvent
		var details sql.NullString
		if err := rows.Scan(&ev.ID, &ev.BatchID, &ev.FileID, &ev.Level, &ev.Message, &details, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &ev.Details); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal event details")
			}
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list events iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBatch(row scannable) (*model.Batch, error) {
	var b model.Batch
	var completedAt sql.NullTime
	err := row.Scan(&b.ID, &b.Name, &b.GroupSize, &b.Status, &b.TotalFiles, &b.ProcessedFiles,
		&b.TotalRecords, &b.FilteredRecords, &b.DuplicatesFound, &b.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	return &b, nil
}

func scanRecord(row scannable) (*model.StoredRecord, error) {
	var r model.StoredRecord
	err := row.Scan(&r.ID, &r.BatchID, &r.FileID, &r.Kind,
		&r.FirstName, &r.LastName, &r.Mobile, &r.Landline, &r.Address, &r.Email,
		&r.DateOfBirth, &r.LastSeenDate, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
