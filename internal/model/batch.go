package model

import "time"

// BatchStatus represents the lifecycle of a persisted batch.
type BatchStatus string

const (
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// FileStatus represents the lifecycle of a persisted input file.
type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusCompleted FileStatus = "completed"
	FileStatusNoData    FileStatus = "no_data"
	FileStatusFailed    FileStatus = "failed"
)

// RecordKind distinguishes raw from filtered stored records.
type RecordKind string

const (
	RecordKindRaw      RecordKind = "raw"
	RecordKindFiltered RecordKind = "filtered"
)

// Batch is a persisted group of documents processed together.
type Batch struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	GroupSize       int         `json:"group_size"`
	Status          BatchStatus `json:"status"`
	TotalFiles      int         `json:"total_files"`
	ProcessedFiles  int         `json:"processed_files"`
	TotalRecords    int         `json:"total_records"`
	FilteredRecords int         `json:"filtered_records"`
	DuplicatesFound int         `json:"duplicates_found"`
	CreatedAt       time.Time   `json:"created_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
}

// BatchCounts carries the counters written when a batch progresses.
type BatchCounts struct {
	TotalFiles      int
	ProcessedFiles  int
	TotalRecords    int
	FilteredRecords int
	DuplicatesFound int
}

// File is a persisted input document within a batch.
type File struct {
	ID          string     `json:"id"`
	BatchID     string     `json:"batch_id"`
	Name        string     `json:"name"`
	Path        string     `json:"path,omitempty"`
	Size        int64      `json:"size"`
	Status      FileStatus `json:"status"`
	DurationSec float64    `json:"duration_sec"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// StoredRecord is a CleanRecord persisted against a batch and file.
type StoredRecord struct {
	ID      string     `json:"id"`
	BatchID string     `json:"batch_id"`
	FileID  string     `json:"file_id"`
	Kind    RecordKind `json:"kind"`
	CleanRecord
	CreatedAt time.Time `json:"created_at"`
}

// EventLevel is the severity of a processing event.
type EventLevel string

const (
	EventInfo  EventLevel = "INFO"
	EventWarn  EventLevel = "WARN"
	EventError EventLevel = "ERROR"
)

// ProcessingEvent is an audit log entry for a batch or file.
type ProcessingEvent struct {
	ID        string         `json:"id"`
	BatchID   string         `json:"batch_id"`
	FileID    string         `json:"file_id,omitempty"`
	Level     EventLevel     `json:"level"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
