package model

import "time"

// Document is one input file handed to the extractor. Content, when set,
// takes precedence over reading Path.
type Document struct {
	Name     string `json:"name"`
	Path     string `json:"path,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Content  []byte `json:"-"`
}

// DocumentResult is the per-document output of the reconciliation core.
type DocumentResult struct {
	RawRecords      []CleanRecord `json:"raw_records"`
	FilteredRecords []CleanRecord `json:"filtered_records"`
}

// DocumentStatus describes how a document fared in a batch.
type DocumentStatus string

const (
	DocumentSuccess DocumentStatus = "success"
	DocumentNoData  DocumentStatus = "no_data"
	DocumentError   DocumentStatus = "error"
)

// DocumentOutcome is the batch-level view of one processed document.
type DocumentOutcome struct {
	File     string         `json:"file"`
	FileID   string         `json:"file_id,omitempty"`
	Status   DocumentStatus `json:"status"`
	Error    string         `json:"error,omitempty"`
	Result   DocumentResult `json:"result"`
	Duration time.Duration  `json:"duration"`
}

// RawCount returns the number of raw records.
func (o DocumentOutcome) RawCount() int { return len(o.Result.RawRecords) }

// FilteredCount returns the number of filtered records.
func (o DocumentOutcome) FilteredCount() int { return len(o.Result.FilteredRecords) }

// BatchResult aggregates the outcomes of a batch in input order.
type BatchResult struct {
	BatchID         string            `json:"batch_id,omitempty"`
	Outcomes        []DocumentOutcome `json:"outcomes"`
	RawRecords      []CleanRecord     `json:"raw_records"`
	FilteredRecords []CleanRecord     `json:"filtered_records"`
	Succeeded       int               `json:"succeeded"`
	NoData          int               `json:"no_data"`
	Failed          int               `json:"failed"`
	Duration        time.Duration     `json:"duration"`
}

// DuplicatesRemoved is the difference between raw and filtered counts.
func (b *BatchResult) DuplicatesRemoved() int {
	return len(b.RawRecords) - len(b.FilteredRecords)
}
