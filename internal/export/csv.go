// Package export writes reconciled records as CSV, Excel workbooks and
// grouped ZIP bundles, and reads record CSVs back.
package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-extractor/internal/model"
)

// WriteCSV writes records under the standard record header.
func WriteCSV(w io.Writer, records []model.CleanRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.RecordColumns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range records {
		if err := cw.Write(r.Values()); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// summaryColumns is the header of per-document summary CSVs.
var summaryColumns = []string{"file", "status", "raw_records", "filtered_records", "duration_sec", "error"}

// WriteSummaryCSV writes one row per document outcome.
func WriteSummaryCSV(w io.Writer, outcomes []model.DocumentOutcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryColumns); err != nil {
		return eris.Wrap(err, "export: write summary header")
	}
	for _, o := range outcomes {
		if err := cw.Write(summaryRow(o)); err != nil {
			return eris.Wrap(err, "export: write summary row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush summary")
}

func summaryRow(o model.DocumentOutcome) []string {
	return []string{
		o.File,
		string(o.Status),
		strconv.Itoa(o.RawCount()),
		strconv.Itoa(o.FilteredCount()),
		strconv.FormatFloat(o.Duration.Seconds(), 'f', 2, 64),
		o.Error,
	}
}

// ReadCSV reads records from a CSV with a header row. Columns are matched
// by name, case-insensitively; unknown columns are ignored and missing ones
// left empty. The mobile column is required.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.CleanRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("export: csv is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "export: read csv header")
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	if !contains(header, "mobile") {
		return nil, eris.New("export: csv missing column mobile")
	}

	var records []model.CleanRecord
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "export: csv read cancelled")
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "export: read csv row")
		}

		values := make(map[string]string, len(header))
		for i, v := range row {
			if i < len(header) {
				values[header[i]] = strings.TrimSpace(v)
			}
		}
		records = append(records, model.RecordFromValues(values))
	}
	return records, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
