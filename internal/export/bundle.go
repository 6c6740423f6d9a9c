package export

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-extractor/internal/model"
)

// Formats accepted by WriteBundle.
const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
)

// ProcessingSummaryName is the bundle entry summarising every document.
const ProcessingSummaryName = "processing_summary.csv"

// BundleOptions configures WriteBundle.
type BundleOptions struct {
	// Format is "csv" or "excel".
	Format string

	// GroupSize is the number of documents per group file.
	GroupSize int
}

// WriteBundle writes a ZIP archive with, for each group of GroupSize
// documents in input order, raw, filtered and summary files named
// <kind>_group_pdfs_<g>_files_<a>_to_<b>.<ext>, plus processing_summary.csv
// covering every document.
func WriteBundle(w io.Writer, outcomes []model.DocumentOutcome, opts BundleOptions) error {
	if opts.GroupSize <= 0 {
		opts.GroupSize = 25
	}
	ext := "csv"
	switch opts.Format {
	case "", FormatCSV:
	case FormatExcel:
		ext = "xlsx"
	default:
		return eris.Errorf("export: unknown format %q", opts.Format)
	}

	zw := zip.NewWriter(w)

	for g, lo := 1, 0; lo < len(outcomes); g, lo = g+1, lo+opts.GroupSize {
		hi := min(lo+opts.GroupSize, len(outcomes))
		group := outcomes[lo:hi]
		suffix := fmt.Sprintf("group_pdfs_%d_files_%d_to_%d", g, lo+1, hi)

		var raw, filtered []model.CleanRecord
		for _, o := range group {
			raw = append(raw, o.Result.RawRecords...)
			filtered = append(filtered, o.Result.FilteredRecords...)
		}

		if err := addEntry(zw, "raw_"+suffix+"."+ext, func(ew io.Writer) error {
			return writeRecords(ew, ext, SheetRaw, raw)
		}); err != nil {
			return err
		}
		if err := addEntry(zw, "filtered_"+suffix+"."+ext, func(ew io.Writer) error {
			return writeRecords(ew, ext, SheetFiltered, filtered)
		}); err != nil {
			return err
		}
		if err := addEntry(zw, "summary_"+suffix+".csv", func(ew io.Writer) error {
			return WriteSummaryCSV(ew, group)
		}); err != nil {
			return err
		}
	}

	if err := addEntry(zw, ProcessingSummaryName, func(ew io.Writer) error {
		return WriteSummaryCSV(ew, outcomes)
	}); err != nil {
		return err
	}

	return eris.Wrap(zw.Close(), "export: close zip")
}

func writeRecords(w io.Writer, ext, sheet string, records []model.CleanRecord) error {
	if ext == "xlsx" {
		return writeRecordsXLSX(w, sheet, records)
	}
	return WriteCSV(w, records)
}

func addEntry(zw *zip.Writer, name string, write func(io.Writer) error) error {
	ew, err := zw.Create(name)
	if err != nil {
		return eris.Wrapf(err, "export: create zip entry %s", name)
	}
	if err := write(ew); err != nil {
		return eris.Wrapf(err, "export: write zip entry %s", name)
	}
	return nil
}
