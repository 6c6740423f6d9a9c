package export

import (
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/reconcile"
)

// Sheet names of a full results workbook.
const (
	SheetFiltered   = "Filtered Data"
	SheetRaw        = "Raw Data"
	SheetDuplicates = "Duplicates"
	SheetSummary    = "Summary"
)

// Metric is one name/value line of the Summary sheet.
type Metric struct {
	Name  string
	Value string
}

// Workbook is the content of a full results workbook.
type Workbook struct {
	Filtered   []model.CleanRecord
	Raw        []model.CleanRecord
	Duplicates []reconcile.DuplicateGroup
	Summary    []Metric
}

// BatchWorkbook assembles the workbook for a batch result.
func BatchWorkbook(res *model.BatchResult) Workbook {
	return Workbook{
		Filtered:   res.FilteredRecords,
		Raw:        res.RawRecords,
		Duplicates: reconcile.FindDuplicates(res.RawRecords),
		Summary:    BatchSummary(res),
	}
}

// BatchSummary lists the headline numbers of a batch.
func BatchSummary(res *model.BatchResult) []Metric {
	itoa := strconv.Itoa
	return []Metric{
		{"Documents", itoa(len(res.Outcomes))},
		{"Succeeded", itoa(res.Succeeded)},
		{"No Data", itoa(res.NoData)},
		{"Failed", itoa(res.Failed)},
		{"Raw Records", itoa(len(res.RawRecords))},
		{"Filtered Records", itoa(len(res.FilteredRecords))},
		{"Duplicates Removed", itoa(res.DuplicatesRemoved())},
		{"Duration (s)", strconv.FormatFloat(res.Duration.Seconds(), 'f', 2, 64)},
	}
}

// WriteXLSX writes wb with the sheets Filtered Data, Raw Data, Duplicates
// and Summary.
func WriteXLSX(w io.Writer, wb Workbook) error {
	f := xlsx.NewFile()

	if err := addRecordSheet(f, SheetFiltered, wb.Filtered); err != nil {
		return err
	}
	if err := addRecordSheet(f, SheetRaw, wb.Raw); err != nil {
		return err
	}

	dups, err := f.AddSheet(SheetDuplicates)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", SheetDuplicates)
	}
	addRow(dups, append([]string{"group", "count"}, model.RecordColumns...))
	for _, g := range wb.Duplicates {
		for _, r := range g.Records {
			addRow(dups, append([]string{g.Mobile, strconv.Itoa(g.Count())}, r.Values()...))
		}
	}

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", SheetSummary)
	}
	addRow(summary, []string{"metric", "value"})
	for _, m := range wb.Summary {
		addRow(summary, []string{m.Name, m.Value})
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

// SaveXLSX writes wb to path.
func SaveXLSX(path string, wb Workbook) error {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := WriteXLSX(out, wb); err != nil {
		out.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(out.Close(), "export: close %s", path)
}

// writeRecordsXLSX writes a single-sheet workbook of records.
func writeRecordsXLSX(w io.Writer, sheet string, records []model.CleanRecord) error {
	f := xlsx.NewFile()
	if err := addRecordSheet(f, sheet, records); err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func addRecordSheet(f *xlsx.File, name string, records []model.CleanRecord) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}
	addRow(sheet, model.RecordColumns)
	for _, r := range records {
		addRow(sheet, r.Values())
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
