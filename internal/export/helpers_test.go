package export

import (
	"time"

	"github.com/sells-group/contact-extractor/internal/model"
)

func rec(first, mobile string) model.CleanRecord {
	return model.CleanRecord{
		FirstName: first,
		LastName:  "Smith",
		Mobile:    mobile,
		Address:   "12 Main St Sydney NSW 2000",
	}
}

func outcome(file string, status model.DocumentStatus, raw, filtered []model.CleanRecord) model.DocumentOutcome {
	return model.DocumentOutcome{
		File:     file,
		Status:   status,
		Result:   model.DocumentResult{RawRecords: raw, FilteredRecords: filtered},
		Duration: 1500 * time.Millisecond,
	}
}
