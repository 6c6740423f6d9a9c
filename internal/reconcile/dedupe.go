package reconcile

import "github.com/sells-group/contact-extractor/internal/model"

// Dedupe keeps one record per mobile number. A later record replaces the
// kept one only when it is strictly more complete. Output follows the order
// in which each mobile number was first seen.
func Dedupe(records []model.CleanRecord) []model.CleanRecord {
	index := make(map[string]int, len(records))
	out := make([]model.CleanRecord, 0, len(records))

	for _, r := range records {
		i, seen := index[r.Mobile]
		if !seen {
			index[r.Mobile] = len(out)
			out = append(out, r)
			continue
		}
		if r.Completeness() > out[i].Completeness() {
			out[i] = r
		}
	}
	return out
}

// DuplicateGroup lists every record sharing one mobile number.
type DuplicateGroup struct {
	Mobile  string              `json:"mobile"`
	Records []model.CleanRecord `json:"records"`
}

// Count is the number of records in the group.
func (g DuplicateGroup) Count() int { return len(g.Records) }

// FindDuplicates reports the mobile numbers carried by more than one
// record, in first-seen order.
func FindDuplicates(records []model.CleanRecord) []DuplicateGroup {
	index := make(map[string]int)
	var groups []DuplicateGroup
	for _, r := range records {
		i, ok := index[r.Mobile]
		if !ok {
			index[r.Mobile] = len(groups)
			groups = append(groups, DuplicateGroup{Mobile: r.Mobile})
			i = len(groups) - 1
		}
		groups[i].Records = append(groups[i].Records, r)
	}

	dups := groups[:0]
	for _, g := range groups {
		if g.Count() > 1 {
			dups = append(dups, g)
		}
	}
	return dups
}
