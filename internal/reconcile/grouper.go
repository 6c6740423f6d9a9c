package reconcile

import (
	"strings"

	"github.com/sells-group/contact-extractor/internal/model"
)

// Grouper assembles typed fragments into candidate records.
type Grouper interface {
	Group(fragments []model.Fragment) []model.CandidateRecord
}

// AssumeOrderedCorrespondence groups fragments by position: the k-th name
// is paired with the k-th mobile, the k-th address, and so on.
//
// It relies on the extractor emitting every type in the same person order.
// Nothing anchors fields to each other, so a field missing for one person
// shifts every later pairing of that type. Type tags are matched exactly
// after lower-casing; unknown tags are ignored.
type AssumeOrderedCorrespondence struct{}

var _ Grouper = AssumeOrderedCorrespondence{}

// Group implements Grouper. Candidates without a name are dropped.
func (AssumeOrderedCorrespondence) Group(fragments []model.Fragment) []model.CandidateRecord {
	byType := make(map[string][]string, 7)
	for _, f := range fragments {
		tag := strings.ToLower(strings.TrimSpace(f.Type))
		switch tag {
		case model.TagName, model.TagMobile, model.TagAddress, model.TagEmail,
			model.TagLandline, model.TagDateOfBirth, model.TagLastSeen:
			byType[tag] = append(byType[tag], f.Text)
		}
	}

	n := 0
	for _, values := range byType {
		n = max(n, len(values))
	}

	at := func(tag string, i int) string {
		if values := byType[tag]; i < len(values) {
			return values[i]
		}
		return ""
	}

	candidates := make([]model.CandidateRecord, 0, n)
	for i := range n {
		c := model.CandidateRecord{
			Name:         at(model.TagName, i),
			Mobile:       at(model.TagMobile, i),
			Address:      at(model.TagAddress, i),
			Email:        at(model.TagEmail, i),
			Landline:     at(model.TagLandline, i),
			DateOfBirth:  at(model.TagDateOfBirth, i),
			LastSeenDate: at(model.TagLastSeen, i),
		}
		if c.Name == "" {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}
