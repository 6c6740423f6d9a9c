// Package pipeline sequences extraction, grouping, validation and
// deduplication per document, and fans documents out over a bounded
// worker pool.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/reconcile"
)

// Stats counts what happened to one document's fragments.
type Stats struct {
	Fragments  int                         `json:"fragments"`
	Candidates int                         `json:"candidates"`
	Accepted   int                         `json:"accepted"`
	Filtered   int                         `json:"filtered"`
	Rejected   map[reconcile.Rejection]int `json:"rejected,omitempty"`
}

// Reconciler runs the pure part of the pipeline: group, validate, dedupe.
type Reconciler struct {
	Grouper   reconcile.Grouper
	Validator *reconcile.Validator
}

// NewReconciler builds a Reconciler from compiled rules using positional
// grouping.
func NewReconciler(rs *reconcile.Ruleset) Reconciler {
	return Reconciler{
		Grouper:   reconcile.AssumeOrderedCorrespondence{},
		Validator: rs.Validator(),
	}
}

var defaultReconciler = NewReconciler(reconcile.DefaultRules().MustCompile())

// Reconcile turns fragments into a DocumentResult using the default rules.
func Reconcile(fragments []model.Fragment) (model.DocumentResult, Stats) {
	return defaultReconciler.Reconcile(fragments)
}

// Reconcile turns fragments into raw and filtered records. Rejected
// candidates are dropped and counted by reason.
func (r Reconciler) Reconcile(fragments []model.Fragment) (model.DocumentResult, Stats) {
	stats := Stats{Fragments: len(fragments)}
	result := model.DocumentResult{
		RawRecords:      []model.CleanRecord{},
		FilteredRecords: []model.CleanRecord{},
	}

	candidates := r.Grouper.Group(fragments)
	stats.Candidates = len(candidates)

	for _, c := range candidates {
		rec, reason := r.Validator.Validate(c)
		if reason != reconcile.RejectNone {
			if stats.Rejected == nil {
				stats.Rejected = make(map[reconcile.Rejection]int)
			}
			stats.Rejected[reason]++
			zap.L().Debug("pipeline: candidate rejected",
				zap.String("reason", string(reason)),
				zap.String("name", c.Name),
			)
			continue
		}
		result.RawRecords = append(result.RawRecords, rec)
	}

	result.FilteredRecords = reconcile.Dedupe(result.RawRecords)
	stats.Accepted = len(result.RawRecords)
	stats.Filtered = len(result.FilteredRecords)
	return result, stats
}
