package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-extractor/internal/extract"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/reconcile"
	"github.com/sells-group/contact-extractor/internal/store"
)

// Pipeline processes documents end to end. The store is optional; when nil
// nothing is persisted.
type Pipeline struct {
	extractor extract.Extractor
	store     store.Store
	rec       Reconciler
}

// New creates a Pipeline. st may be nil.
func New(extractor extract.Extractor, rs *reconcile.Ruleset, st store.Store) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		store:     st,
		rec:       NewReconciler(rs),
	}
}

// Reconcile runs the pure core with the pipeline's rules.
func (p *Pipeline) Reconcile(fragments []model.Fragment) (model.DocumentResult, Stats) {
	return p.rec.Reconcile(fragments)
}

// ProcessDocument extracts fragments from doc and reconciles them. Only the
// extraction step can fail. A document without fragments yields an empty
// result.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc model.Document) (*model.DocumentResult, error) {
	log := zap.L().With(zap.String("document", doc.Name))

	fragments, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: extract %s", doc.Name)
	}

	if len(fragments) == 0 {
		log.Warn("pipeline: no entities found in document")
	}

	result, stats := p.rec.Reconcile(fragments)
	log.Debug("pipeline: document reconciled",
		zap.Int("fragments", stats.Fragments),
		zap.Int("candidates", stats.Candidates),
		zap.Int("raw", stats.Accepted),
		zap.Int("filtered", stats.Filtered),
	)
	return &result, nil
}
