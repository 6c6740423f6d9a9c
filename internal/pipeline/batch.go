package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/reconcile"
)

const (
	defaultMaxWorkers = 3
	defaultBatchSize  = 40
	defaultGroupSize  = 25
)

// BatchOptions tunes ProcessBatch.
type BatchOptions struct {
	// Name labels the persisted batch. Defaults to a timestamp.
	Name string

	MaxWorkers int
	BatchSize  int

	// GroupSize is recorded on the persisted batch for export grouping.
	GroupSize int

	// GlobalDedupe dedupes the raw records of all documents together
	// instead of concatenating each document's filtered records.
	GlobalDedupe bool
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = defaultMaxWorkers
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.GroupSize <= 0 {
		o.GroupSize = defaultGroupSize
	}
	if o.Name == "" {
		o.Name = fmt.Sprintf("batch-%s", time.Now().UTC().Format("20060102-150405"))
	}
	return o
}

// ProcessBatch processes docs in chunks of BatchSize, each chunk on at most
// MaxWorkers goroutines. A failing document is recorded in its outcome and
// never stops the others. Outcomes and records keep input order.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []model.Document, opts BatchOptions) *model.BatchResult {
	opts = opts.withDefaults()
	start := time.Now()

	result := &model.BatchResult{
		Outcomes:        make([]model.DocumentOutcome, len(docs)),
		RawRecords:      []model.CleanRecord{},
		FilteredRecords: []model.CleanRecord{},
	}

	rec := p.beginBatch(ctx, docs, opts)
	if rec != nil {
		result.BatchID = rec.batchID
	}

	zap.L().Info("pipeline: processing batch",
		zap.Int("documents", len(docs)),
		zap.Int("workers", opts.MaxWorkers),
		zap.Int("batch_size", opts.BatchSize),
	)

	for lo := 0; lo < len(docs); lo += opts.BatchSize {
		hi := min(lo+opts.BatchSize, len(docs))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.MaxWorkers)

		for i := lo; i < hi; i++ {
			g.Go(func() error {
				outcome := p.processOne(gctx, docs[i])
				if rec != nil {
					outcome.FileID = rec.fileIDs[i]
					rec.fileDone(gctx, outcome)
				}
				result.Outcomes[i] = outcome
				return nil // don't abort batch on individual failure
			})
		}
		_ = g.Wait()

		zap.L().Info("pipeline: chunk complete",
			zap.Int("from", lo+1),
			zap.Int("to", hi),
			zap.Int("total", len(docs)),
		)
	}

	for _, o := range result.Outcomes {
		switch o.Status {
		case model.DocumentSuccess:
			result.Succeeded++
		case model.DocumentNoData:
			result.NoData++
		case model.DocumentError:
			result.Failed++
		}
		result.RawRecords = append(result.RawRecords, o.Result.RawRecords...)
		result.FilteredRecords = append(result.FilteredRecords, o.Result.FilteredRecords...)
	}
	if opts.GlobalDedupe {
		result.FilteredRecords = reconcile.Dedupe(result.RawRecords)
	}
	result.Duration = time.Since(start)

	if rec != nil {
		rec.finish(ctx, result)
	}

	zap.L().Info("pipeline: batch complete",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("no_data", result.NoData),
		zap.Int("failed", result.Failed),
		zap.Int("raw_records", len(result.RawRecords)),
		zap.Int("filtered_records", len(result.FilteredRecords)),
		zap.Duration("duration", result.Duration),
	)
	return result
}

// processOne runs one document and classifies the outcome.
func (p *Pipeline) processOne(ctx context.Context, doc model.Document) model.DocumentOutcome {
	start := time.Now()
	outcome := model.DocumentOutcome{
		File: doc.Name,
		Result: model.DocumentResult{
			RawRecords:      []model.CleanRecord{},
			FilteredRecords: []model.CleanRecord{},
		},
	}

	res, err := p.ProcessDocument(ctx, doc)
	outcome.Duration = time.Since(start)

	switch {
	case err != nil:
		outcome.Status = model.DocumentError
		outcome.Error = err.Error()
		zap.L().Error("pipeline: document failed",
			zap.String("document", doc.Name),
			zap.Error(err),
		)
	case len(res.RawRecords) == 0:
		outcome.Status = model.DocumentNoData
		outcome.Result = *res
	default:
		outcome.Status = model.DocumentSuccess
		outcome.Result = *res
	}
	return outcome
}
