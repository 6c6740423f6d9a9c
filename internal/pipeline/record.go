package pipeline

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/store"
)

// batchRecorder mirrors a running batch into the store. Store failures are
// logged and otherwise ignored.
type batchRecorder struct {
	store   store.Store
	batchID string
	fileIDs []string
}

// beginBatch creates the batch and file rows. It returns nil when the
// pipeline has no store or the batch row cannot be created.
func (p *Pipeline) beginBatch(ctx context.Context, docs []model.Document, opts BatchOptions) *batchRecorder {
	if p.store == nil {
		return nil
	}

	b, err := p.store.CreateBatch(ctx, opts.Name, opts.GroupSize, len(docs))
	if err != nil {
		zap.L().Warn("pipeline: failed to create batch, continuing without persistence", zap.Error(err))
		return nil
	}

	rec := &batchRecorder{
		store:   p.store,
		batchID: b.ID,
		fileIDs: make([]string, len(docs)),
	}
	for i, doc := range docs {
		f, err := p.store.CreateFile(ctx, b.ID, doc.Name, doc.Path, documentSize(doc))
		if err != nil {
			zap.L().Warn("pipeline: failed to create file row",
				zap.String("document", doc.Name),
				zap.Error(err),
			)
			continue
		}
		rec.fileIDs[i] = f.ID
	}

	rec.event(ctx, model.ProcessingEvent{
		Level:   model.EventInfo,
		Message: "batch started",
		Details: map[string]any{"documents": len(docs), "group_size": opts.GroupSize},
	})
	return rec
}

// fileDone records one document's outcome, records and log event.
func (r *batchRecorder) fileDone(ctx context.Context, o model.DocumentOutcome) {
	if o.FileID == "" {
		return
	}
	log := zap.L().With(zap.String("document", o.File), zap.String("file_id", o.FileID))

	if err := r.store.UpdateFile(ctx, o.FileID, fileStatus(o.Status), o.Duration.Seconds(), o.Error); err != nil {
		log.Warn("pipeline: failed to update file", zap.Error(err))
	}

	if _, err := r.store.SaveRecords(ctx, r.batchID, o.FileID, model.RecordKindRaw, o.Result.RawRecords); err != nil {
		log.Warn("pipeline: failed to save raw records", zap.Error(err))
	}
	if _, err := r.store.SaveRecords(ctx, r.batchID, o.FileID, model.RecordKindFiltered, o.Result.FilteredRecords); err != nil {
		log.Warn("pipeline: failed to save filtered records", zap.Error(err))
	}

	ev := model.ProcessingEvent{FileID: o.FileID}
	switch o.Status {
	case model.DocumentError:
		ev.Level = model.EventError
		ev.Message = "document failed"
		ev.Details = map[string]any{"file": o.File, "error": o.Error}
	case model.DocumentNoData:
		ev.Level = model.EventWarn
		ev.Message = "no records extracted"
		ev.Details = map[string]any{"file": o.File}
	default:
		ev.Level = model.EventInfo
		ev.Message = "document processed"
		ev.Details = map[string]any{
			"file":     o.File,
			"raw":      o.RawCount(),
			"filtered": o.FilteredCount(),
		}
	}
	r.event(ctx, ev)
}

// finish stores the batch totals. A batch in which every document failed is
// marked failed.
func (r *batchRecorder) finish(ctx context.Context, res *model.BatchResult) {
	status := model.BatchStatusCompleted
	if len(res.Outcomes) > 0 && res.Failed == len(res.Outcomes) {
		status = model.BatchStatusFailed
	}

	counts := model.BatchCounts{
		TotalFiles:      len(res.Outcomes),
		ProcessedFiles:  res.Succeeded + res.NoData,
		TotalRecords:    len(res.RawRecords),
		FilteredRecords: len(res.FilteredRecords),
		DuplicatesFound: res.DuplicatesRemoved(),
	}
	if err := r.store.UpdateBatch(ctx, r.batchID, status, counts); err != nil {
		zap.L().Warn("pipeline: failed to update batch", zap.String("batch_id", r.batchID), zap.Error(err))
	}

	r.event(ctx, model.ProcessingEvent{
		Level:   model.EventInfo,
		Message: "batch " + string(status),
		Details: map[string]any{
			"succeeded":  res.Succeeded,
			"no_data":    res.NoData,
			"failed":     res.Failed,
			"duplicates": counts.DuplicatesFound,
		},
	})
}

func (r *batchRecorder) event(ctx context.Context, ev model.ProcessingEvent) {
	ev.BatchID = r.batchID
	if err := r.store.LogEvent(ctx, ev); err != nil {
		zap.L().Warn("pipeline: failed to log event", zap.String("message", ev.Message), zap.Error(err))
	}
}

func fileStatus(s model.DocumentStatus) model.FileStatus {
	switch s {
	case model.DocumentSuccess:
		return model.FileStatusCompleted
	case model.DocumentNoData:
		return model.FileStatusNoData
	default:
		return model.FileStatusFailed
	}
}

// documentSize reports the byte size of doc, 0 when unknown.
func documentSize(doc model.Document) int64 {
	if doc.Content != nil {
		return int64(len(doc.Content))
	}
	if doc.Path == "" {
		return 0
	}
	info, err := os.Stat(doc.Path)
	if err != nil {
		return 0
	}
	return info.Size()
}
