package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/store"
)

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, doc model.Document) ([]model.Fragment, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Fragment), args.Error(1)
}

// onDocument registers an Extract expectation for the named document.
func (m *mockExtractor) onDocument(name string) *mock.Call {
	return m.On("Extract", mock.Anything, mock.MatchedBy(func(d model.Document) bool {
		return d.Name == name
	}))
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateBatch(ctx context.Context, name string, groupSize, totalFiles int) (*model.Batch, error) {
	args := m.Called(ctx, name, groupSize, totalFiles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Batch), args.Error(1)
}

func (m *mockStore) UpdateBatch(ctx context.Context, batchID string, status model.BatchStatus, counts model.BatchCounts) error {
	args := m.Called(ctx, batchID, status, counts)
	return args.Error(0)
}

func (m *mockStore) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Batch), args.Error(1)
}

func (m *mockStore) ListBatches(ctx context.Context, filter store.BatchFilter) ([]model.Batch, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Batch), args.Error(1)
}

func (m *mockStore) CreateFile(ctx context.Context, batchID, name, path string, size int64) (*model.File, error) {
	args := m.Called(ctx, batchID, name, path, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *mockStore) UpdateFile(ctx context.Context, fileID string, status model.FileStatus, durationSec float64, errMsg string) error {
	args := m.Called(ctx, fileID, status, durationSec, errMsg)
	return args.Error(0)
}

func (m *mockStore) ListFiles(ctx context.Context, batchID string) ([]model.File, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.File), args.Error(1)
}

func (m *mockStore) SaveRecords(ctx context.Context, batchID, fileID string, kind model.RecordKind, records []model.CleanRecord) (int, error) {
	args := m.Called(ctx, batchID, fileID, kind, records)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) ListRecords(ctx context.Context, batchID string, kind model.RecordKind) ([]model.StoredRecord, error) {
	args := m.Called(ctx, batchID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredRecord), args.Error(1)
}

func (m *mockStore) LogEvent(ctx context.Context, ev model.ProcessingEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *mockStore) ListEvents(ctx context.Context, batchID string) ([]model.ProcessingEvent, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProcessingEvent), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
