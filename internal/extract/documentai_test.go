package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-extractor/internal/config"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/resilience"
)

func testDocumentAI(t *testing.T, endpoint string) *DocumentAI {
	t.Helper()
	d, err := NewDocumentAI(config.DocumentAIConfig{
		ProjectID:   "proj",
		Location:    "au",
		ProcessorID: "abc123",
		AccessToken: "token",
		Endpoint:    endpoint,
	})
	require.NoError(t, err)
	return d
}

func TestNewDocumentAI_RequiresIDs(t *testing.T) {
	_, err := NewDocumentAI(config.DocumentAIConfig{AccessToken: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project_id and processor_id")

	_, err = NewDocumentAI(config.DocumentAIConfig{ProjectID: "p", ProcessorID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_token")
}

func TestNewDocumentAI_DefaultEndpoint(t *testing.T) {
	d, err := NewDocumentAI(config.DocumentAIConfig{ProjectID: "p", ProcessorID: "x", AccessToken: "t", Location: "eu"})
	require.NoError(t, err)
	assert.Equal(t, "https://eu-documentai.googleapis.com", d.endpoint)
	assert.Equal(t, "projects/p/locations/eu/processors/x", d.name)
	assert.Equal(t, "application/pdf", d.mimeType)
}

func TestDocumentAI_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/projects/proj/locations/au/processors/abc123:process", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var req processRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		raw, err := base64.StdEncoding.DecodeString(req.RawDocument.Content)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 fake", string(raw))
		assert.Equal(t, "application/pdf", req.RawDocument.MimeType)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"document": map[string]any{
				"entities": []map[string]any{
					{"type": "Name", "mentionText": " John Smith ", "confidence": 0.9},
					{"type": "mobile", "mentionText": "0412 345 678"},
					{"type": "address", "mentionText": ""},
				},
			},
		})
	}))
	defer srv.Close()

	d := testDocumentAI(t, srv.URL)
	fragments, err := d.Extract(context.Background(), model.Document{Name: "a.pdf", Content: []byte("%PDF-1.4 fake")})
	require.NoError(t, err)
	assert.Equal(t, []model.Fragment{
		{Type: "name", Text: "John Smith"},
		{Type: "mobile", Text: "0412 345 678"},
		{Type: "address", Text: ""},
	}, fragments)
}

func TestDocumentAI_TransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":503,"message":"backend unavailable","status":"UNAVAILABLE"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := testDocumentAI(t, srv.URL).Extract(context.Background(), model.Document{Name: "a.pdf", Content: []byte("x")})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestDocumentAI_PermanentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`not json`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := testDocumentAI(t, srv.URL).Extract(context.Background(), model.Document{Name: "a.pdf", Content: []byte("x")})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "returned 400")
}

func TestDocumentAI_EmptyFileNeverCallsService(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "empty.pdf")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := testDocumentAI(t, srv.URL).Extract(context.Background(), model.Document{Name: "empty.pdf", Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
	assert.False(t, resilience.IsTransient(err))
	assert.False(t, called)
}

func TestReadDocument(t *testing.T) {
	data, err := readDocument(model.Document{Name: "a", Content: []byte("abc")})
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	path := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("file"), 0644))
	data, err = readDocument(model.Document{Name: "a.pdf", Path: path})
	require.NoError(t, err)
	assert.Equal(t, "file", string(data))

	_, err = readDocument(model.Document{Name: "missing.pdf", Path: filepath.Join(t.TempDir(), "missing.pdf")})
	require.Error(t, err)
	assert.Equal(t, "permanent", resilience.Classify(err))

	_, err = readDocument(model.Document{Name: "nothing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content or path")
}
