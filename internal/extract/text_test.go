package extract

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-extractor/internal/config"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/resilience"
)

func claudeServer(t *testing.T, reply string, gotPrompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/messages")
		if gotPrompt != nil {
			body, _ := io.ReadAll(r.Body)
			*gotPrompt = string(body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   "msg_test",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": reply},
			},
			"model":       defaultTextModel,
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
}

func newTestTextExtractor(t *testing.T, baseURL, binPath string) *TextExtractor {
	t.Helper()
	te, err := NewTextExtractor(config.TextConfig{AnthropicKey: "test-key", PdfToTextPath: binPath}, option.WithBaseURL(baseURL))
	require.NoError(t, err)
	return te
}

func TestNewTextExtractor_RequiresKey(t *testing.T) {
	_, err := NewTextExtractor(config.TextConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic_key")
}

func TestNewTextExtractor_Defaults(t *testing.T) {
	te, err := NewTextExtractor(config.TextConfig{AnthropicKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "pdftotext", te.binPath)
	assert.Equal(t, defaultTextModel, te.model)
	assert.Equal(t, int64(4096), te.maxTokens)
}

func TestTextExtractor_PlainText(t *testing.T) {
	var prompt string
	reply := "```json\n[{\"type\":\"name\",\"text\":\"John Smith\"},{\"type\":\"mobile\",\"text\":\"0412345678\"}]\n```"
	srv := claudeServer(t, reply, &prompt)
	defer srv.Close()

	te := newTestTextExtractor(t, srv.URL, "")
	fragments, err := te.Extract(context.Background(), model.Document{
		Name:    "people.txt",
		Content: []byte("John Smith 0412345678"),
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Fragment{
		{Type: "name", Text: "John Smith"},
		{Type: "mobile", Text: "0412345678"},
	}, fragments)
	assert.Contains(t, prompt, "John Smith 0412345678")
}

func TestTextExtractor_RunsPdfToText(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "pdftotext")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'Jane Doe 0498765432'\n"), 0755))

	var prompt string
	srv := claudeServer(t, `[{"type":"name","text":"Jane Doe"}]`, &prompt)
	defer srv.Close()

	te := newTestTextExtractor(t, srv.URL, script)
	fragments, err := te.Extract(context.Background(), model.Document{Name: "scan.pdf", Content: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, []model.Fragment{{Type: "name", Text: "Jane Doe"}}, fragments)
	assert.Contains(t, prompt, "Jane Doe 0498765432")
}

func TestTextExtractor_PdfToTextFailureIsPermanent(t *testing.T) {
	te := newTestTextExtractor(t, "http://127.0.0.1:1", filepath.Join(t.TempDir(), "no-such-binary"))
	_, err := te.Extract(context.Background(), model.Document{Name: "scan.pdf", Content: []byte("%PDF")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.False(t, resilience.IsTransient(err))
}

func TestTextExtractor_BlankTextSkipsClaude(t *testing.T) {
	te := newTestTextExtractor(t, "http://127.0.0.1:1", "")
	fragments, err := te.Extract(context.Background(), model.Document{Name: "blank.txt", Content: []byte("   \n")})
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestTextExtractor_OverloadedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	te := newTestTextExtractor(t, srv.URL, "")
	_, err := te.Extract(context.Background(), model.Document{Name: "a.txt", Content: []byte("John Smith")})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestParseFragments(t *testing.T) {
	got, err := parseFragments(`Here you go: [{"type":"email","text":"a@b.co"}] done`)
	require.NoError(t, err)
	assert.Equal(t, []model.Fragment{{Type: "email", Text: "a@b.co"}}, got)

	_, err = parseFragments("no array here")
	assert.Error(t, err)

	_, err = parseFragments(`[{"type": }]`)
	assert.Error(t, err)
}
