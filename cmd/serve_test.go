package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-extractor/internal/extract"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/pipeline"
	"github.com/sells-group/contact-extractor/internal/reconcile"
)

const johnSmithJSON = `[
	{"type":"name","text":"John Smith"},
	{"type":"mobile","text":"0412 345 678"},
	{"type":"address","text":"123 Example Street NSW 2000"}
]`

func newTestRouter(withExtractor bool) http.Handler {
	var ex extract.Extractor
	if withExtractor {
		ex = extract.NewFixture("")
	}
	return newRouter(pipeline.New(ex, reconcile.DefaultRules().MustCompile(), nil), withExtractor)
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doRequest(t, newTestRouter(false), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReconcileEndpoint(t *testing.T) {
	w := doRequest(t, newTestRouter(false), http.MethodPost, "/v1/reconcile", `{"fragments":`+johnSmithJSON+`}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp reconcileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.FilteredRecords, 1)
	assert.Equal(t, "John", resp.FilteredRecords[0].FirstName)
	assert.Equal(t, "0412345678", resp.FilteredRecords[0].Mobile)
	assert.Equal(t, 3, resp.Stats.Fragments)
	assert.Equal(t, 1, resp.Stats.Accepted)
}

func TestReconcileEndpoint_EmptyFragments(t *testing.T) {
	w := doRequest(t, newTestRouter(false), http.MethodPost, "/v1/reconcile", `{"fragments":[]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"raw_records":[]`)
	assert.Contains(t, w.Body.String(), `"filtered_records":[]`)
}

func TestReconcileEndpoint_BadBody(t *testing.T) {
	w := doRequest(t, newTestRouter(false), http.MethodPost, "/v1/reconcile", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestJSONEndpoints_BodyTooLarge(t *testing.T) {
	body := `{"fragments":"` + strings.Repeat("a", maxJSONBytes) + `"}`
	for _, target := range []string{"/v1/reconcile", "/v1/dedupe"} {
		w := doRequest(t, newTestRouter(false), http.MethodPost, target, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestDedupeEndpoint(t *testing.T) {
	records := []model.CleanRecord{
		{FirstName: "Jane", LastName: "Doe", Mobile: "0498765432", Address: "45 Sample Road"},
		{FirstName: "Janet", LastName: "Doe", Mobile: "0498765432", Address: "45 Sample Road", Email: "janet@example.com"},
		{FirstName: "John", LastName: "Smith", Mobile: "0412345678", Address: "123 Example Street"},
	}
	body, err := json.Marshal(dedupeRequest{Records: records})
	require.NoError(t, err)

	w := doRequest(t, newTestRouter(false), http.MethodPost, "/v1/dedupe", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	var resp dedupeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "Janet", resp.Records[0].FirstName)
	assert.Equal(t, "John", resp.Records[1].FirstName)
	assert.Equal(t, 1, resp.DuplicatesRemoved)
}

func TestDocumentEndpoint(t *testing.T) {
	w := doRequest(t, newTestRouter(true), http.MethodPost, "/v1/documents?name=upload.json", johnSmithJSON)
	require.Equal(t, http.StatusOK, w.Code)

	var result model.DocumentResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.RawRecords, 1)
	assert.Equal(t, "Smith", result.RawRecords[0].LastName)
}

func TestDocumentEndpoint_NoExtractor(t *testing.T) {
	w := doRequest(t, newTestRouter(false), http.MethodPost, "/v1/documents", "%PDF-1.4")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDocumentEndpoint_EmptyBody(t *testing.T) {
	w := doRequest(t, newTestRouter(true), http.MethodPost, "/v1/documents?name=upload.json", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentEndpoint_ExtractionFailure(t *testing.T) {
	w := doRequest(t, newTestRouter(true), http.MethodPost, "/v1/documents?name=upload.json", "not fragments")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "extraction failed")
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/reconcile", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	newTestRouter(false).ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
