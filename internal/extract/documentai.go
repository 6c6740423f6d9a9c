package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-extractor/internal/config"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/resilience"
)

// DocumentAI calls a Google Document AI custom extractor processor over
// REST and returns its top-level entities as fragments.
type DocumentAI struct {
	endpoint    string
	name        string
	accessToken string
	mimeType    string
	client      *http.Client
}

// NewDocumentAI validates cfg and builds a DocumentAI extractor. An empty
// endpoint resolves to the regional Document AI host.
func NewDocumentAI(cfg config.DocumentAIConfig) (*DocumentAI, error) {
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, eris.New("extract: documentai requires project_id and processor_id")
	}
	if cfg.AccessToken == "" {
		return nil, eris.New("extract: documentai requires access_token")
	}

	location := cfg.Location
	if location == "" {
		location = "us"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s-documentai.googleapis.com", location)
	}
	mimeType := cfg.MimeType
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	return &DocumentAI{
		endpoint:    endpoint,
		name:        fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, location, cfg.ProcessorID),
		accessToken: cfg.AccessToken,
		mimeType:    mimeType,
		client:      &http.Client{},
	}, nil
}

type processRequest struct {
	RawDocument rawDocument `json:"rawDocument"`
}

type rawDocument struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

type processResponse struct {
	Document struct {
		Entities []struct {
			Type        string  `json:"type"`
			MentionText string  `json:"mentionText"`
			Confidence  float64 `json:"confidence"`
		} `json:"entities"`
	} `json:"document"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Extract implements Extractor.
func (d *DocumentAI) Extract(ctx context.Context, doc model.Document) ([]model.Fragment, error) {
	data, err := readDocument(doc)
	if err != nil {
		return nil, err
	}

	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = d.mimeType
	}
	body, err := json.Marshal(processRequest{RawDocument: rawDocument{
		Content:  base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}})
	if err != nil {
		return nil, eris.Wrap(err, "extract: marshal documentai request")
	}

	url := d.endpoint + "/v1/" + d.name + ":process"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "extract: create documentai request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.accessToken)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: documentai call for %s", doc.Name)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "extract: read documentai response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Error.Message != "" {
			msg = ae.Error.Message
		}
		err := eris.Errorf("extract: documentai returned %d for %s: %s", resp.StatusCode, doc.Name, msg)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var pr processResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return nil, eris.Wrap(err, "extract: unmarshal documentai response")
	}

	fragments := make([]model.Fragment, 0, len(pr.Document.Entities))
	for _, e := range pr.Document.Entities {
		fragments = append(fragments, model.Fragment{Type: e.Type, Text: e.MentionText})
	}
	return NormalizeFragments(fragments), nil
}
