package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-extractor/internal/config"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/resilience"
)

const defaultTextModel = "claude-haiku-4-5-20251001"

const typingPrompt = `You label contact details in text extracted from a document.
Return ONLY a JSON array of objects {"type": "...", "text": "..."} in reading order.
Allowed types: name, mobile, address, email, landline, dateofbirth, lastseen.
Emit one object per value exactly as written. List people in the same order for every type.
Skip anything that is not one of the allowed types.`

// TextExtractor converts a PDF to text with pdftotext and asks Claude to
// type the contact fragments in it. Plain-text documents skip pdftotext.
type TextExtractor struct {
	binPath   string
	model     string
	maxTokens int64
	client    sdk.Client
}

// NewTextExtractor builds a TextExtractor. opts are passed to the SDK
// client after the API key.
func NewTextExtractor(cfg config.TextConfig, opts ...option.RequestOption) (*TextExtractor, error) {
	if cfg.AnthropicKey == "" {
		return nil, eris.New("extract: text provider requires anthropic_key")
	}

	binPath := cfg.PdfToTextPath
	if binPath == "" {
		binPath = "pdftotext"
	}
	modelID := cfg.Model
	if modelID == "" {
		modelID = defaultTextModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	// Retries are handled by Resilient.
	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(cfg.AnthropicKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &TextExtractor{
		binPath:   binPath,
		model:     modelID,
		maxTokens: maxTokens,
		client:    sdk.NewClient(clientOpts...),
	}, nil
}

// Extract implements Extractor.
func (t *TextExtractor) Extract(ctx context.Context, doc model.Document) ([]model.Fragment, error) {
	text, err := t.documentText(ctx, doc)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	msg, err := t.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(t.model),
		MaxTokens: t.maxTokens,
		System:    []sdk.TextBlockParam{{Text: typingPrompt}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(text))},
	})
	if err != nil {
		wrapped := eris.Wrapf(err, "extract: claude typing for %s", doc.Name)
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return nil, resilience.NewTransientError(wrapped, apiErr.StatusCode)
		}
		return nil, wrapped
	}

	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}

	fragments, err := parseFragments(sb.String())
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse claude output for %s", doc.Name)
	}
	return NormalizeFragments(fragments), nil
}

func (t *TextExtractor) documentText(ctx context.Context, doc model.Document) (string, error) {
	data, err := readDocument(doc)
	if err != nil {
		return "", err
	}
	if doc.MimeType == "text/plain" || strings.EqualFold(filepath.Ext(doc.Name), ".txt") {
		return string(data), nil
	}

	path := doc.Path
	if path == "" || len(doc.Content) > 0 {
		tmp, err := os.CreateTemp("", "contact-*.pdf")
		if err != nil {
			return "", eris.Wrap(err, "extract: create temp pdf")
		}
		defer os.Remove(tmp.Name()) //nolint:errcheck
		if _, err := tmp.Write(data); err != nil {
			tmp.Close() //nolint:errcheck
			return "", eris.Wrap(err, "extract: write temp pdf")
		}
		if err := tmp.Close(); err != nil {
			return "", eris.Wrap(err, "extract: close temp pdf")
		}
		path = tmp.Name()
	}

	cmd := exec.CommandContext(ctx, t.binPath, "-layout", path, "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", resilience.Permanent(eris.Wrapf(err, "extract: pdftotext failed for %s: %s", doc.Name, stderr.String()))
	}
	return stdout.String(), nil
}

// parseFragments decodes the JSON array in a model reply, tolerating
// surrounding prose or code fences.
func parseFragments(reply string) ([]model.Fragment, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end < start {
		return nil, eris.New("extract: no JSON array in reply")
	}

	var fragments []model.Fragment
	if err := json.Unmarshal([]byte(reply[start:end+1]), &fragments); err != nil {
		return nil, eris.Wrap(err, "extract: decode fragments")
	}
	return fragments, nil
}
