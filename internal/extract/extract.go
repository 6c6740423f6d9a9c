// Package extract obtains typed text fragments from documents through an
// external document-understanding service.
package extract

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-extractor/internal/config"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/resilience"
)

// Extractor returns the typed fragments found in one document.
type Extractor interface {
	Extract(ctx context.Context, doc model.Document) ([]model.Fragment, error)
}

// NewExtractor builds the configured provider wrapped with rate limiting,
// a circuit breaker and retries.
func NewExtractor(cfg config.ExtractorConfig) (Extractor, error) {
	var (
		inner Extractor
		err   error
	)
	switch cfg.Provider {
	case "documentai", "":
		inner, err = NewDocumentAI(cfg.DocumentAI)
	case "text":
		inner, err = NewTextExtractor(cfg.Text)
	case "fixture":
		inner = NewFixture(cfg.Fixture.Dir)
	default:
		return nil, eris.Errorf("extract: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	name := cfg.Provider
	if name == "" {
		name = "documentai"
	}
	return NewResilient(inner, ResilientOptions{
		Name:       name,
		RatePerSec: cfg.RatePerSec,
		Burst:      cfg.Burst,
		Timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
		Retry: resilience.PolicyFromConfig(
			cfg.Retry.MaxAttempts,
			cfg.Retry.InitialBackoffMs,
			cfg.Retry.MaxBackoffMs,
			cfg.Retry.Multiplier,
		),
		Breaker: resilience.BreakerFromConfig(name, cfg.Circuit.FailureThreshold, cfg.Circuit.CooldownSecs),
	}), nil
}

// readDocument returns the document bytes, preferring in-memory content.
// Missing and empty files are permanent failures.
func readDocument(doc model.Document) ([]byte, error) {
	if len(doc.Content) > 0 {
		return doc.Content, nil
	}
	if doc.Path == "" {
		return nil, resilience.Permanent(eris.Errorf("extract: document %q has no content or path", doc.Name))
	}

	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, resilience.Permanent(eris.Wrapf(err, "extract: read %s", doc.Path))
	}
	if len(data) == 0 {
		return nil, resilience.Permanent(eris.Errorf("extract: file %s is empty", doc.Path))
	}
	return data, nil
}
