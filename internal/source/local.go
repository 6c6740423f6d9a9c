// Package source discovers the documents a batch processes, from local
// paths or an FTP drop.
package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-extractor/internal/extract"
	"github.com/sells-group/contact-extractor/internal/model"
)

// Source lists documents to process.
type Source interface {
	Documents(ctx context.Context) ([]model.Document, error)
}

// documentExts are the extensions picked up when expanding a directory.
var documentExts = map[string]string{
	".pdf":  "application/pdf",
	".json": "application/json",
	".txt":  "text/plain",
}

// LocalSource expands files, directories and glob patterns.
type LocalSource struct {
	Paths []string
}

// Documents implements Source.
func (s LocalSource) Documents(_ context.Context) ([]model.Document, error) {
	return Local(s.Paths...)
}

// Local expands paths into documents. Files are taken as given. Directories
// contribute their .pdf, .json and .txt entries (not recursively, fixture
// sidecars excluded) in name order. Patterns with glob metacharacters are
// expanded in name order. A path listed twice is returned once.
func Local(paths ...string) ([]model.Document, error) {
	var docs []model.Document
	seen := make(map[string]bool)

	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		docs = append(docs, model.Document{
			Name:     filepath.Base(path),
			Path:     path,
			MimeType: mimeType(path),
		})
	}

	for _, p := range paths {
		if strings.ContainsAny(p, "*?[") {
			matches, err := filepath.Glob(p)
			if err != nil {
				return nil, eris.Wrapf(err, "source: glob %s", p)
			}
			if len(matches) == 0 {
				zap.L().Warn("source: pattern matched no files", zap.String("pattern", p))
			}
			sort.Strings(matches)
			for _, m := range matches {
				if info, err := os.Stat(m); err == nil && !info.IsDir() {
					add(m)
				}
			}
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, eris.Wrapf(err, "source: stat %s", p)
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, eris.Wrapf(err, "source: read dir %s", p)
		}
		for _, e := range entries {
			if e.IsDir() || !isDocument(e.Name()) {
				continue
			}
			add(filepath.Join(p, e.Name()))
		}
	}
	return docs, nil
}

// isDocument reports whether a directory entry should be processed.
func isDocument(name string) bool {
	if strings.HasSuffix(strings.ToLower(name), extract.FixtureSuffix) {
		return false
	}
	_, ok := documentExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

func mimeType(path string) string {
	return documentExts[strings.ToLower(filepath.Ext(path))]
}
