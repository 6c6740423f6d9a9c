package extract

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/resilience"
)

// FixtureSuffix names the sidecar file holding a document's fragments.
const FixtureSuffix = ".fragments.json"

// Fixture reads pre-extracted fragments from JSON files, for offline runs
// and tests. A .json document is read as the fragment list itself;
// anything else is looked up as <dir>/<base name>.fragments.json, with dir
// defaulting to the document's own directory.
type Fixture struct {
	dir string
}

// NewFixture returns a Fixture reading sidecars from dir.
func NewFixture(dir string) *Fixture {
	return &Fixture{dir: dir}
}

// Extract implements Extractor.
func (f *Fixture) Extract(_ context.Context, doc model.Document) ([]model.Fragment, error) {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(doc.Name), ".json") {
		data, err = readDocument(doc)
	} else {
		data, err = f.readSidecar(doc)
	}
	if err != nil {
		return nil, err
	}

	var fragments []model.Fragment
	if err := json.Unmarshal(data, &fragments); err != nil {
		return nil, resilience.Permanent(eris.Wrapf(err, "extract: parse fixture for %s", doc.Name))
	}
	return NormalizeFragments(fragments), nil
}

func (f *Fixture) readSidecar(doc model.Document) ([]byte, error) {
	dir := f.dir
	if dir == "" {
		dir = filepath.Dir(doc.Path)
	}
	base := strings.TrimSuffix(filepath.Base(doc.Name), filepath.Ext(doc.Name))
	path := filepath.Join(dir, base+FixtureSuffix)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, resilience.Permanent(eris.Wrapf(err, "extract: read fixture %s", path))
	}
	return data, nil
}
