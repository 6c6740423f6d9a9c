package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/contact-extractor/internal/model"
)

// NormalizeFragments lower-cases and trims type tags and trims and
// NFC-normalizes text. Fragments without a type are dropped; fragments with
// empty text keep their slot so positional grouping stays aligned.
func NormalizeFragments(in []model.Fragment) []model.Fragment {
	out := make([]model.Fragment, 0, len(in))
	for _, f := range in {
		typ := strings.ToLower(strings.TrimSpace(f.Type))
		text := strings.TrimSpace(norm.NFC.String(f.Text))
		if typ == "" {
			continue
		}
		out = append(out, model.Fragment{Type: typ, Text: text})
	}
	return out
}
