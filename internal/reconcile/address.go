package reconcile

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// addressPattern matches one known disorder and rebuilds the address as
// "street STATE POSTCODE".
type addressPattern struct {
	name    string
	re      *regexp.Regexp
	rewrite func(m []string) string
}

func compileAddressPatterns(state, postcode string) ([]addressPattern, error) {
	st := "(" + state + ")"
	pc := "(" + postcode + ")"

	specs := []struct {
		name    string
		expr    string
		rewrite func(m []string) string
	}{
		{
			// NSW 2289 114 Northcott Drive ADAMSTOWN
			name:    "state_postcode_first",
			expr:    `^` + st + `\s+` + pc + `\s+(.+)$`,
			rewrite: func(m []string) string { return join(m[3], m[1], m[2]) },
		},
		{
			// 2289 114 Northcott Drive ADAMSTOWN NSW
			name:    "postcode_first_state_last",
			expr:    `^` + pc + `\s+(.+?)\s+` + st + `$`,
			rewrite: func(m []string) string { return join(m[2], m[3], m[1]) },
		},
		{
			// 114 Northcott Drive NSW 2289 ADAMSTOWN
			name:    "state_postcode_embedded",
			expr:    `^(.+?)\s+` + st + `\s+` + pc + `\s+(.+)$`,
			rewrite: func(m []string) string { return join(m[1], m[4], m[2], m[3]) },
		},
	}

	patterns := make([]addressPattern, 0, len(specs))
	for _, s := range specs {
		re, err := regexp.Compile(s.expr)
		if err != nil {
			return nil, eris.Wrapf(err, "reconcile: compile address pattern %s", s.name)
		}
		patterns = append(patterns, addressPattern{name: s.name, re: re, rewrite: s.rewrite})
	}
	return patterns, nil
}

// AddressNormalizer moves a misplaced state/postcode pair to the end of
// an address.
type AddressNormalizer struct {
	patterns []addressPattern
}

// Normalize applies the first matching reorder pattern to the trimmed
// address. Addresses matching no pattern are returned unchanged.
func (n AddressNormalizer) Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for _, p := range n.patterns {
		if m := p.re.FindStringSubmatch(s); m != nil {
			return p.rewrite(m)
		}
	}
	return raw
}

func join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
