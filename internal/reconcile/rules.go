// Package reconcile turns typed text fragments into validated, deduplicated
// contact records.
package reconcile

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules is the locale-specific data driving the validators. The zero value
// is not usable; start from DefaultRules.
type Rules struct {
	// RequireMobilePrefix, when non-empty, is a prefix every mobile number
	// must carry after digit stripping (e.g. "04").
	RequireMobilePrefix string `yaml:"require_mobile_prefix"`

	// PhoneDigits is the exact digit count of a valid phone number.
	PhoneDigits int `yaml:"phone_digits"`

	// NameSeparators split a name fragment into candidate segments.
	NameSeparators string `yaml:"name_separators"`

	// NameBlacklist holds words that mark a name fragment as an address.
	NameBlacklist []string `yaml:"name_blacklist"`

	// MinFirstNameLetters is the minimum letter count of a first name.
	MinFirstNameLetters int `yaml:"min_first_name_letters"`

	// MinAddressLength is the minimum trimmed address length in characters.
	MinAddressLength int `yaml:"min_address_length"`

	// AddressDigitWindow is how many leading characters must contain a digit.
	AddressDigitWindow int `yaml:"address_digit_window"`

	// StatePattern and PostcodePattern are regex fragments (no anchors or
	// groups) recognising the region and postcode tokens of an address.
	StatePattern    string `yaml:"state_pattern"`
	PostcodePattern string `yaml:"postcode_pattern"`
}

// DefaultRules returns the Australian rule set.
func DefaultRules() Rules {
	return Rules{
		PhoneDigits:    10,
		NameSeparators: ";,/\\",
		NameBlacklist: []string{
			"street", "avenue", "road", "drive", "lane", "court", "place", "way",
			"crescent", "close", "terrace", "parade", "boulevard",
			"qld", "nsw", "vic", "wa", "sa", "tas", "nt", "act",
			"gordonvale", "munno", "para",
		},
		MinFirstNameLetters: 2,
		MinAddressLength:    15,
		AddressDigitWindow:  10,
		StatePattern:        `NSW|VIC|QLD|SA|WA|TAS|NT|ACT`,
		PostcodePattern:     `\d{4}`,
	}
}

// LoadRules reads a YAML rules file. Keys missing from the file keep their
// DefaultRules values.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "reconcile: read rules %s", path)
	}

	// The file has a top-level "rules" key.
	wrapper := struct {
		Rules Rules `yaml:"rules"`
	}{Rules: DefaultRules()}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Rules{}, eris.Wrap(err, "reconcile: parse rules")
	}
	return wrapper.Rules, nil
}

// Ruleset is a compiled Rules value from which validators are built.
type Ruleset struct {
	Rules Rules

	blacklist *regexp.Regexp
	reorder   []addressPattern
}

// Compile validates the rules and compiles their patterns.
func (r Rules) Compile() (*Ruleset, error) {
	if r.PhoneDigits <= 0 {
		return nil, eris.New("reconcile: phone_digits must be positive")
	}
	if r.StatePattern == "" || r.PostcodePattern == "" {
		return nil, eris.New("reconcile: state_pattern and postcode_pattern are required")
	}

	rs := &Ruleset{Rules: r}

	words := make([]string, 0, len(r.NameBlacklist))
	for _, w := range r.NameBlacklist {
		w = strings.TrimSpace(w)
		if w != "" {
			words = append(words, regexp.QuoteMeta(strings.ToLower(w)))
		}
	}
	if len(words) > 0 {
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
		if err != nil {
			return nil, eris.Wrap(err, "reconcile: compile name blacklist")
		}
		rs.blacklist = re
	}

	patterns, err := compileAddressPatterns(r.StatePattern, r.PostcodePattern)
	if err != nil {
		return nil, err
	}
	rs.reorder = patterns

	return rs, nil
}

// MustCompile is Compile for rule sets known to be valid.
func (r Rules) MustCompile() *Ruleset {
	rs, err := r.Compile()
	if err != nil {
		panic(err)
	}
	return rs
}

// NameParser returns a parser bound to the ruleset.
func (rs *Ruleset) NameParser() NameParser {
	return NameParser{
		separators: rs.Rules.NameSeparators,
		blacklist:  rs.blacklist,
		minLetters: rs.Rules.MinFirstNameLetters,
	}
}

// PhoneValidator returns a validator bound to the ruleset.
func (rs *Ruleset) PhoneValidator() PhoneValidator {
	return PhoneValidator{
		Digits:        rs.Rules.PhoneDigits,
		RequirePrefix: rs.Rules.RequireMobilePrefix,
	}
}

// AddressNormalizer returns a normalizer bound to the ruleset.
func (rs *Ruleset) AddressNormalizer() AddressNormalizer {
	return AddressNormalizer{patterns: rs.reorder}
}

// Validator returns a record validator bound to the ruleset.
func (rs *Ruleset) Validator() *Validator {
	return &Validator{
		names:       rs.NameParser(),
		phones:      rs.PhoneValidator(),
		addresses:   rs.AddressNormalizer(),
		minAddress:  rs.Rules.MinAddressLength,
		digitWindow: rs.Rules.AddressDigitWindow,
	}
}
