package reconcile

import (
	"regexp"
	"strings"
	"unicode"
)

// NameParser splits a person-name fragment into first and last name,
// rejecting fragments that look like addresses or noise.
type NameParser struct {
	separators string
	blacklist  *regexp.Regexp
	minLetters int
}

// Parse returns the first and last name, or two empty strings when the
// fragment is rejected. Output keeps the input casing.
func (p NameParser) Parse(raw string) (first, last string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ""
	}

	if p.separators != "" && strings.ContainsAny(s, p.separators) {
		s = bestSegment(s, p.separators)
	}

	tokens := strings.Fields(s)
	for len(tokens) > 0 && isJunkToken(tokens[0]) {
		tokens = tokens[1:]
	}
	s = strings.Join(tokens, " ")
	if s == "" {
		return "", ""
	}

	if strings.IndexFunc(s, unicode.IsDigit) >= 0 {
		return "", ""
	}
	if p.blacklist != nil && p.blacklist.MatchString(s) {
		return "", ""
	}
	if len(tokens) < 2 {
		return "", ""
	}

	first = tokens[0]
	last = strings.Join(tokens[1:], " ")

	letters := 0
	for _, r := range first {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < p.minLetters {
		return "", ""
	}
	return first, last
}

// bestSegment picks the separator-delimited segment with the most Latin
// letters, breaking ties on length. Earlier segments win exact ties.
func bestSegment(s, separators string) string {
	segments := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})

	best, bestLetters, bestLen := "", -1, -1
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		letters := countLatin(seg)
		if letters > bestLetters || (letters == bestLetters && len(seg) > bestLen) {
			best, bestLetters, bestLen = seg, letters, len(seg)
		}
	}
	return best
}

// isJunkToken reports whether a token, stripped of surrounding punctuation,
// carries no Latin letter or digit.
func isJunkToken(tok string) bool {
	tok = strings.TrimFunc(tok, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	for _, r := range tok {
		if unicode.Is(unicode.Latin, r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func countLatin(s string) int {
	n := 0
	for _, r := range s {
		if unicode.Is(unicode.Latin, r) {
			n++
		}
	}
	return n
}
