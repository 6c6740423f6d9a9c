package reconcile

import "strings"

// ValidEmail returns the trimmed address when it has an "@" followed by a
// domain containing a ".", or "" otherwise.
func ValidEmail(raw string) string {
	s := strings.TrimSpace(raw)
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return ""
	}
	if !strings.Contains(s[at+1:], ".") {
		return ""
	}
	return s
}
