package reconcile

import "strings"

// PhoneValidator reduces phone fragments to bare digits.
type PhoneValidator struct {
	// Digits is the exact number of digits a valid number has.
	Digits int
	// RequirePrefix applies to mobile numbers only.
	RequirePrefix string
}

// Clean strips every non-digit and returns the digits when there are
// exactly Digits of them, or "" otherwise.
func (v PhoneValidator) Clean(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	if len(digits) != v.Digits {
		return ""
	}
	return digits
}

// CleanMobile is Clean plus the optional mobile prefix requirement.
func (v PhoneValidator) CleanMobile(raw string) string {
	digits := v.Clean(raw)
	if digits == "" {
		return ""
	}
	if v.RequirePrefix != "" && !strings.HasPrefix(digits, v.RequirePrefix) {
		return ""
	}
	return digits
}
