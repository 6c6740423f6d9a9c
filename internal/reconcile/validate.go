package reconcile

import (
	"strings"
	"unicode"

	"github.com/sells-group/contact-extractor/internal/model"
)

// Rejection names the rule a candidate record failed.
type Rejection string

const (
	RejectNone    Rejection = ""
	RejectName    Rejection = "name"
	RejectMobile  Rejection = "mobile"
	RejectAddress Rejection = "address"
)

// Validator applies the required-field and shape rules to candidates.
type Validator struct {
	names       NameParser
	phones      PhoneValidator
	addresses   AddressNormalizer
	minAddress  int
	digitWindow int
}

// Validate turns a candidate into a CleanRecord. Checks run in order name,
// mobile, address and stop at the first failure, reported as the returned
// Rejection. Invalid email and landline values are cleared, not rejected. Date fields
// pass through unchanged.
func (v *Validator) Validate(c model.CandidateRecord) (model.CleanRecord, Rejection) {
	first, last := v.names.Parse(c.Name)
	if first == "" || last == "" {
		return model.CleanRecord{}, RejectName
	}

	mobile := v.phones.CleanMobile(c.Mobile)
	if mobile == "" {
		return model.CleanRecord{}, RejectMobile
	}

	address := strings.TrimSpace(c.Address)
	if !v.addressShapeOK(address) {
		return model.CleanRecord{}, RejectAddress
	}

	return model.CleanRecord{
		FirstName:    first,
		LastName:     last,
		Mobile:       mobile,
		Landline:     v.phones.Clean(c.Landline),
		Address:      v.addresses.Normalize(address),
		Email:        ValidEmail(c.Email),
		DateOfBirth:  c.DateOfBirth,
		LastSeenDate: c.LastSeenDate,
	}, RejectNone
}

// addressShapeOK requires a minimum length and a digit among the leading
// characters, which is where the street number lives.
func (v *Validator) addressShapeOK(address string) bool {
	runes := []rune(address)
	if len(runes) < v.minAddress {
		return false
	}
	window := runes[:min(v.digitWindow, len(runes))]
	for _, r := range window {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
