// Package model defines the shared data types of the contact extraction pipeline.
package model

import "strings"

// Fragment tags emitted by the document-understanding service.
const (
	TagName        = "name"
	TagMobile      = "mobile"
	TagAddress     = "address"
	TagEmail       = "email"
	TagLandline    = "landline"
	TagDateOfBirth = "dateofbirth"
	TagLastSeen    = "lastseen"
)

// Fragment is a single typed text span located in a document.
type Fragment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CandidateRecord is an unvalidated grouping of fragments believed to
// describe one person. An empty field means no fragment was aligned to it.
type CandidateRecord struct {
	Name         string `json:"name,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
	Address      string `json:"address,omitempty"`
	Email        string `json:"email,omitempty"`
	Landline     string `json:"landline,omitempty"`
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	LastSeenDate string `json:"last_seen_date,omitempty"`
}

// CleanRecord is a candidate that passed validation. FirstName, LastName,
// Mobile and Address are always populated; the rest may be empty.
type CleanRecord struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Mobile       string `json:"mobile"`
	Landline     string `json:"landline"`
	Address      string `json:"address"`
	Email        string `json:"email"`
	DateOfBirth  string `json:"date_of_birth"`
	LastSeenDate string `json:"last_seen_date"`
}

// RecordColumns is the stable column order expected by CSV, Excel and
// database writers.
var RecordColumns = []string{
	"first_name",
	"last_name",
	"mobile",
	"landline",
	"address",
	"email",
	"date_of_birth",
	"last_seen_date",
}

// Values returns the record fields in RecordColumns order.
func (r CleanRecord) Values() []string {
	return []string{
		r.FirstName,
		r.LastName,
		r.Mobile,
		r.Landline,
		r.Address,
		r.Email,
		r.DateOfBirth,
		r.LastSeenDate,
	}
}

// RecordFromValues builds a CleanRecord from a column->value mapping.
// Unknown columns are ignored and missing ones stay empty.
func RecordFromValues(values map[string]string) CleanRecord {
	return CleanRecord{
		FirstName:    values["first_name"],
		LastName:     values["last_name"],
		Mobile:       values["mobile"],
		Landline:     values["landline"],
		Address:      values["address"],
		Email:        values["email"],
		DateOfBirth:  values["date_of_birth"],
		LastSeenDate: values["last_seen_date"],
	}
}

// Completeness counts the fields holding a non-blank value.
func (r CleanRecord) Completeness() int {
	n := 0
	for _, v := range r.Values() {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}
