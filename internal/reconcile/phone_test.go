package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhoneValidator_Clean(t *testing.T) {
	v := PhoneValidator{Digits: 10}

	tests := []struct {
		in, want string
	}{
		{"(04) 1234-5678", "0412345678"},
		{"0412 345 678", "0412345678"},
		{"+61 2 9999 9999", ""},
		{"02 9999 9999", "0299999999"},
		{"123", ""},
		{"041234567890", ""},
		{"", ""},
		{"mobile: n/a", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Clean(tt.in))
		})
	}
}

func TestPhoneValidator_CleanMobilePrefix(t *testing.T) {
	loose := PhoneValidator{Digits: 10}
	strict := PhoneValidator{Digits: 10, RequirePrefix: "04"}

	assert.Equal(t, "0299999999", loose.CleanMobile("02 9999 9999"))
	assert.Empty(t, strict.CleanMobile("02 9999 9999"))
	assert.Equal(t, "0412345678", strict.CleanMobile("(04) 1234-5678"))

	// The prefix rule does not apply to landlines.
	assert.Equal(t, "0299999999", strict.Clean("02 9999 9999"))
}
