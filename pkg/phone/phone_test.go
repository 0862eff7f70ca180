package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		region string
		want   string
		ok     bool
	}{
		{"us national", "(415) 555-1234", "US", "+14155551234", true},
		{"already e164", "+14155551234", "US", "+14155551234", true},
		{"explicit prefix ignores default region", "+44 20 7946 0958", "NL", "+442079460958", true},
		{"dutch mobile national format", "06 12345678", "NL", "+31612345678", true},
		{"surrounding whitespace", "  +31 6 12345678 ", "US", "+31612345678", true},
		{"empty", "", "US", "", false},
		{"whitespace only", "   ", "US", "", false},
		{"not a number", "invalid", "US", "", false},
		{"too short for region", "12345", "US", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw, tt.region)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"(415) 555-1234", "+44 20 7946 0958", "06-12345678", "+1 415 555 1234"}
	for _, region := range []string{"US", "NL", "GB"} {
		for _, raw := range inputs {
			once, ok := Normalize(raw, region)
			if !ok {
				continue
			}
			twice, ok := Normalize(once, region)
			assert.True(t, ok, "normalized output must stay valid: %s", once)
			assert.Equal(t, once, twice)
		}
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("+14155551234", "NL"))
	assert.False(t, Valid("abc", "NL"))
}
