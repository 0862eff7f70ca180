package tally

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifier(t *testing.T) {
	body := []byte(`{"data":{"formId":"f1"}}`)

	t.Run("disabled accepts anything", func(t *testing.T) {
		v := NewVerifier(false, "", "")
		assert.NoError(t, v.Verify(body, "", FormSignup))
		assert.False(t, v.Enabled())
	})

	t.Run("missing secret", func(t *testing.T) {
		v := NewVerifier(true, "s3cret", "")
		err := v.Verify(body, Sign(body, "s3cret"), FormPayment)
		assert.ErrorIs(t, err, ErrMisconfiguredSecret)
	})

	t.Run("missing header", func(t *testing.T) {
		v := NewVerifier(true, "s3cret", "p4y")
		assert.ErrorIs(t, v.Verify(body, "  ", FormSignup), ErrMissingSignature)
	})

	t.Run("valid signature per kind", func(t *testing.T) {
		v := NewVerifier(true, "s3cret", "p4y")
		assert.NoError(t, v.Verify(body, Sign(body, "s3cret"), FormSignup))
		assert.NoError(t, v.Verify(body, Sign(body, "p4y"), FormPayment))
	})

	t.Run("wrong kind's secret", func(t *testing.T) {
		v := NewVerifier(true, "s3cret", "p4y")
		assert.ErrorIs(t, v.Verify(body, Sign(body, "s3cret"), FormPayment), ErrInvalidSignature)
	})

	t.Run("body altered", func(t *testing.T) {
		v := NewVerifier(true, "s3cret", "p4y")
		sig := Sign(body, "s3cret")
		altered := []byte(`{"data": {"formId": "f1"}}`)
		assert.ErrorIs(t, v.Verify(altered, sig, FormSignup), ErrInvalidSignature)
	})

	t.Run("non hex header", func(t *testing.T) {
		v := NewVerifier(true, "s3cret", "p4y")
		assert.ErrorIs(t, v.Verify(body, "zz-not-hex", FormSignup), ErrInvalidSignature)
	})

	t.Run("upper case hex accepted", func(t *testing.T) {
		v := NewVerifier(true, "s3cret", "p4y")
		assert.NoError(t, v.Verify(body, strings.ToUpper(Sign(body, "s3cret")), FormSignup))
	})
}
