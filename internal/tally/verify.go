package tally

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMisconfiguredSecret means verification is on but the form kind has no secret.
	ErrMisconfiguredSecret = errors.New("signature verification enabled but no secret configured")
	// ErrMissingSignature means the signature header was absent or empty.
	ErrMissingSignature = errors.New("missing signature header")
	// ErrInvalidSignature means the signature did not match the body.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Verifier checks webhook signatures: hex HMAC-SHA256 of the raw body keyed by the form kind's secret.
type Verifier struct {
	enabled bool
	secrets map[FormKind]string
}

// NewVerifier creates a verifier. When enabled is false every body is accepted.
func NewVerifier(enabled bool, signupSecret, paymentSecret string) *Verifier {
	return &Verifier{
		enabled: enabled,
		secrets: map[FormKind]string{
			FormSignup:  signupSecret,
			FormPayment: paymentSecret,
		},
	}
}

// Enabled reports whether signatures are checked.
func (v *Verifier) Enabled() bool { return v.enabled }

// Verify checks signature against body. body must be the exact bytes received, before decoding.
func (v *Verifier) Verify(body []byte, signature string, kind FormKind) error {
	if !v.enabled {
		return nil
	}
	secret := v.secrets[kind]
	if secret == "" {
		return fmt.Errorf("%w for %s form", ErrMisconfiguredSecret, kind)
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	if subtle.ConstantTimeCompare(supplied, computeMAC(body, secret)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the hex signature a provider would send for body.
func Sign(body []byte, secret string) string {
	return hex.EncodeToString(computeMAC(body, secret))
}

func computeMAC(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}
