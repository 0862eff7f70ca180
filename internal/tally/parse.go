package tally

import (
	"encoding/json"
	"strings"

	"github.com/stranger-beers/ingestion/internal/models"
	"github.com/stranger-beers/ingestion/pkg/phone"
)

// FormKind is the kind of form a submission came from.
type FormKind string

const (
	FormSignup  FormKind = "signup"
	FormPayment FormKind = "payment"
)

// Forms holds the configured form ids for each kind.
type Forms struct {
	SignupID  string
	PaymentID string
}

// Resolve returns the kind for formID. Unconfigured ids never match.
func (f Forms) Resolve(formID string) (FormKind, bool) {
	switch {
	case formID == "":
		return "", false
	case formID == f.SignupID:
		return FormSignup, true
	case formID == f.PaymentID:
		return FormPayment, true
	}
	return "", false
}

// SignupData is a parsed signup submission.
type SignupData struct {
	FormID         string
	SubmissionID   *string
	EventID        *string
	RegistrationID *string
	PhoneRaw       *string
	PhoneE164      *string
	Email          *string
	FullName       *string
	FormFields     models.FormFields
	RawPayload     json.RawMessage
	BodyHash       string
}

// PaymentData is a parsed payment submission. Fields are kept for the audit status lookup.
type PaymentData struct {
	FormID         string
	SubmissionID   *string
	EventID        *string
	RegistrationID *string
	PhoneRaw       *string
	PhoneE164      *string
	Email          *string
	Fields         []Field
	RawPayload     json.RawMessage
	BodyHash       string
}

// AuditPhone returns the canonical phone, falling back to the raw one.
func (d *PaymentData) AuditPhone() *string { return firstSet(d.PhoneE164, d.PhoneRaw) }

// AuditPhone returns the canonical phone, falling back to the raw one.
func (d *SignupData) AuditPhone() *string { return firstSet(d.PhoneE164, d.PhoneRaw) }

// Parser turns decoded payloads into typed submissions.
type Parser struct {
	region  string
	signup  IdentityMap
	payment IdentityMap
}

// NewParser creates a parser normalizing phones against defaultRegion.
func NewParser(defaultRegion string) *Parser {
	return &Parser{region: defaultRegion, signup: SignupFieldMap, payment: PaymentFieldMap}
}

// ParseSignup extracts a signup submission. Missing or unparseable attributes stay nil.
func (p *Parser) ParseSignup(pl *Payload) *SignupData {
	fields := pl.Data.Fields
	ix := newFieldIndex(fields)
	d := &SignupData{
		FormID:         pl.Data.FormID,
		SubmissionID:   pl.Data.Submission(),
		EventID:        extractPtr(ix, p.signup.EventID),
		RegistrationID: extractPtr(ix, p.signup.RegistrationID),
		PhoneRaw:       extractPtr(ix, p.signup.Phone),
		Email:          extractPtr(ix, p.signup.Email),
		FullName:       extractPtr(ix, p.signup.FullName),
		FormFields:     ExtractProfile(fields),
		RawPayload:     pl.Raw,
		BodyHash:       pl.BodyHash,
	}
	if d.PhoneRaw == nil {
		d.PhoneRaw = d.FormFields.Phone
	}
	d.PhoneE164 = p.normalizePhone(d.PhoneRaw)
	return d
}

// ParsePayment extracts a payment submission. Missing or unparseable attributes stay nil.
func (p *Parser) ParsePayment(pl *Payload) *PaymentData {
	ix := newFieldIndex(pl.Data.Fields)
	d := &PaymentData{
		FormID:         pl.Data.FormID,
		SubmissionID:   pl.Data.Submission(),
		EventID:        extractPtr(ix, p.payment.EventID),
		RegistrationID: extractPtr(ix, p.payment.RegistrationID),
		PhoneRaw:       extractPtr(ix, p.payment.Phone),
		Email:          extractPtr(ix, p.payment.Email),
		Fields:         pl.Data.Fields,
		RawPayload:     pl.Raw,
		BodyHash:       pl.BodyHash,
	}
	d.PhoneE164 = p.normalizePhone(d.PhoneRaw)
	return d
}

func (p *Parser) normalizePhone(raw *string) *string {
	if raw == nil {
		return nil
	}
	if e164, ok := phone.Normalize(*raw, p.region); ok {
		return &e164
	}
	return nil
}

func extractPtr(ix fieldIndex, candidates []string) *string {
	f, ok := ix.lookup(candidates)
	if !ok {
		return nil
	}
	if s, ok := f.Value.Normalize(); ok {
		return &s
	}
	return nil
}

func firstSet(values ...*string) *string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return v
		}
	}
	return nil
}
