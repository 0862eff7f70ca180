package models

import (
	"encoding/json"
	"time"
)

// PaymentLinkStatus records how (or whether) a payment was linked to a registration.
type PaymentLinkStatus string

const (
	LinkStatusUnpaid                  PaymentLinkStatus = "unpaid"
	LinkStatusMatchedByRegistrationID PaymentLinkStatus = "matched_by_registration_id"
	LinkStatusMatchedByPhone          PaymentLinkStatus = "matched_by_phone"
	LinkStatusOrphanPayment           PaymentLinkStatus = "orphan_payment"
	LinkStatusAmbiguousPhoneMatch     PaymentLinkStatus = "ambiguous_phone_match"
)

// Matched reports whether s settles a registration. Only matched statuses may accompany paid=true.
func (s PaymentLinkStatus) Matched() bool {
	return s == LinkStatusMatchedByRegistrationID || s == LinkStatusMatchedByPhone
}

// Emergency reports whether s needs a human to reconcile the payment.
func (s PaymentLinkStatus) Emergency() bool {
	return s == LinkStatusOrphanPayment || s == LinkStatusAmbiguousPhoneMatch
}

// Registration is an attendee registration for an event, created by the signup form
// and settled by the payment form.
type Registration struct {
	RegistrationID string  `json:"registration_id"`
	EventID        string  `json:"event_id"`
	Email          *string `json:"email,omitempty"`
	PhoneE164      *string `json:"phone_e164,omitempty"`
	FullName       *string `json:"full_name,omitempty"`

	SignupPayload    json.RawMessage `json:"signup_payload,omitempty"`
	SignupReceivedAt *time.Time      `json:"signup_received_at,omitempty"`

	Paid              bool            `json:"paid"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	PaymentPayload    json.RawMessage `json:"payment_payload,omitempty"`
	PaymentReceivedAt *time.Time      `json:"payment_received_at,omitempty"`

	// What the payment form claimed, kept verbatim even when it did not match.
	PaymentClaimedRegistrationID *string           `json:"payment_claimed_registration_id,omitempty"`
	PaymentClaimedPhoneE164      *string           `json:"payment_claimed_phone_e164,omitempty"`
	PaymentLinkStatus            PaymentLinkStatus `json:"payment_link_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of r.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	c := *r
	c.Email = cloneString(r.Email)
	c.PhoneE164 = cloneString(r.PhoneE164)
	c.FullName = cloneString(r.FullName)
	c.SignupPayload = cloneRaw(r.SignupPayload)
	c.PaymentPayload = cloneRaw(r.PaymentPayload)
	c.SignupReceivedAt = cloneTime(r.SignupReceivedAt)
	c.PaidAt = cloneTime(r.PaidAt)
	c.PaymentReceivedAt = cloneTime(r.PaymentReceivedAt)
	c.PaymentClaimedRegistrationID = cloneString(r.PaymentClaimedRegistrationID)
	c.PaymentClaimedPhoneE164 = cloneString(r.PaymentClaimedPhoneE164)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}
