// Package payment links payment submissions to registrations.
//
// Decision order, first applicable branch wins:
//
//  1. registration id present and known: matched_by_registration_id
//  2. event id and canonical phone present: exactly one registration with that pair is
//     matched_by_phone, none is orphan_payment, several is ambiguous_phone_match
//  3. anything else: orphan_payment
//
// Orphan and ambiguous outcomes are emergencies. They are recorded and reported as
// successful processing, and no registration is touched. A payment with neither a
// registration id nor a canonical phone is rejected before any lookup and leaves no audit record.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/internal/audit"
	"github.com/stranger-beers/ingestion/internal/models"
	"github.com/stranger-beers/ingestion/internal/tally"
)

// ErrNoIdentifiers marks a payment that carries neither a registration id nor a usable phone.
var ErrNoIdentifiers = errors.New("payment has neither registration_id nor valid phone number")

// Messages reported with emergencies.
const (
	MessageOrphan = "No matching registration found for payment"
)

// Store is what the matcher needs from the unit of work.
type Store interface {
	audit.Store
	GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error)
	FindRegistrationsByEventAndPhone(ctx context.Context, eventID, phoneE164 string) ([]*models.Registration, error)
	UpdatePayment(ctx context.Context, reg *models.Registration) error
}

// Result is the outcome of matching one payment.
type Result struct {
	Success        bool
	RegistrationID *string
	LinkStatus     models.PaymentLinkStatus
	IsEmergency    bool
	Message        string
	// Audit is the payment audit record written, nil for rejected payments.
	Audit *models.PaymentAudit
}

// Matcher runs the payment matching state machine.
type Matcher struct {
	audit  *audit.Logger
	logger *zap.Logger
	now    func() time.Time
}

// NewMatcher creates a matcher writing payment audits through auditLog.
func NewMatcher(auditLog *audit.Logger, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{audit: auditLog, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Match links d to at most one registration. A rejected payment returns Success=false and a nil error;
// errors are reserved for store failures, after which the unit of work must be rolled back.
func (m *Matcher) Match(ctx context.Context, st Store, d *tally.PaymentData) (*Result, error) {
	registrationID := trimmed(d.RegistrationID)
	phone := trimmed(d.PhoneE164)
	eventID := trimmed(d.EventID)

	if registrationID == "" && phone == "" {
		m.logger.Warn("payment rejected", zap.Error(ErrNoIdentifiers), zap.Stringp("submission_id", d.SubmissionID))
		return &Result{Success: false, Message: ErrNoIdentifiers.Error()}, nil
	}

	if registrationID != "" {
		reg, err := st.GetRegistration(ctx, registrationID)
		if err != nil {
			return nil, fmt.Errorf("match payment: %w", err)
		}
		if reg != nil {
			return m.settle(ctx, st, d, reg, models.LinkStatusMatchedByRegistrationID)
		}
	}

	if eventID != "" && phone != "" {
		matches, err := st.FindRegistrationsByEventAndPhone(ctx, eventID, phone)
		if err != nil {
			return nil, fmt.Errorf("match payment: %w", err)
		}
		switch len(matches) {
		case 1:
			return m.settle(ctx, st, d, matches[0], models.LinkStatusMatchedByPhone)
		case 0:
		default:
			ids := make([]string, 0, len(matches))
			for _, reg := range matches {
				ids = append(ids, reg.RegistrationID)
			}
			m.logger.Error("EMERGENCY: ambiguous phone match",
				zap.String("phone", phone),
				zap.String("event_id", eventID),
				zap.Strings("registration_ids", ids),
			)
			msg := fmt.Sprintf("Multiple registrations (%d) found for phone %s", len(matches), phone)
			return m.emergency(ctx, st, d, models.LinkStatusAmbiguousPhoneMatch, msg)
		}
	}

	m.logger.Error("EMERGENCY: orphan payment",
		zap.String("registration_id", registrationID),
		zap.String("phone", phone),
		zap.String("event_id", eventID),
	)
	return m.emergency(ctx, st, d, models.LinkStatusOrphanPayment, MessageOrphan)
}

func (m *Matcher) settle(ctx context.Context, st Store, d *tally.PaymentData, reg *models.Registration, status models.PaymentLinkStatus) (*Result, error) {
	now := m.now()
	reg.Paid = true
	reg.PaidAt = &now
	reg.PaymentPayload = d.RawPayload
	reg.PaymentReceivedAt = &now
	reg.PaymentClaimedRegistrationID = d.RegistrationID
	reg.PaymentClaimedPhoneE164 = d.PhoneE164
	reg.PaymentLinkStatus = status
	reg.UpdatedAt = now
	if err := st.UpdatePayment(ctx, reg); err != nil {
		return nil, fmt.Errorf("match payment: %w", err)
	}

	rec, err := m.audit.Payment(ctx, st, d)
	if err != nil {
		return nil, err
	}
	m.logger.Info("payment matched",
		zap.String("registration_id", reg.RegistrationID),
		zap.String("link_status", string(status)),
	)
	id := reg.RegistrationID
	return &Result{Success: true, RegistrationID: &id, LinkStatus: status, Audit: rec}, nil
}

func (m *Matcher) emergency(ctx context.Context, st Store, d *tally.PaymentData, status models.PaymentLinkStatus, msg string) (*Result, error) {
	rec, err := m.audit.Payment(ctx, st, d)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, LinkStatus: status, IsEmergency: true, Message: msg, Audit: rec}, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
