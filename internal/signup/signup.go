// Package signup creates and updates registrations from signup submissions.
package signup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/internal/audit"
	"github.com/stranger-beers/ingestion/internal/models"
	"github.com/stranger-beers/ingestion/internal/tally"
)

// Store is what the reconciler needs from the unit of work.
type Store interface {
	audit.Store
	GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error)
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	UpdateSignup(ctx context.Context, reg *models.Registration) error
}

// Result is the outcome of reconciling one signup.
type Result struct {
	RegistrationID string
	EventID        string
	IsNew          bool
}

// Reconciler upserts registrations from parsed signups.
type Reconciler struct {
	audit  *audit.Logger
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewReconciler creates a reconciler writing signup audits through auditLog.
func NewReconciler(auditLog *audit.Logger, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		audit:  auditLog,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
}

// Reconcile creates the registration or overwrites its signup side. Payment fields are never touched.
// A signup audit record is appended in every case.
func (r *Reconciler) Reconcile(ctx context.Context, st Store, d *tally.SignupData) (*Result, error) {
	registrationID := deref(d.RegistrationID)
	if registrationID == "" {
		registrationID = "REG-" + r.shortID(12)
		r.logger.Info("generated registration id", zap.String("registration_id", registrationID))
	}
	eventID := deref(d.EventID)
	if eventID == "" {
		eventID = "EVT-" + r.shortID(8)
		r.logger.Info("generated event id", zap.String("event_id", eventID))
	}

	existing, err := st.GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("reconcile signup: %w", err)
	}

	now := r.now()
	res := &Result{RegistrationID: registrationID, EventID: eventID, IsNew: existing == nil}
	if existing != nil {
		existing.EventID = eventID
		existing.Email = d.Email
		existing.PhoneE164 = d.PhoneE164
		existing.FullName = d.FullName
		existing.SignupPayload = d.RawPayload
		existing.SignupReceivedAt = &now
		existing.UpdatedAt = now
		if err := st.UpdateSignup(ctx, existing); err != nil {
			return nil, fmt.Errorf("reconcile signup: %w", err)
		}
		r.logger.Info("registration updated", zap.String("registration_id", registrationID), zap.String("event_id", eventID))
	} else {
		reg := &models.Registration{
			RegistrationID:    registrationID,
			EventID:           eventID,
			Email:             d.Email,
			PhoneE164:         d.PhoneE164,
			FullName:          d.FullName,
			SignupPayload:     d.RawPayload,
			SignupReceivedAt:  &now,
			Paid:              false,
			PaymentLinkStatus: models.LinkStatusUnpaid,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := st.CreateRegistration(ctx, reg); err != nil {
			return nil, fmt.Errorf("reconcile signup: %w", err)
		}
		r.logger.Info("registration created", zap.String("registration_id", registrationID), zap.String("event_id", eventID))
	}

	if _, err := r.audit.Signup(ctx, st, d); err != nil {
		return nil, err
	}
	return res, nil
}

// shortID returns the first n upper-case hex digits of a random UUID.
func (r *Reconciler) shortID(n int) string {
	hex := strings.ReplaceAll(r.newID(), "-", "")
	if len(hex) > n {
		hex = hex[:n]
	}
	return strings.ToUpper(hex)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
