// Package store is the durable store behind webhook processing. Every webhook runs
// as one unit of work through TxRunner; reads for admin endpoints go through Reader.
package store

import (
	"context"
	"errors"

	"github.com/stranger-beers/ingestion/internal/models"
)

// ErrDuplicateRegistration is returned when creating a registration whose id already exists.
var ErrDuplicateRegistration = errors.New("registration already exists")

// Store is the view of the durable store available inside one unit of work.
type Store interface {
	// GetRegistration returns nil, nil when no registration has the id.
	GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error)
	// FindRegistrationsByEventAndPhone returns every registration with exactly this pair, locking them for the unit of work.
	FindRegistrationsByEventAndPhone(ctx context.Context, eventID, phoneE164 string) ([]*models.Registration, error)
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	// UpdateSignup writes contact, event and signup payload columns only.
	UpdateSignup(ctx context.Context, reg *models.Registration) error
	// UpdatePayment writes payment columns only.
	UpdatePayment(ctx context.Context, reg *models.Registration) error

	InsertSignupAudit(ctx context.Context, rec *models.SignupAudit) error
	InsertPaymentAudit(ctx context.Context, rec *models.PaymentAudit) error
	// SignupPhoneExists reports whether any signup audit record carries phone.
	SignupPhoneExists(ctx context.Context, phone string) (bool, error)
}

// TxRunner runs fn as one atomic unit of work. If fn returns an error nothing it wrote is kept.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(st Store) error) error
}

// PaymentAuditFilter narrows ListPaymentAudits.
type PaymentAuditFilter struct {
	Recognized *bool
	Limit      int
}

// DefaultAuditLimit caps audit listings when no limit is given.
const DefaultAuditLimit = 100

func (f PaymentAuditFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return DefaultAuditLimit
	}
	return f.Limit
}

// Reader serves read-only queries outside webhook processing.
type Reader interface {
	GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error)
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]*models.Registration, error)
	ListPaymentAudits(ctx context.Context, filter PaymentAuditFilter) ([]*models.PaymentAudit, error)
}
