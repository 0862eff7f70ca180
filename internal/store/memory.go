package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/stranger-beers/ingestion/internal/models"
)

// Memory is an in-process store. RunInTx serializes units of work behind one mutex and
// applies a unit's writes only when it returns nil, so the atomicity and race guarantees
// match the PostgreSQL store. Data is lost on restart.
type Memory struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	registrations map[string]*models.Registration
	signups       []models.SignupAudit
	payments      []models.PaymentAudit
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: &memState{registrations: map[string]*models.Registration{}}}
}

func (s *memState) clone() *memState {
	c := &memState{
		registrations: make(map[string]*models.Registration, len(s.registrations)),
		signups:       append([]models.SignupAudit(nil), s.signups...),
		payments:      append([]models.PaymentAudit(nil), s.payments...),
	}
	for id, reg := range s.registrations {
		c.registrations[id] = reg.Clone()
	}
	return c
}

// RunInTx runs fn against a private copy of the state and swaps it in on success.
func (m *Memory) RunInTx(ctx context.Context, fn func(st Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(&memTx{state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// GetRegistration returns a copy of the registration, or nil when unknown.
func (m *Memory) GetRegistration(_ context.Context, registrationID string) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.registrations[registrationID].Clone(), nil
}

// ListRegistrationsByEvent returns an event's registrations, newest first.
func (m *Memory) ListRegistrationsByEvent(_ context.Context, eventID string) ([]*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*models.Registration
	for _, reg := range m.state.registrations {
		if reg.EventID == eventID {
			list = append(list, reg.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].RegistrationID < list[j].RegistrationID
	})
	return list, nil
}

// ListPaymentAudits returns payment audit records, newest first.
func (m *Memory) ListPaymentAudits(_ context.Context, filter PaymentAuditFilter) ([]*models.PaymentAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit := filter.limit()
	var list []*models.PaymentAudit
	for i := len(m.state.payments) - 1; i >= 0 && len(list) < limit; i-- {
		rec := m.state.payments[i]
		if filter.Recognized != nil && rec.Recognized != *filter.Recognized {
			continue
		}
		list = append(list, &rec)
	}
	return list, nil
}

// SignupAudits returns a snapshot of every signup audit record in insertion order.
func (m *Memory) SignupAudits() []models.SignupAudit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SignupAudit(nil), m.state.signups...)
}

// PaymentAudits returns a snapshot of every payment audit record in insertion order.
func (m *Memory) PaymentAudits() []models.PaymentAudit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PaymentAudit(nil), m.state.payments...)
}

// RegistrationCount returns how many registrations exist.
func (m *Memory) RegistrationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.registrations)
}

type memTx struct {
	state *memState
}

func (t *memTx) GetRegistration(_ context.Context, registrationID string) (*models.Registration, error) {
	return t.state.registrations[registrationID].Clone(), nil
}

func (t *memTx) FindRegistrationsByEventAndPhone(_ context.Context, eventID, phoneE164 string) ([]*models.Registration, error) {
	var list []*models.Registration
	for _, reg := range t.state.registrations {
		if reg.EventID == eventID && reg.PhoneE164 != nil && *reg.PhoneE164 == phoneE164 {
			list = append(list, reg.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RegistrationID < list[j].RegistrationID })
	return list, nil
}

func (t *memTx) CreateRegistration(_ context.Context, reg *models.Registration) error {
	if _, ok := t.state.registrations[reg.RegistrationID]; ok {
		return ErrDuplicateRegistration
	}
	t.state.registrations[reg.RegistrationID] = reg.Clone()
	return nil
}

func (t *memTx) UpdateSignup(_ context.Context, reg *models.Registration) error {
	cur, ok := t.state.registrations[reg.RegistrationID]
	if !ok {
		return errNotFound(reg.RegistrationID)
	}
	in := reg.Clone()
	cur.EventID = in.EventID
	cur.Email = in.Email
	cur.PhoneE164 = in.PhoneE164
	cur.FullName = in.FullName
	cur.SignupPayload = in.SignupPayload
	cur.SignupReceivedAt = in.SignupReceivedAt
	cur.UpdatedAt = in.UpdatedAt
	return nil
}

func (t *memTx) UpdatePayment(_ context.Context, reg *models.Registration) error {
	cur, ok := t.state.registrations[reg.RegistrationID]
	if !ok {
		return errNotFound(reg.RegistrationID)
	}
	in := reg.Clone()
	cur.Paid = in.Paid
	cur.PaidAt = in.PaidAt
	cur.PaymentPayload = in.PaymentPayload
	cur.PaymentReceivedAt = in.PaymentReceivedAt
	cur.PaymentClaimedRegistrationID = in.PaymentClaimedRegistrationID
	cur.PaymentClaimedPhoneE164 = in.PaymentClaimedPhoneE164
	cur.PaymentLinkStatus = in.PaymentLinkStatus
	cur.UpdatedAt = in.UpdatedAt
	return nil
}

func (t *memTx) InsertSignupAudit(_ context.Context, rec *models.SignupAudit) error {
	rec.ID = int64(len(t.state.signups) + 1)
	t.state.signups = append(t.state.signups, *rec)
	return nil
}

func (t *memTx) InsertPaymentAudit(_ context.Context, rec *models.PaymentAudit) error {
	rec.ID = int64(len(t.state.payments) + 1)
	t.state.payments = append(t.state.payments, *rec)
	return nil
}

func (t *memTx) SignupPhoneExists(_ context.Context, phone string) (bool, error) {
	if strings.TrimSpace(phone) == "" {
		return false, nil
	}
	for _, rec := range t.state.signups {
		if rec.Phone != nil && *rec.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func errNotFound(id string) error {
	return &notFoundError{id: id}
}

type notFoundError struct{ id string }

func (e *notFoundError) Error() string { return "registration " + e.id + " not found" }

var (
	_ Store    = (*memTx)(nil)
	_ TxRunner = (*Memory)(nil)
	_ Reader   = (*Memory)(nil)
)
