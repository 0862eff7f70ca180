//go:build integration

package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"

	"github.com/stranger-beers/ingestion/internal/audit"
	"github.com/stranger-beers/ingestion/internal/models"
	"github.com/stranger-beers/ingestion/internal/payment"
	"github.com/stranger-beers/ingestion/internal/signup"
	"github.com/stranger-beers/ingestion/internal/store"
	"github.com/stranger-beers/ingestion/internal/tally"
	"github.com/stranger-beers/ingestion/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	store    *store.Postgres
	signups  *signup.Reconciler
	payments *payment.Matcher
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.pg.Pool, nil)
	auditLog := audit.NewLogger(audit.DefaultStatusLabel, nil)
	s.signups = signup.NewReconciler(auditLog, nil)
	s.payments = payment.NewMatcher(auditLog, nil)
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "registrations", "signups", "payments"))
}

func strp(v string) *string { return &v }

func (s *PostgresSuite) signup(regID, eventID, phone string) *signup.Result {
	ctx := context.Background()
	var res *signup.Result
	err := s.store.RunInTx(ctx, func(st store.Store) error {
		var err error
		res, err = s.signups.Reconcile(ctx, st, &tally.SignupData{
			FormID:         "wMz1",
			RegistrationID: strp(regID),
			EventID:        strp(eventID),
			PhoneRaw:       strp(phone),
			PhoneE164:      strp(phone),
			FormFields:     models.FormFields{FirstName: strp("Ada"), Phone: strp(phone)},
			RawPayload:     json.RawMessage(`{"data":{"formId":"wMz1"}}`),
			BodyHash:       "signup-" + regID,
		})
		return err
	})
	s.Require().NoError(err)
	return res
}

func (s *PostgresSuite) pay(d *tally.PaymentData) (*payment.Result, error) {
	ctx := context.Background()
	if d.RawPayload == nil {
		d.RawPayload = json.RawMessage(`{"data":{"formId":"nP9q"}}`)
	}
	var res *payment.Result
	err := s.store.RunInTx(ctx, func(st store.Store) error {
		var err error
		res, err = s.payments.Match(ctx, st, d)
		return err
	})
	return res, err
}

func (s *PostgresSuite) TestSignupCreateThenUpdate() {
	ctx := context.Background()
	first := s.signup("REG-A", "EVT-1", "+31612345678")
	s.True(first.IsNew)

	second := s.signup("REG-A", "EVT-1", "+31687654321")
	s.False(second.IsNew)

	reg, err := s.store.GetRegistration(ctx, "REG-A")
	s.Require().NoError(err)
	s.Require().NotNil(reg)
	s.Equal("+31687654321", *reg.PhoneE164)
	s.Equal(models.LinkStatusUnpaid, reg.PaymentLinkStatus)
	s.JSONEq(`{"data":{"formId":"wMz1"}}`, string(reg.SignupPayload))

	missing, err := s.store.GetRegistration(ctx, "REG-NOPE")
	s.NoError(err)
	s.Nil(missing)
}

func (s *PostgresSuite) TestPaymentByRegistrationIDThenSignupKeepsPayment() {
	ctx := context.Background()
	s.signup("REG-A", "EVT-1", "+31612345678")

	res, err := s.pay(&tally.PaymentData{FormID: "nP9q", RegistrationID: strp("REG-A"), BodyHash: "p1"})
	s.Require().NoError(err)
	s.True(res.Success)
	s.Equal(models.LinkStatusMatchedByRegistrationID, res.LinkStatus)

	s.signup("REG-A", "EVT-1", "+31612345678")
	reg, err := s.store.GetRegistration(ctx, "REG-A")
	s.Require().NoError(err)
	s.True(reg.Paid)
	s.NotNil(reg.PaidAt)
	s.Equal(models.LinkStatusMatchedByRegistrationID, reg.PaymentLinkStatus)
}

func (s *PostgresSuite) TestAmbiguousPhoneLeavesRegistrationsUnpaid() {
	ctx := context.Background()
	s.signup("REG-A", "EVT-1", "+31612345678")
	s.signup("REG-B", "EVT-1", "+31612345678")

	res, err := s.pay(&tally.PaymentData{FormID: "nP9q", EventID: strp("EVT-1"), PhoneE164: strp("+31612345678"), BodyHash: "p1"})
	s.Require().NoError(err)
	s.True(res.IsEmergency)
	s.Equal(models.LinkStatusAmbiguousPhoneMatch, res.LinkStatus)

	regs, err := s.store.ListRegistrationsByEvent(ctx, "EVT-1")
	s.Require().NoError(err)
	s.Len(regs, 2)
	for _, r := range regs {
		s.False(r.Paid)
		s.Equal(models.LinkStatusUnpaid, r.PaymentLinkStatus)
	}
}

func (s *PostgresSuite) TestOrphanPaymentAuditIsRecognized() {
	ctx := context.Background()
	s.signup("REG-A", "EVT-1", "+31612345678")

	res, err := s.pay(&tally.PaymentData{FormID: "nP9q", EventID: strp("EVT-2"), PhoneE164: strp("+31612345678"), BodyHash: "p1"})
	s.Require().NoError(err)
	s.Equal(models.LinkStatusOrphanPayment, res.LinkStatus)
	s.Require().NotNil(res.Audit)
	s.True(res.Audit.Recognized)

	recognized := true
	audits, err := s.store.ListPaymentAudits(ctx, store.PaymentAuditFilter{Recognized: &recognized})
	s.Require().NoError(err)
	s.Require().Len(audits, 1)
	s.Equal("p1", audits[0].BodyHash)
}

func (s *PostgresSuite) TestDuplicateRegistrationIsTyped() {
	ctx := context.Background()
	s.signup("REG-A", "EVT-1", "+31612345678")

	err := s.store.RunInTx(ctx, func(st store.Store) error {
		reg, err := st.GetRegistration(ctx, "REG-A")
		if err != nil {
			return err
		}
		return st.CreateRegistration(ctx, reg)
	})
	s.ErrorIs(err, store.ErrDuplicateRegistration)
}

func (s *PostgresSuite) TestConcurrentPaymentsKeepPaidImpliesMatched() {
	ctx := context.Background()
	s.signup("REG-A", "EVT-1", "+31612345678")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := &tally.PaymentData{FormID: "nP9q", BodyHash: "concurrent"}
			if i%2 == 0 {
				d.RegistrationID = strp("REG-A")
			} else {
				d.EventID = strp("EVT-1")
				d.PhoneE164 = strp("+31612345678")
			}
			res, err := s.pay(d)
			if err != nil {
				var pgErr *pgconn.PgError
				s.True(errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01"), "unexpected error: %v", err)
				return
			}
			s.True(res.Success)
			mu.Lock()
			succeeded++
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	s.Positive(succeeded)

	reg, err := s.store.GetRegistration(ctx, "REG-A")
	s.Require().NoError(err)
	s.True(reg.Paid)
	s.True(reg.PaymentLinkStatus.Matched())

	audits, err := s.store.ListPaymentAudits(ctx, store.PaymentAuditFilter{})
	s.Require().NoError(err)
	s.Len(audits, succeeded)
}
