package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stranger-beers/ingestion/internal/models"
	"github.com/stranger-beers/ingestion/internal/store"
	"github.com/stranger-beers/ingestion/internal/tally"
)

func strp(s string) *string { return &s }

var fixedNow = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

func newTestLogger() *Logger {
	return NewLogger("", nil, WithClock(func() time.Time { return fixedNow }))
}

func TestSignupAuditRecordsProfile(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	l := newTestLogger()

	d := &tally.SignupData{
		SubmissionID: strp("sub-1"),
		PhoneRaw:     strp("06 12345678"),
		PhoneE164:    strp("+31612345678"),
		BodyHash:     "abc",
		FormFields:   models.FormFields{FirstName: strp("Ada"), MBTI: strp("INTJ")},
	}
	require.NoError(t, mem.RunInTx(ctx, func(st store.Store) error {
		rec, err := l.Signup(ctx, st, d)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.ID)
		return nil
	}))

	recs := mem.SignupAudits()
	require.Len(t, recs, 1)
	assert.Equal(t, fixedNow, recs[0].ReceivedAt)
	assert.Equal(t, "+31612345678", *recs[0].Phone)
	assert.Equal(t, "Ada", *recs[0].FirstName)
	assert.Equal(t, "INTJ", *recs[0].MBTI)
	assert.Equal(t, "abc", recs[0].BodyHash)
}

func TestSignupAuditFallsBackToRawPhone(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.RunInTx(ctx, func(st store.Store) error {
		_, err := newTestLogger().Signup(ctx, st, &tally.SignupData{PhoneRaw: strp("12345")})
		return err
	}))
	assert.Equal(t, "12345", *mem.SignupAudits()[0].Phone)
}

func TestPaymentAuditRecognized(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	l := newTestLogger()

	require.NoError(t, mem.RunInTx(ctx, func(st store.Store) error {
		_, err := l.Signup(ctx, st, &tally.SignupData{PhoneE164: strp("+14155551234")})
		return err
	}))

	cases := []struct {
		name       string
		data       *tally.PaymentData
		recognized bool
	}{
		{"canonical phone seen at signup", &tally.PaymentData{PhoneE164: strp("+14155551234")}, true},
		{"unknown phone", &tally.PaymentData{PhoneE164: strp("+14155550000")}, false},
		{"raw fallback unknown", &tally.PaymentData{PhoneRaw: strp("555")}, false},
		{"no phone", &tally.PaymentData{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, mem.RunInTx(ctx, func(st store.Store) error {
				rec, err := l.Payment(ctx, st, tc.data)
				require.NoError(t, err)
				assert.Equal(t, tc.recognized, rec.Recognized)
				return nil
			}))
		})
	}
	assert.Len(t, mem.PaymentAudits(), len(cases))
}

func TestPaymentStatus(t *testing.T) {
	fields := []tally.Field{
		{Key: "q1", Label: "Phone", Value: tally.String("+1")},
		{
			Key:   "q2",
			Label: "All done? Transfer the fee",
			Type:  tally.TypeCheckboxes,
			Value: tally.Strings("opt-a"),
			Options: []tally.Option{
				{ID: tally.String("opt-a"), Text: "Yes, I paid"},
			},
		},
		{Key: "q3", Label: "all done again", Value: tally.String("second")},
	}

	got := PaymentStatus(fields, DefaultStatusLabel)
	require.NotNil(t, got)
	assert.Equal(t, "Yes, I paid", *got)

	assert.Nil(t, PaymentStatus(fields, "missing phrase"))
	assert.Nil(t, PaymentStatus(fields, ""))

	empty := []tally.Field{{Label: "All done?", Value: tally.String("  ")}}
	assert.Nil(t, PaymentStatus(empty, DefaultStatusLabel))

	plain := []tally.Field{{Label: "All done?", Value: tally.String("paid via tikkie")}}
	assert.Equal(t, "paid via tikkie", *PaymentStatus(plain, "all DONE"))
}

func TestPaymentAuditStoresStatus(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	l := NewLogger("Paid?", nil)
	d := &tally.PaymentData{
		BodyHash: "h",
		Fields:   []tally.Field{{Label: "Paid?", Value: tally.String("yes")}},
	}
	require.NoError(t, mem.RunInTx(ctx, func(st store.Store) error {
		_, err := l.Payment(ctx, st, d)
		return err
	}))
	recs := mem.PaymentAudits()
	require.Len(t, recs, 1)
	assert.Equal(t, "yes", *recs[0].Status)
	assert.False(t, recs[0].ArrivedAt.IsZero())
}
