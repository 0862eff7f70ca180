// Package audit appends one immutable record per processed submission.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/internal/models"
	"github.com/stranger-beers/ingestion/internal/tally"
)

// DefaultStatusLabel is the label phrase of the payment form's completion question.
const DefaultStatusLabel = "All done"

// Store is what the audit logger needs from the unit of work.
type Store interface {
	InsertSignupAudit(ctx context.Context, rec *models.SignupAudit) error
	InsertPaymentAudit(ctx context.Context, rec *models.PaymentAudit) error
	SignupPhoneExists(ctx context.Context, phone string) (bool, error)
}

// Logger writes signup and payment audit records.
type Logger struct {
	statusLabel string
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// NewLogger creates an audit logger. An empty statusLabel uses DefaultStatusLabel.
func NewLogger(statusLabel string, logger *zap.Logger, opts ...Option) *Logger {
	if strings.TrimSpace(statusLabel) == "" {
		statusLabel = DefaultStatusLabel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Logger{statusLabel: statusLabel, now: func() time.Time { return time.Now().UTC() }, logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Signup records a processed signup with its full profile.
func (l *Logger) Signup(ctx context.Context, st Store, d *tally.SignupData) (*models.SignupAudit, error) {
	rec := &models.SignupAudit{
		ReceivedAt:   l.now(),
		SubmissionID: d.SubmissionID,
		BodyHash:     d.BodyHash,
		Phone:        d.AuditPhone(),
		FormFields:   d.FormFields,
	}
	if err := st.InsertSignupAudit(ctx, rec); err != nil {
		return nil, fmt.Errorf("audit signup: %w", err)
	}
	return rec, nil
}

// Payment records a processed payment. Recognized is set when its phone appears in any signup record.
func (l *Logger) Payment(ctx context.Context, st Store, d *tally.PaymentData) (*models.PaymentAudit, error) {
	rec := &models.PaymentAudit{
		ArrivedAt:    l.now(),
		SubmissionID: d.SubmissionID,
		BodyHash:     d.BodyHash,
		Phone:        d.AuditPhone(),
		Status:       PaymentStatus(d.Fields, l.statusLabel),
	}
	if rec.Phone != nil {
		recognized, err := st.SignupPhoneExists(ctx, *rec.Phone)
		if err != nil {
			return nil, fmt.Errorf("audit payment: %w", err)
		}
		rec.Recognized = recognized
	}
	if err := st.InsertPaymentAudit(ctx, rec); err != nil {
		return nil, fmt.Errorf("audit payment: %w", err)
	}
	l.logger.Debug("payment audited",
		zap.Int64("audit_id", rec.ID),
		zap.Bool("recognized", rec.Recognized),
	)
	return rec, nil
}

// PaymentStatus returns the choice-resolved value of the first field whose label contains phrase.
func PaymentStatus(fields []tally.Field, phrase string) *string {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return nil
	}
	for _, f := range fields {
		if !strings.Contains(strings.ToLower(f.Label), phrase) {
			continue
		}
		if s, ok := tally.ResolveChoice(f); ok {
			return &s
		}
		return nil
	}
	return nil
}
