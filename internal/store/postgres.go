package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/internal/models"
)

const (
	defaultTxTimeout = 10 * time.Second
	maxTxAttempts    = 3
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is the PostgreSQL-backed store. Units of work run SERIALIZABLE so that two
// payments racing for the same (event, phone) pair cannot both decide on a stale view.
type Postgres struct {
	pool    *pgxpool.Pool
	logger  *zap.Logger
	timeout time.Duration
}

// NewPostgres creates a store on an open pool. The caller owns the pool's lifecycle.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{pool: pool, logger: logger, timeout: defaultTxTimeout}
}

// RunInTx runs fn in a serializable transaction, retrying the whole unit on serialization failures.
func (p *Postgres) RunInTx(ctx context.Context, fn func(st Store) error) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = p.runOnce(ctx, fn)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		p.logger.Warn("transaction serialization failure, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
	return err
}

func (p *Postgres) runOnce(ctx context.Context, fn func(st Store) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// GetRegistration returns a registration outside any unit of work.
func (p *Postgres) GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error) {
	return (&queries{db: p.pool}).GetRegistration(ctx, registrationID)
}

// ListRegistrationsByEvent returns an event's registrations, newest first.
func (p *Postgres) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]*models.Registration, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return collectRegistrations(rows)
}

// ListPaymentAudits returns payment audit records, newest first.
func (p *Postgres) ListPaymentAudits(ctx context.Context, filter PaymentAuditFilter) ([]*models.PaymentAudit, error) {
	q := `SELECT id, arrived_at, submission_id, body_hash, phone, status, recognized FROM payments`
	args := []any{}
	if filter.Recognized != nil {
		args = append(args, *filter.Recognized)
		q += fmt.Sprintf(" WHERE recognized = $%d", len(args))
	}
	args = append(args, filter.limit())
	q += fmt.Sprintf(" ORDER BY arrived_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list payment audits: %w", err)
	}
	defer rows.Close()
	var list []*models.PaymentAudit
	for rows.Next() {
		var rec models.PaymentAudit
		if err := rows.Scan(&rec.ID, &rec.ArrivedAt, &rec.SubmissionID, &rec.BodyHash, &rec.Phone, &rec.Status, &rec.Recognized); err != nil {
			return nil, fmt.Errorf("scan payment audit: %w", err)
		}
		list = append(list, &rec)
	}
	return list, rows.Err()
}

// queries implements Store on a transaction (or the pool for reads).
type queries struct {
	db dbtx
}

const registrationColumns = `registration_id, event_id, email, phone_e164, full_name,
	signup_payload, signup_received_at, paid, paid_at, payment_payload, payment_received_at,
	payment_claimed_registration_id, payment_claimed_phone_e164, payment_link_status, created_at, updated_at`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var (
		reg            models.Registration
		signupPayload  []byte
		paymentPayload []byte
		status         string
	)
	err := row.Scan(&reg.RegistrationID, &reg.EventID, &reg.Email, &reg.PhoneE164, &reg.FullName,
		&signupPayload, &reg.SignupReceivedAt, &reg.Paid, &reg.PaidAt, &paymentPayload, &reg.PaymentReceivedAt,
		&reg.PaymentClaimedRegistrationID, &reg.PaymentClaimedPhoneE164, &status, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	reg.SignupPayload = signupPayload
	reg.PaymentPayload = paymentPayload
	reg.PaymentLinkStatus = models.PaymentLinkStatus(status)
	return &reg, nil
}

func collectRegistrations(rows pgx.Rows) ([]*models.Registration, error) {
	defer rows.Close()
	var list []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

func (q *queries) GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error) {
	row := q.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE registration_id = $1`, registrationID)
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (q *queries) FindRegistrationsByEventAndPhone(ctx context.Context, eventID, phoneE164 string) ([]*models.Registration, error) {
	const sql = `SELECT ` + registrationColumns + ` FROM registrations
		WHERE event_id = $1 AND phone_e164 = $2 ORDER BY registration_id FOR UPDATE`
	rows, err := q.db.Query(ctx, sql, eventID, phoneE164)
	if err != nil {
		return nil, fmt.Errorf("find registrations by phone: %w", err)
	}
	return collectRegistrations(rows)
}

func (q *queries) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	const sql = `INSERT INTO registrations (registration_id, event_id, email, phone_e164, full_name,
		signup_payload, signup_received_at, paid, payment_link_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := q.db.Exec(ctx, sql, reg.RegistrationID, reg.EventID, reg.Email, reg.PhoneE164, reg.FullName,
		nullJSON(reg.SignupPayload), reg.SignupReceivedAt, reg.Paid, string(reg.PaymentLinkStatus), reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRegistration
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (q *queries) UpdateSignup(ctx context.Context, reg *models.Registration) error {
	const sql = `UPDATE registrations SET event_id = $2, email = $3, phone_e164 = $4, full_name = $5,
		signup_payload = $6, signup_received_at = $7, updated_at = $8
		WHERE registration_id = $1`
	tag, err := q.db.Exec(ctx, sql, reg.RegistrationID, reg.EventID, reg.Email, reg.PhoneE164, reg.FullName,
		nullJSON(reg.SignupPayload), reg.SignupReceivedAt, reg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update registration signup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update registration signup: %s not found", reg.RegistrationID)
	}
	return nil
}

func (q *queries) UpdatePayment(ctx context.Context, reg *models.Registration) error {
	const sql = `UPDATE registrations SET paid = $2, paid_at = $3, payment_payload = $4, payment_received_at = $5,
		payment_claimed_registration_id = $6, payment_claimed_phone_e164 = $7, payment_link_status = $8, updated_at = $9
		WHERE registration_id = $1`
	tag, err := q.db.Exec(ctx, sql, reg.RegistrationID, reg.Paid, reg.PaidAt, nullJSON(reg.PaymentPayload), reg.PaymentReceivedAt,
		reg.PaymentClaimedRegistrationID, reg.PaymentClaimedPhoneE164, string(reg.PaymentLinkStatus), reg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update registration payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update registration payment: %s not found", reg.RegistrationID)
	}
	return nil
}

func (q *queries) InsertSignupAudit(ctx context.Context, rec *models.SignupAudit) error {
	const sql = `INSERT INTO signups (received_at, submission_id, body_hash, phone,
		first_name, first_time, age, gender, country, background,
		creative_expression_score, social_anxiety_score, emotional_intuition_score, solitary_preference_score,
		interests_active_outdoors, interests_creativity, interests_intellectual, interests_food_social,
		interests_games, interests_mind_self, mbti, optional_note, profile_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id`
	f := rec.FormFields
	err := q.db.QueryRow(ctx, sql, rec.ReceivedAt, rec.SubmissionID, rec.BodyHash, rec.Phone,
		f.FirstName, f.FirstTime, f.Age, f.Gender, f.Country, f.Background,
		f.CreativeExpressionScore, f.SocialAnxietyScore, f.EmotionalIntuitionScore, f.SolitaryPreferenceScore,
		f.InterestsActiveOutdoors, f.InterestsCreativity, f.InterestsIntellectual, f.InterestsFoodSocial,
		f.InterestsGames, f.InterestsMindSelf, f.MBTI, f.OptionalNote, f.Phone).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert signup audit: %w", err)
	}
	return nil
}

func (q *queries) InsertPaymentAudit(ctx context.Context, rec *models.PaymentAudit) error {
	const sql = `INSERT INTO payments (arrived_at, submission_id, body_hash, phone, status, recognized)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := q.db.QueryRow(ctx, sql, rec.ArrivedAt, rec.SubmissionID, rec.BodyHash, rec.Phone, rec.Status, rec.Recognized).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert payment audit: %w", err)
	}
	return nil
}

func (q *queries) SignupPhoneExists(ctx context.Context, phone string) (bool, error) {
	if strings.TrimSpace(phone) == "" {
		return false, nil
	}
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM signups WHERE phone = $1)`, phone).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check signup phone: %w", err)
	}
	return exists, nil
}

// nullJSON maps an empty payload to SQL NULL rather than an invalid empty jsonb.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

var (
	_ Store    = (*queries)(nil)
	_ TxRunner = (*Postgres)(nil)
	_ Reader   = (*Postgres)(nil)
)
