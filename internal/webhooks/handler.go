// Package webhooks receives Tally form submissions.
package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/internal/payment"
	"github.com/stranger-beers/ingestion/internal/signup"
	"github.com/stranger-beers/ingestion/internal/store"
	"github.com/stranger-beers/ingestion/internal/tally"
	"github.com/stranger-beers/ingestion/pkg/queue"
	"github.com/stranger-beers/ingestion/pkg/response"
)

// DefaultMaxBodyBytes caps webhook bodies.
const DefaultMaxBodyBytes = 1 << 20

// dispatchTimeout bounds post-commit enqueues, which outlive the request context.
const dispatchTimeout = 5 * time.Second

// StatusReceived is the status of every accepted submission.
const StatusReceived = "received"

// Dispatcher hands work to the background worker once a submission is committed.
type Dispatcher interface {
	EnqueueEmergencyAlert(ctx context.Context, payload queue.EmergencyAlertPayload) error
	EnqueuePayloadArchive(ctx context.Context, payload queue.PayloadArchivePayload) error
}

// Options wires the handler's collaborators. Jobs may be nil, in which case nothing is dispatched.
type Options struct {
	Forms           tally.Forms
	SignatureHeader string
	MaxBodyBytes    int64
	Verifier        *tally.Verifier
	Parser          *tally.Parser
	Signups         *signup.Reconciler
	Payments        *payment.Matcher
	Jobs            Dispatcher
}

// Response is the body of an accepted submission.
type Response struct {
	Status         string  `json:"status"`
	FormType       string  `json:"form_type"`
	RegistrationID *string `json:"registration_id,omitempty"`
	LinkStatus     *string `json:"link_status,omitempty"`
	IsEmergency    bool    `json:"is_emergency"`
	Message        string  `json:"message,omitempty"`
}

// Handler handles POST /webhooks/tally.
type Handler struct {
	tx     store.TxRunner
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a webhook handler. Every submission runs as one unit of work on tx.
func NewHandler(tx store.TxRunner, opts Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SignatureHeader == "" {
		opts.SignatureHeader = "tally-signature"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{tx: tx, opts: opts, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// RegisterRoutes mounts the webhook endpoint on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/webhooks/tally", h.Tally)
}

// Tally verifies, parses and processes one submission. The signature is checked against the raw
// body before anything is persisted.
func (h *Handler) Tally(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxBodyBytes))
	if err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	payload, err := tally.Decode(body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	kind, ok := h.opts.Forms.Resolve(payload.Data.FormID)
	if !ok {
		h.logger.Warn("unknown form id", zap.String("form_id", payload.Data.FormID))
		response.BadRequest(c, "unknown form id: "+payload.Data.FormID)
		return
	}

	if err := h.opts.Verifier.Verify(body, c.GetHeader(h.opts.SignatureHeader), kind); err != nil {
		if errors.Is(err, tally.ErrMisconfiguredSecret) {
			h.logger.Error("webhook signature secret missing", zap.String("form_type", string(kind)), zap.Error(err))
			response.Unauthorized(c, "signature verification misconfigured")
			return
		}
		h.logger.Warn("webhook signature rejected", zap.String("form_type", string(kind)), zap.Error(err))
		response.Unauthorized(c, err.Error())
		return
	}

	receivedAt := h.now()
	var accepted bool
	switch kind {
	case tally.FormSignup:
		accepted = h.signup(c, payload)
	case tally.FormPayment:
		accepted = h.payment(c, payload)
	}
	if accepted {
		h.archive(c.Request.Context(), kind, payload, receivedAt)
	}
}

// dispatchContext detaches ctx from the request so a provider hanging up after the
// response does not cancel a job for an already committed submission.
func dispatchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
}

func (h *Handler) signup(c *gin.Context, payload *tally.Payload) bool {
	ctx := c.Request.Context()
	data := h.opts.Parser.ParseSignup(payload)

	var res *signup.Result
	err := h.tx.RunInTx(ctx, func(st store.Store) error {
		var err error
		res, err = h.opts.Signups.Reconcile(ctx, st, data)
		return err
	})
	if err != nil {
		h.logger.Error("signup processing failed", zap.Error(err), zap.Stringp("submission_id", data.SubmissionID))
		response.Internal(c, "failed to process signup")
		return false
	}

	msg := "updated"
	if res.IsNew {
		msg = "created"
	}
	id := res.RegistrationID
	c.JSON(http.StatusCreated, Response{
		Status:         StatusReceived,
		FormType:       string(tally.FormSignup),
		RegistrationID: &id,
		Message:        msg,
	})
	return true
}

func (h *Handler) payment(c *gin.Context, payload *tally.Payload) bool {
	ctx := c.Request.Context()
	data := h.opts.Parser.ParsePayment(payload)

	var res *payment.Result
	err := h.tx.RunInTx(ctx, func(st store.Store) error {
		var err error
		res, err = h.opts.Payments.Match(ctx, st, data)
		return err
	})
	if err != nil {
		h.logger.Error("payment processing failed", zap.Error(err), zap.Stringp("submission_id", data.SubmissionID))
		response.Internal(c, "failed to process payment")
		return false
	}
	if !res.Success {
		response.BadRequest(c, res.Message)
		return false
	}

	status := string(res.LinkStatus)
	msg := res.Message
	if !res.IsEmergency {
		msg = "paid"
	}
	c.JSON(http.StatusCreated, Response{
		Status:         StatusReceived,
		FormType:       string(tally.FormPayment),
		RegistrationID: res.RegistrationID,
		LinkStatus:     &status,
		IsEmergency:    res.IsEmergency,
		Message:        msg,
	})

	if res.IsEmergency {
		h.alert(ctx, data, res)
	}
	return true
}

// alert runs after commit. A failed enqueue is logged; the emergency is already in the audit table.
func (h *Handler) alert(ctx context.Context, data *tally.PaymentData, res *payment.Result) {
	if h.opts.Jobs == nil {
		return
	}
	ctx, cancel := dispatchContext(ctx)
	defer cancel()
	alert := queue.EmergencyAlertPayload{
		LinkStatus:     string(res.LinkStatus),
		Message:        res.Message,
		SubmissionID:   data.SubmissionID,
		RegistrationID: data.RegistrationID,
		EventID:        data.EventID,
		Phone:          data.AuditPhone(),
		BodyHash:       data.BodyHash,
		DetectedAt:     h.now(),
	}
	if res.Audit != nil {
		alert.Recognized = res.Audit.Recognized
	}
	if err := h.opts.Jobs.EnqueueEmergencyAlert(ctx, alert); err != nil {
		h.logger.Error("enqueue emergency alert failed", zap.Error(err), zap.String("link_status", alert.LinkStatus))
	}
}

func (h *Handler) archive(ctx context.Context, kind tally.FormKind, payload *tally.Payload, receivedAt time.Time) {
	if h.opts.Jobs == nil {
		return
	}
	ctx, cancel := dispatchContext(ctx)
	defer cancel()
	err := h.opts.Jobs.EnqueuePayloadArchive(ctx, queue.PayloadArchivePayload{
		FormKind:   string(kind),
		BodyHash:   payload.BodyHash,
		Body:       []byte(payload.Raw),
		ReceivedAt: receivedAt,
	})
	if err != nil {
		h.logger.Error("enqueue payload archive failed", zap.Error(err), zap.String("body_hash", payload.BodyHash))
	}
}
