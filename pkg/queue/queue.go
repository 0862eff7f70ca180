package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueEmergencies is the Redis list key for emergency alert jobs.
	QueueEmergencies = "worker:emergencies"
	// QueueArchive is the Redis list key for payload archive jobs.
	QueueArchive = "worker:archive"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// PollTimeout bounds one blocking dequeue so the worker can notice shutdown.
	PollTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeEmergencyAlert JobType = "emergency_alert"
	JobTypePayloadArchive JobType = "payload_archive"
)

// queueFor returns the list a job type is served from.
func queueFor(t JobType) (string, error) {
	switch t {
	case JobTypeEmergencyAlert:
		return QueueEmergencies, nil
	case JobTypePayloadArchive:
		return QueueArchive, nil
	}
	return "", fmt.Errorf("unknown job type: %s", t)
}

// EmergencyAlertPayload describes a payment that needs a human to reconcile it.
type EmergencyAlertPayload struct {
	LinkStatus     string    `json:"link_status"`
	Message        string    `json:"message"`
	SubmissionID   *string   `json:"submission_id,omitempty"`
	RegistrationID *string   `json:"claimed_registration_id,omitempty"`
	EventID        *string   `json:"event_id,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Recognized     bool      `json:"recognized"`
	BodyHash       string    `json:"body_hash"`
	DetectedAt     time.Time `json:"detected_at"`
}

// PayloadArchivePayload carries a raw webhook body to be archived. Body travels base64 encoded
// so the archived bytes still hash to BodyHash and still verify against the provider signature.
type PayloadArchivePayload struct {
	FormKind   string    `json:"form_kind"`
	BodyHash   string    `json:"body_hash"`
	Body       []byte    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client redis.Cmdable
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client redis.Cmdable, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueEmergencyAlert enqueues an emergency alert job.
func (q *Queue) EnqueueEmergencyAlert(ctx context.Context, payload EmergencyAlertPayload) error {
	job, err := q.enqueue(ctx, JobTypeEmergencyAlert, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued emergency alert job", zap.String("job_id", job.ID), zap.String("link_status", payload.LinkStatus))
	return nil
}

// EnqueuePayloadArchive enqueues a payload archive job.
func (q *Queue) EnqueuePayloadArchive(ctx context.Context, payload PayloadArchivePayload) error {
	job, err := q.enqueue(ctx, JobTypePayloadArchive, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued payload archive job", zap.String("job_id", job.ID), zap.String("body_hash", payload.BodyHash))
	return nil
}

func (q *Queue) enqueue(ctx context.Context, t JobType, payload any) (*Job, error) {
	key, err := queueFor(t)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return nil, fmt.Errorf("rpush: %w", err)
	}
	return job, nil
}

// Dequeue blocks until a job is available on any work queue, timeout passes, or ctx is done.
// Emergencies are served before archive jobs. A nil job with nil error means nothing arrived.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueEmergencies, QueueArchive).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		if dlqErr := q.client.RPush(ctx, QueueDLQ, result[1]).Err(); dlqErr != nil {
			q.logger.Error("dlq push failed", zap.Error(dlqErr))
		}
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	key, keyErr := queueFor(job.Type)
	if job.Attempt >= MaxRetries || keyErr != nil {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// DLQLength returns how many jobs sit in the dead-letter queue.
func (q *Queue) DLQLength(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueDLQ).Result()
}
