package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/pkg/queue"
	"github.com/stranger-beers/ingestion/pkg/storage"
)

// Alerter delivers emergency alerts to whoever reconciles payments by hand.
type Alerter interface {
	Alert(ctx context.Context, alert queue.EmergencyAlertPayload) error
}

// Archiver stores raw webhook bodies.
type Archiver interface {
	Exists(ctx context.Context, key string) (bool, error)
	Archive(ctx context.Context, key string, body []byte) (string, error)
}

// JobSource is the queue side the worker consumes.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Processor processes emergency alert and payload archive jobs.
type Processor struct {
	alerts   Alerter
	archiver Archiver
	queue    JobSource
	logger   *zap.Logger
	backoff  time.Duration
}

// NewProcessor creates a job processor. A nil archiver drops archive jobs with a warning.
func NewProcessor(alerts Alerter, archiver Archiver, q JobSource, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{alerts: alerts, archiver: archiver, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmergencyAlert:
		var payload queue.EmergencyAlertPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.alerts.Alert(ctx, payload)
	case queue.JobTypePayloadArchive:
		var payload queue.PayloadArchivePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.archive(ctx, payload)
	}
	return fmt.Errorf("unknown job type: %s", job.Type)
}

func (p *Processor) archive(ctx context.Context, payload queue.PayloadArchivePayload) error {
	if p.archiver == nil {
		p.logger.Warn("payload archive disabled, dropping job", zap.String("body_hash", payload.BodyHash))
		return nil
	}
	key := storage.ArchiveKey(payload.FormKind, payload.BodyHash, payload.ReceivedAt)
	exists, err := p.archiver.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check archive: %w", err)
	}
	if exists {
		p.logger.Info("payload already archived", zap.String("s3_key", key))
		return nil
	}
	if _, err := p.archiver.Archive(ctx, key, payload.Body); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	p.logger.Info("payload archived", zap.String("s3_key", key), zap.String("form_kind", payload.FormKind))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx, queue.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
