package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-workshop/backend/internal/broadcast"
	"github.com/aura-workshop/backend/pkg/queue"
)

// Broadcaster runs one broadcast on a channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, ch broadcast.Channel) (broadcast.Result, error)
}

// JobQueue is the part of the Redis queue the processor drives.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, cause error) error
	DeadLetter(ctx context.Context, job *queue.Job, cause error) error
}

// errPermanent marks job failures that a retry cannot fix.
var errPermanent = errors.New("permanent job failure")

// BroadcastProcessor runs queued broadcast jobs.
type BroadcastProcessor struct {
	broadcaster Broadcaster
	queue       JobQueue
	logger      *zap.Logger
	backoff     time.Duration
}

// NewBroadcastProcessor creates a broadcast job processor.
func NewBroadcastProcessor(b Broadcaster, q JobQueue, logger *zap.Logger) *BroadcastProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BroadcastProcessor{broadcaster: b, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one broadcast job. Errors wrapping errPermanent must not
// be retried.
func (p *BroadcastProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeBroadcast {
		return fmt.Errorf("%w: unknown job type %q", errPermanent, job.Type)
	}
	var payload queue.BroadcastPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %v", errPermanent, err)
	}
	ch, err := broadcast.ParseChannel(payload.Channel)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	res, err := p.broadcaster.Broadcast(ctx, ch)
	switch {
	case err == nil:
	case errors.Is(err, broadcast.ErrBroadcastInProgress):
		return err
	case errors.Is(err, broadcast.ErrLogWrite):
		// The messages went out; running the job again would send them twice.
		p.logger.Error("broadcast sent but not logged", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	case errors.Is(err, broadcast.ErrConfiguration), errors.Is(err, broadcast.ErrEmptyAudience):
		return fmt.Errorf("%w: %v", errPermanent, err)
	default:
		return err
	}

	p.logger.Info("broadcast job completed",
		zap.String("job_id", job.ID),
		zap.String("channel", string(ch)),
		zap.String("requested_by", payload.RequestedBy.String()),
		zap.String("outcome", string(res.Outcome())),
		zap.Int("success", res.SuccessCount),
		zap.Int("attempted", res.Attempted),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *BroadcastProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("broadcast worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
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
		p.handle(ctx, job)
	}
}

func (p *BroadcastProcessor) handle(ctx context.Context, job *queue.Job) {
	err := p.Process(ctx, job)
	if err == nil {
		return
	}
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
	if errors.Is(err, errPermanent) {
		if dlErr := p.queue.DeadLetter(ctx, job, err); dlErr != nil {
			p.logger.Error("dead letter failed", zap.Error(dlErr))
		}
		return
	}
	if reErr := p.queue.Retry(ctx, job, err); reErr != nil {
		p.logger.Error("retry enqueue failed", zap.Error(reErr))
	}
	p.sleep(ctx)
}

func (p *BroadcastProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
