package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Submitter enqueues a job for asynchronous execution.
type Submitter interface {
	Submit(ctx context.Context, job Job) error
}

// Handler executes a job. Handlers must be idempotent with respect to the
// job key: re-running the same job must not create a second canonical
// artifact.
type Handler func(ctx context.Context, job Job) error

// QueueSubmitter pushes jobs onto a Redis list consumed by the worker tier.
type QueueSubmitter struct {
	client *redis.Client
	queue  string
}

func NewQueueSubmitter(client *redis.Client, queue string) *QueueSubmitter {
	return &QueueSubmitter{client: client, queue: queue}
}

func (s *QueueSubmitter) Submit(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobs: failed to marshal job %s/%s: %w", job.Kind, job.Key, err)
	}
	if err := s.client.LPush(ctx, s.queue, raw).Err(); err != nil {
		return fmt.Errorf("jobs: failed to enqueue job %s/%s: %w", job.Kind, job.Key, err)
	}
	return nil
}

// InlineSubmitter executes the job synchronously through the same handler
// registry the worker uses. It carries none of the runner's retry/backoff
// behaviour.
type InlineSubmitter struct {
	handlers map[Kind]Handler
}

func NewInlineSubmitter(handlers map[Kind]Handler) *InlineSubmitter {
	return &InlineSubmitter{handlers: handlers}
}

func (s *InlineSubmitter) Submit(ctx context.Context, job Job) error {
	handler, ok := s.handlers[job.Kind]
	if !ok {
		return fmt.Errorf("jobs: no handler registered for kind %s", job.Kind)
	}
	return handler(ctx, job)
}

// FallbackSubmitter tries the queue first and degrades to inline synchronous
// execution when the broker is unreachable, so a side effect is never lost
// outright. Inline failures are logged, not returned: by the time a receipt
// job is submitted the payment has already been committed, and nothing may
// raise back into that path.
type FallbackSubmitter struct {
	primary  Submitter
	fallback Submitter
}

func NewFallbackSubmitter(primary, fallback Submitter) *FallbackSubmitter {
	return &FallbackSubmitter{primary: primary, fallback: fallback}
}

func (s *FallbackSubmitter) Submit(ctx context.Context, job Job) error {
	err := s.primary.Submit(ctx, job)
	if err == nil {
		return nil
	}
	log.Warn().Err(err).
		Str("kind", string(job.Kind)).
		Str("key", job.Key).
		Msg("Queue unavailable, running job inline")

	if inlineErr := s.fallback.Submit(ctx, job); inlineErr != nil {
		log.Error().Err(inlineErr).
			Str("kind", string(job.Kind)).
			Str("key", job.Key).
			Msg("Inline job execution failed")
	}
	return nil
}
