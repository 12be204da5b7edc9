package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds the retries for one job family.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// BestEffort jobs that exhaust their retries are logged at warn and
	// dropped; durable jobs surface exhaustion at error level for alerting.
	BestEffort bool
}

// DefaultPolicies mirrors the per-family consistency requirements: receipts
// must eventually materialise, notifications are best-effort.
var DefaultPolicies = map[Kind]RetryPolicy{
	KindReceiptGenerate:  {MaxRetries: 5, InitialInterval: 30 * time.Second, MaxInterval: 10 * time.Minute},
	KindNotifyLowStock:   {MaxRetries: 3, InitialInterval: 60 * time.Second, MaxInterval: 10 * time.Minute, BestEffort: true},
	KindNotifyOrderEvent: {MaxRetries: 2, InitialInterval: 60 * time.Second, MaxInterval: 10 * time.Minute, BestEffort: true},
}

// Runner consumes jobs from the Redis queue and executes them on a bounded
// worker pool with exponential-backoff retry and jitter. Retries of one job
// run serially inside a single worker; across jobs there is no ordering.
type Runner struct {
	client      *redis.Client
	queue       string
	handlers    map[Kind]Handler
	policies    map[Kind]RetryPolicy
	concurrency int
	jobTimeout  time.Duration
}

func NewRunner(client *redis.Client, queue string, handlers map[Kind]Handler, policies map[Kind]RetryPolicy, concurrency int, jobTimeout time.Duration) *Runner {
	if policies == nil {
		policies = DefaultPolicies
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{
		client:      client,
		queue:       queue,
		handlers:    handlers,
		policies:    policies,
		concurrency: concurrency,
		jobTimeout:  jobTimeout,
	}
}

// Run blocks until ctx is cancelled, consuming jobs with r.concurrency
// workers.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r.consume(ctx, worker)
		}(i)
	}
	wg.Wait()
}

func (r *Runner) consume(ctx context.Context, worker int) {
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := r.client.BRPop(ctx, 5*time.Second, r.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Error().Err(err).Int("worker", worker).Msg("Failed to pop job from queue")
			// Broker hiccup: back off briefly before polling again.
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		// BRPop returns [queue, value].
		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			log.Error().Err(err).Int("worker", worker).Msg("Discarding malformed job payload")
			continue
		}

		r.Process(ctx, job)
	}
}

// Process executes one job to completion or exhaustion, applying the
// family's retry policy. Exported so the execution path is testable without
// a broker.
func (r *Runner) Process(ctx context.Context, job Job) {
	handler, ok := r.handlers[job.Kind]
	if !ok {
		log.Error().Str("kind", string(job.Kind)).Str("key", job.Key).Msg("No handler registered for job kind")
		return
	}

	policy, ok := r.policies[job.Kind]
	if !ok {
		policy = RetryPolicy{MaxRetries: 2, InitialInterval: 30 * time.Second, MaxInterval: 10 * time.Minute, BestEffort: true}
	}

	jobCtx := ctx
	if r.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, r.jobTimeout)
		defer cancel()
	}

	logger := log.With().Str("kind", string(job.Kind)).Str("key", job.Key).Logger()
	logger.Info().Msg("Job running")

	attempt := 0
	operation := func() error {
		attempt++
		if err := handler(jobCtx, job); err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("Job attempt failed, retry scheduled")
			return err
		}
		return nil
	}

	// Exponential backoff with randomized jitter so many jobs failing at
	// once do not retry in lockstep.
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = policy.InitialInterval
	expo.MaxInterval = policy.MaxInterval
	expo.MaxElapsedTime = 0
	expo.RandomizationFactor = 0.5

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(expo, policy.MaxRetries), jobCtx))
	if err == nil {
		logger.Info().Int("attempts", attempt).Msg("Job succeeded")
		return
	}

	if policy.BestEffort {
		logger.Warn().Err(err).Int("attempts", attempt).Msg("Best-effort job exhausted retries, dropping")
		return
	}
	logger.Error().Err(err).Int("attempts", attempt).Msg("Job exhausted retries")
}

// Enqueue is a convenience used by tests and tools to push a job directly.
func (r *Runner) Enqueue(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobs: failed to marshal job %s/%s: %w", job.Kind, job.Key, err)
	}
	return r.client.LPush(ctx, r.queue, raw).Err()
}
