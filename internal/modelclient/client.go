package modelclient

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/flexicli/flexicli/internal/config"
	"github.com/flexicli/flexicli/internal/errs"
)

const (
	maxAttempts     = 3
	perAttemptLimit = 120 * time.Second
	backoffBase     = 500 * time.Millisecond
)

type job struct {
	ctx      context.Context
	messages []ChatMessage
	mode     string
	onChunk  ChunkFunc
	tokens   int64
	resultCh chan jobResult
}

type jobResult struct {
	usage Usage
	err   error
}

// Client is the Rate-Limited Model Client (C7). One Client instance is
// shared process-wide; requests are admitted in FIFO order and dispatched
// only once both the concurrency semaphore and the RPM/TPM token buckets
// admit them (spec §4.7 "Internal state machine").
type Client struct {
	backend Backend

	sem *semaphore.Weighted
	rpm *rate.Limiter
	tpm *rate.Limiter

	queue chan job
}

// NewClient builds a Client from cfg.RateLimit (spec §6 env vars
// MAX_CONCURRENT_REQUESTS, REQUESTS_PER_MINUTE, TOKENS_PER_MINUTE).
// When cfg.RateLimit.EnableThrottling is false, RPM/TPM limiters are set to
// effectively unlimited so queueing/concurrency semantics still apply.
func NewClient(cfg *config.Config, backend Backend) *Client {
	maxConcurrent := int64(5)
	rpm := 5000
	tpm := 5_000_000
	if cfg != nil {
		if cfg.RateLimit.MaxConcurrentRequests > 0 {
			maxConcurrent = int64(cfg.RateLimit.MaxConcurrentRequests)
		}
		if cfg.RateLimit.RequestsPerMinute > 0 {
			rpm = cfg.RateLimit.RequestsPerMinute
		}
		if cfg.RateLimit.TokensPerMinute > 0 {
			tpm = cfg.RateLimit.TokensPerMinute
		}
		if !cfg.RateLimit.EnableThrottling {
			rpm = 1 << 30
			tpm = 1 << 30
		}
	}

	c := &Client{
		backend: backend,
		sem:     semaphore.NewWeighted(maxConcurrent),
		rpm:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		tpm:     rate.NewLimiter(rate.Limit(float64(tpm)/60.0), tpm),
		queue:   make(chan job, 1024),
	}
	go c.dispatchLoop()
	return c
}

// Chat enqueues a chat request and blocks until it completes, is rejected,
// or ctx is cancelled. Queued-but-undispatched requests abort without a
// network call when ctx is cancelled before their turn (spec §4.7
// "Cancellation").
func (c *Client) Chat(ctx context.Context, messages []ChatMessage, mode string, onChunk ChunkFunc) (Usage, error) {
	j := job{
		ctx:      ctx,
		messages: messages,
		mode:     mode,
		onChunk:  onChunk,
		tokens:   int64(estimateTokens(messages)),
		resultCh: make(chan jobResult, 1),
	}

	select {
	case c.queue <- j:
	case <-ctx.Done():
		return Usage{}, ctx.Err()
	}

	select {
	case r := <-j.resultCh:
		return r.usage, r.err
	case <-ctx.Done():
		return Usage{}, ctx.Err()
	}
}

// dispatchLoop is the single FIFO consumer: it admits one job at a time
// through the rate limiters before handing it to a worker goroutine, so a
// blocked head-of-queue job is never overtaken by a later one.
func (c *Client) dispatchLoop() {
	for j := range c.queue {
		if j.ctx.Err() != nil {
			j.resultCh <- jobResult{err: j.ctx.Err()}
			continue
		}

		if err := c.rpm.Wait(j.ctx); err != nil {
			j.resultCh <- jobResult{err: err}
			continue
		}
		if err := c.tpm.WaitN(j.ctx, int(j.tokens)); err != nil {
			j.resultCh <- jobResult{err: err}
			continue
		}
		if err := c.sem.Acquire(j.ctx, 1); err != nil {
			j.resultCh <- jobResult{err: err}
			continue
		}

		go func(j job) {
			defer c.sem.Release(1)
			usage, err := c.runWithRetry(j)
			j.resultCh <- jobResult{usage: usage, err: err}
		}(j)
	}
}

// runWithRetry applies the spec §4.7 retry policy: only HTTP 429/502/503 are
// retried, backoff is base*2^attempt, a 429's Retry-After is honored when
// present, and each attempt independently times out after 120s.
func (c *Client) runWithRetry(j job) (Usage, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(j.ctx, perAttemptLimit)
		usage, err := c.backend.Chat(attemptCtx, j.messages, j.mode, j.onChunk)
		cancel()

		if err == nil {
			return usage, nil
		}
		lastErr = err

		if !errs.KindOf(err).Retryable() {
			return Usage{}, err
		}

		if attempt == maxAttempts-1 {
			break
		}

		wait := backoffBase * time.Duration(1<<uint(attempt))
		if retryAfter := retryAfterFromErr(err); retryAfter > 0 {
			wait = retryAfter
		}

		select {
		case <-time.After(wait):
		case <-j.ctx.Done():
			return Usage{}, j.ctx.Err()
		}
	}
	return Usage{}, fmt.Errorf("modelclient: exhausted %d attempts: %w", maxAttempts, lastErr)
}

func retryAfterFromErr(err error) time.Duration {
	if !errs.Is(err, errs.KindRateLimited) {
		return 0
	}
	e, ok := err.(*errs.Error)
	if !ok {
		return 0
	}
	if d, ok := e.Fields["retry_after"].(time.Duration); ok {
		return d
	}
	return 0
}

func estimateTokens(messages []ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += (len(m.Content) + 3) / 4
	}
	return total
}
