package view

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/fetch"
	"github.com/Iron-Ham/feedview/internal/logging"
	"github.com/Iron-Ham/feedview/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc/pool"
)

// Options configures a Loader.
type Options struct {
	// Retries is the number of attempts after the first one.
	Retries int
	// Timeout bounds each attempt.
	Timeout time.Duration
	// Backoff is the initial wait between attempts. Zero retries immediately.
	Backoff time.Duration
	// PathTemplate maps a view id to a resource; "{view}" is replaced.
	PathTemplate string
	// Prefetch bounds concurrent fetches in Prefetch.
	Prefetch int
}

// DefaultOptions returns the stock retrieval policy: three attempts of at
// most five seconds each.
func DefaultOptions() Options {
	return Options{
		Retries:      2,
		Timeout:      5 * time.Second,
		Backoff:      200 * time.Millisecond,
		PathTemplate: "/views/{view}.txt",
		Prefetch:     4,
	}
}

// Loader returns view content from the cache or fetches it with retries.
type Loader struct {
	fetcher fetch.Fetcher
	cache   *Cache
	opts    Options
	logger  *logging.Logger
}

// NewLoader creates a Loader. A nil cache gets a private one.
func NewLoader(fetcher fetch.Fetcher, cache *Cache, opts Options, logger *logging.Logger) *Loader {
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.PathTemplate == "" {
		opts.PathTemplate = DefaultOptions().PathTemplate
	}
	if opts.Prefetch <= 0 {
		opts.Prefetch = 1
	}
	return &Loader{
		fetcher: fetcher,
		cache:   cache,
		opts:    opts,
		logger:  logger,
	}
}

// Cache returns the cache backing the loader.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// Resource returns the resource path for a view id.
func (l *Loader) Resource(viewID string) string {
	return strings.ReplaceAll(l.opts.PathTemplate, "{view}", url.PathEscape(viewID))
}

// Load returns the content for viewID. A cached view returns without a
// fetch. Otherwise up to Retries+1 attempts are made, each bounded by
// Timeout; the first success is cached. When every attempt fails the
// result is a *errors.ViewFetchError.
func (l *Loader) Load(ctx context.Context, viewID string) (string, error) {
	if content, ok := l.cache.Get(viewID); ok {
		metrics.RecordViewLoad(metrics.OutcomeHit)
		return content, nil
	}

	log := l.logger.WithView(viewID)
	resource := l.Resource(viewID)

	var (
		attempts int
		lastErr  error
	)
	op := func() (string, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()

		content, err := l.fetcher.Fetch(attemptCtx, resource)
		metrics.RecordViewAttempt(viewID, err)
		if err != nil {
			if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				err = errors.NewTimeoutError("fetch "+resource, l.opts.Timeout).WithCause(err)
			}
			lastErr = err
			if ctx.Err() != nil {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return content, nil
	}

	notify := func(err error, wait time.Duration) {
		log.Debug("view fetch attempt failed",
			"attempt", attempts,
			"resource", resource,
			"retry_in", wait,
			"error", err)
	}

	content, err := backoff.RetryNotifyWithData(op, l.policy(ctx), notify)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		metrics.RecordViewLoad(metrics.OutcomeFailed)
		vfErr := errors.NewViewFetchError(viewID, attempts, lastErr).WithStatus(fetch.StatusCode(lastErr))
		log.Warn("view unavailable", "attempts", attempts, "error", lastErr)
		return "", vfErr
	}

	content, _ = l.cache.Store(viewID, content)
	metrics.RecordViewLoad(metrics.OutcomeFetched)
	log.Debug("view fetched", "attempts", attempts, "bytes", len(content))
	return content, nil
}

// policy builds the retry schedule for one Load call.
func (l *Loader) policy(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if l.opts.Backoff > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = l.opts.Backoff
		exp.MaxInterval = l.opts.Timeout
		exp.MaxElapsedTime = 0
		exp.Reset()
		b = exp
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(l.opts.Retries)), ctx)
}

// Prefetch warms the cache for ids with at most Options.Prefetch fetches
// in flight. Failures are logged and joined into the returned error; the
// views that loaded stay cached.
func (l *Loader) Prefetch(ctx context.Context, ids ...string) error {
	p := pool.New().WithMaxGoroutines(l.opts.Prefetch).WithContext(ctx)
	for _, id := range ids {
		p.Go(func(ctx context.Context) error {
			if _, err := l.Load(ctx, id); err != nil {
				l.logger.WithView(id).Warn("prefetch failed", "error", err)
				return err
			}
			return nil
		})
	}
	return p.Wait()
}
