// Package fetcher retrieves post metadata with bounded retry on upstream
// throttling. The failure classification is the core policy: not-found is
// terminal, throttling is retried with increasing backoff, everything else
// propagates immediately.
package fetcher

import (
	"context"
	"time"

	"igresolver/pkg/config"
	igerrors "igresolver/pkg/errors"
	"igresolver/pkg/instagram"
	"igresolver/pkg/logger"
	"igresolver/pkg/ratelimit"
	"igresolver/pkg/retry"
)

// PostSource is the remote data source for post metadata.
type PostSource interface {
	FetchPost(ctx context.Context, shortcode string) (*instagram.Post, error)
}

// Fetcher wraps a PostSource with pacing and throttle-aware retries.
type Fetcher struct {
	source     PostSource
	limiter    ratelimit.Limiter
	backoff    retry.BackoffStrategy
	maxRetries int
	logger     logger.Logger

	// wait is the sleep between throttled attempts; tests replace it to
	// record delays without sleeping.
	wait func(ctx context.Context, delay time.Duration) error
}

// New creates a Fetcher from the rate limit configuration.
func New(source PostSource, limiter ratelimit.Limiter, cfg *config.RateLimitConfig, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Fetcher{
		source:     source,
		limiter:    limiter,
		backoff:    retry.NewLinearBackoff(cfg.BackoffBase),
		maxRetries: cfg.MaxRetries,
		logger:     log,
		wait:       retry.Wait,
	}
}

// Fetch retrieves the post for shortcode, retrying only on throttling. Each
// throttled attempt n sleeps n times the backoff base, so delays strictly
// increase. Not-found fails immediately with no sleep; other upstream errors
// propagate untouched. After exhausting attempts the rate-limited error
// wraps the last upstream error as cause.
func (f *Fetcher) Fetch(ctx context.Context, shortcode string) (*instagram.Post, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, igerrors.Wrap(igerrors.TypeUpstream, "fetch cancelled while pacing", err)
			}
		}

		post, err := f.source.FetchPost(ctx, shortcode)
		if err == nil {
			if attempt > 1 {
				f.logger.InfoWithFields("fetch succeeded after retry", map[string]interface{}{
					"shortcode": shortcode,
					"attempt":   attempt,
				})
			}
			return post, nil
		}

		switch igerrors.TypeOf(err) {
		case igerrors.TypeNotFound:
			// Terminal: retrying a missing post only wastes quota.
			return nil, err
		case igerrors.TypeRateLimited:
			lastErr = err
			if attempt == f.maxRetries {
				continue
			}
			delay := f.backoff.NextDelay(attempt)
			f.logger.WarnWithFields("upstream throttled, backing off", map[string]interface{}{
				"shortcode": shortcode,
				"attempt":   attempt,
				"delay":     delay,
			})
			if werr := f.wait(ctx, delay); werr != nil {
				return nil, igerrors.Wrap(igerrors.TypeUpstream, "fetch cancelled during backoff", werr)
			}
		default:
			return nil, err
		}
	}

	return nil, igerrors.Wrap(igerrors.TypeRateLimited,
		"retries exhausted while upstream was throttling", lastErr)
}
