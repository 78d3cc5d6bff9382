package crawl

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/doccrawl"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (*doccrawl.Response, error)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchWithRetry fetches a URL, retrying transient failures after each of
// the given backoff delays. It returns the number of attempts made.
// Only errors for which doccrawl.IsTransient is true are retried; a 404 fails
// after one attempt. When ctx is canceled during a backoff wait, the last
// fetch error is returned and no further attempt is made. A nil logger
// disables retry logging.
func FetchWithRetry(ctx context.Context, url string, fetch FetchFunc, logger *slog.Logger, delays []time.Duration) (*doccrawl.Response, int, error) {
	maxAttempts := len(delays) + 1 // 1 initial + N retries

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := fetch(ctx, url)
		if err == nil {
			return resp, attempt + 1, nil
		}
		lastErr = err

		if !doccrawl.IsTransient(err) || attempt >= maxAttempts-1 {
			return nil, attempt + 1, lastErr
		}
		if ctx.Err() != nil {
			return nil, attempt + 1, lastErr
		}

		if logger != nil {
			logger.Info("fetch retry",
				"url", url,
				"attempt", attempt+2,
				"backoff", delays[attempt],
				"err", err,
			)
		}

		timer := time.NewTimer(delays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempt + 1, lastErr
		case <-timer.C:
		}
	}

	return nil, maxAttempts, lastErr
}
