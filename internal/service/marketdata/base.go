package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	drepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/service/ratelimit"
	"CycleScope/pkg/config"
	xhttp "CycleScope/pkg/http"
	xlogger "CycleScope/pkg/logger"
)

// rateLimit is a token bucket shared by every request to one upstream.
type rateLimit struct {
	key      string
	capacity float64
	perSec   float64
}

// request is one upstream GET.
type request struct {
	source  string // metrics label
	url     string
	query   map[string][]string
	headers map[string]string
	limit   *rateLimit
}

// httpBase centralizes client construction, retries and rate limiting for every upstream.
type httpBase struct {
	client   *xhttp.Client
	limiter  *ratelimit.Limiter
	attempts int
	backoff  time.Duration
	logger   *xlogger.Logger
	metrics  drepo.Metrics
}

func newHTTPBase(cfg *config.Config, logger *xlogger.Logger, metrics drepo.Metrics) *httpBase {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &httpBase{
		client:   xhttp.NewClient(xhttp.WithTimeout(cfg.Sources.Timeout)),
		limiter:  ratelimit.New(),
		attempts: cfg.Sources.RetryAttempts,
		backoff:  cfg.Sources.RetryBackoff,
		logger:   logger,
		metrics:  metrics,
	}
}

// getJSON performs req and decodes the body into dest, retrying 429, 5xx and transport failures.
func (b *httpBase) getJSON(ctx context.Context, req request, dest interface{}) error {
	start := time.Now()
	attempts := b.attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
retry:
	for i := 1; i <= attempts; i++ {
		if req.limit != nil {
			if werr := b.limiter.Wait(ctx, req.limit.key, req.limit.capacity, req.limit.perSec); werr != nil {
				err = werr
				break
			}
		}

		err = b.client.GetJSON(ctx, req.url, req.query, req.headers, dest)
		if err == nil || !retryable(err) || i == attempts {
			break
		}

		wait := b.backoff * time.Duration(1<<uint(i-1))
		b.logger.Warn("upstream request failed, retrying",
			xlogger.String("source", req.source),
			xlogger.Int("attempt", i),
			xlogger.Duration("backoff_ms", wait),
			xlogger.Error(err),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		}
	}

	if b.metrics != nil {
		b.metrics.RecordFetch(req.source, time.Since(start).Seconds(), err)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", req.source, err)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
