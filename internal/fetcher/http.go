package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/divar-cli/internal/metrics"
	"github.com/sells-group/divar-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64
	Retry             resilience.RetryConfig
}

// HTTPFetcher implements Fetcher using net/http with bounded retry.
type HTTPFetcher struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "divar-cli/1.0"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:    opts,
		limiter: limiter,
	}
}

// FetchJSON GETs rawURL and decodes the body into out. Timeouts, dropped
// connections and 408/429/5xx responses are retried per the retry policy;
// anything else (including a body that is not valid JSON) fails at once.
func (f *HTTPFetcher) FetchJSON(ctx context.Context, rawURL string, out any) error {
	retry := f.opts.Retry
	retry.ShouldRetry = isRetryable
	logRetry := resilience.RetryLogger(rawURL)
	retry.OnRetry = func(attempt int, err error) {
		metrics.ObserveRetry()
		logRetry(attempt, err)
	}

	attempt := 0
	body, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		attempt++
		return f.get(ctx, rawURL, attempt)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrRetriesExhausted) {
			metrics.ObserveRetriesExhausted()
		}
		return eris.Wrapf(err, "fetch %s", rawURL)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "fetch %s: decode body", rawURL)
	}
	return nil
}

// get performs one attempt and returns the raw body of a 2xx response.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string, attempt int) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
	}

	zap.L().Info("requesting",
		zap.String("url", rawURL),
		zap.Int("attempt", attempt),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(err, 0, start)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			metrics.ObserveRequest(metrics.OutcomeTransient, time.Since(start))
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		metrics.ObserveRequest(metrics.OutcomeFailure, time.Since(start))
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err, resp.StatusCode, start)
	}
	metrics.ObserveRequest(metrics.OutcomeSuccess, time.Since(start))
	return body, nil
}

// classify records a transport failure and marks it transient when the
// connection timed out or was dropped.
func classify(err error, status int, start time.Time) error {
	if resilience.IsTransient(err) {
		metrics.ObserveRequest(metrics.OutcomeTransient, time.Since(start))
		return resilience.NewTransientError(eris.Wrap(err, "http request"), status)
	}
	metrics.ObserveRequest(metrics.OutcomeFailure, time.Since(start))
	return eris.Wrap(err, "http request")
}

func isRetryable(err error) bool {
	var te *resilience.TransientError
	return errors.As(err, &te)
}
