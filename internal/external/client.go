// Package external contains the clients this service uses to reach its
// upstreams: the Instantly campaign API and the completion backend. Raw HTTP
// calls funnel through OutboundClient so retries, circuit breaking, trace
// propagation, and error mapping behave identically no matter which upstream
// is on the other end.
package external

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"

	"github.com/sony/gobreaker/v2"
)

// Backoff schedules the waits between retry attempts. Rate limiting and
// server errors recover on different timescales, so each status class
// carries its own initial wait; the wait doubles per attempt and is capped
// at MaxWait. Transport failures (no response at all) use the server-error
// ladder.
type Backoff struct {
	MaxRetries    int
	RateLimitWait time.Duration
	ServerErrWait time.Duration
	MaxWait       time.Duration
}

// DefaultBackoff follows the provider's observed recovery behavior: rate
// limits clear on the order of 5s/10s/20s, transient server errors within
// 2s/4s/8s.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxRetries:    3,
		RateLimitWait: 5 * time.Second,
		ServerErrWait: 2 * time.Second,
		MaxWait:       30 * time.Second,
	}
}

// Circuit breaker thresholds. The request pacer already spaces calls out, so
// five consecutive failures means the upstream is down, not flaky. A single
// probe request is allowed through after the probe timeout.
const (
	breakerTripAfter    = 5
	breakerProbeTimeout = 30 * time.Second
	breakerCountWindow  = 60 * time.Second
)

func newBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    breakerCountWindow,
		Timeout:     breakerProbeTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
	})
}

// OutboundClient is the shared transport for upstream HTTP calls. It replays
// request bodies across attempts, retries 429s and 5xxs on the Backoff
// schedule (honoring Retry-After), trips a circuit breaker on consecutive
// failures, and converts whatever remains into a typed AppError.
type OutboundClient struct {
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	backoff   Backoff
	userAgent string
	sleep     func(time.Duration)
}

// OutboundOption customizes an OutboundClient at construction.
type OutboundOption func(*OutboundClient)

// WithSleep replaces the inter-attempt sleep. Tests use it to record waits
// instead of serving them.
func WithSleep(fn func(time.Duration)) OutboundOption {
	return func(c *OutboundClient) {
		c.sleep = fn
	}
}

// WithBreaker substitutes a caller-owned circuit breaker, letting tests
// force open or half-open states without driving real failures through the
// client.
func WithBreaker(cb *gobreaker.CircuitBreaker[*http.Response]) OutboundOption {
	return func(c *OutboundClient) {
		c.breaker = cb
	}
}

// NewOutboundClient builds the shared transport. The http.Client's timeout
// bounds each individual attempt; retries stack on top of it. name labels
// the circuit breaker in logs and metrics emitted by gobreaker.
func NewOutboundClient(httpClient *http.Client, name string, backoff Backoff, userAgent string, opts ...OutboundOption) *OutboundClient {
	c := &OutboundClient{
		http:      httpClient,
		breaker:   newBreaker(name),
		backoff:   backoff,
		userAgent: userAgent,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req, replaying its body on every retry attempt. The correlation
// id, when present in the request context, travels on X-Request-Id so
// upstream support can match our logs against theirs.
//
// Responses with a status other than 429/5xx are returned unconsumed;
// interpreting non-2xx statuses stays the caller's job. Once retries are
// exhausted, or the breaker refuses the call, Do returns a typed AppError
// and no response.
func (c *OutboundClient) Do(req *http.Request) (*http.Response, error) {
	if id := types.GetRequestID(req.Context()); id != "" {
		req.Header.Set("X-Request-Id", id)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	body, err := snapshotBody(req)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"buffering request body for retries",
			err,
		)
	}

	var last *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.backoff.MaxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(c.nextDelay(attempt-1, last))
			discard(last)
			last = nil
		}

		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			resp, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			// 429 and 5xx count as breaker failures and retry candidates.
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return resp, fmt.Errorf("upstream status %d", resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			discard(last)
			return nil, types.NewAppError(
				types.ErrCodeUpstreamUnavailable,
				"upstream circuit open; not attempting the call",
				err,
			)
		}

		last = resp
		lastErr = err
	}

	status := 0
	if last != nil {
		status = last.StatusCode
		discard(last)
	}
	return nil, exhausted(status, lastErr)
}

// nextDelay computes the wait after failed attempt n (0-based). A parsable
// Retry-After wins; otherwise the status class picks its ladder and the
// attempt number doubles it.
func (c *OutboundClient) nextDelay(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if hint, ok := retryAfterHint(resp.Header.Get("Retry-After")); ok {
			return c.clamp(hint)
		}
	}

	initial := c.backoff.ServerErrWait
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		initial = c.backoff.RateLimitWait
	}
	return c.clamp(initial << attempt)
}

func (c *OutboundClient) clamp(d time.Duration) time.Duration {
	if c.backoff.MaxWait > 0 && d > c.backoff.MaxWait {
		return c.backoff.MaxWait
	}
	return d
}

// retryAfterHint parses a Retry-After header value in either the seconds or
// the HTTP-date form. Values in the past yield no hint.
func retryAfterHint(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		if until := time.Until(at); until > 0 {
			return until, true
		}
	}
	return 0, false
}

// exhausted maps the final failure to a typed error once retries are spent.
// A zero status means no attempt produced a response (transport failure),
// which is still an upstream availability problem, not an internal bug.
func exhausted(status int, err error) *types.AppError {
	switch {
	case status == http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			"upstream kept rate limiting after retries",
			err,
		)
	case status >= 500:
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream still returning %d after retries", status),
			err,
		)
	default:
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"upstream unreachable",
			err,
		)
	}
}

// snapshotBody reads and closes req.Body so each attempt can replay it.
// Bodiless requests return nil.
func snapshotBody(req *http.Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

// discard releases a response that will not be returned, draining a little
// of the body first so the underlying connection stays reusable.
func discard(resp *http.Response) {
	if resp == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
