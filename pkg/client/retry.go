package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/prajeetp/bhbatch/pkg/abort"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	portalRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	portalRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})

	portalAbortedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_aborted_operations_total",
		Help: "Total number of operations abandoned by the abort signal",
	})
)

// RetryConfig holds the configuration for retry logic. The portal sits on a
// flaky internal network, so the policy is fixed-delay rather than
// exponential: attempts fail fast and evenly.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration

	// AttemptTimeout is the hard per-attempt network timeout.
	AttemptTimeout time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		Delay:          2 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Delay <= 0 {
		c.Delay = 2 * time.Second
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 30 * time.Second
	}
	return c
}

// Outcome is the result of running one logical operation through the retry
// policy: the first success or the last failure.
type Outcome struct {
	// Succeeded is true when an attempt returned a 200-399 status.
	Succeeded bool

	// StatusCode is the HTTP status of the final attempt, 0 when no response
	// was ever received.
	StatusCode int

	// Body is the response text of the final attempt, or the error text when
	// no response was received.
	Body string

	// Attempts is the number of calls actually made. 0 means the operation
	// was aborted before the first attempt.
	Attempts int

	// Elapsed is the total wall time including inter-attempt delays.
	Elapsed time.Duration

	// Aborted is true when the abort signal cut the operation short.
	Aborted bool

	// Err is set for non-success outcomes: ErrAborted, ErrRetryExhausted,
	// ErrClientDisposed, or the fatal *PortalError.
	Err error
}

// GetWithRetry runs a GET through the retry policy.
func (c *Client) GetWithRetry(ctx context.Context, path string, params url.Values, cfg RetryConfig, sig *abort.Signal) Outcome {
	return c.retry(ctx, cfg, sig, func(ctx context.Context, timeout time.Duration) (*Response, error) {
		return c.Get(ctx, path, params, timeout)
	})
}

// PostWithRetry runs a form POST through the retry policy.
func (c *Client) PostWithRetry(ctx context.Context, path string, params, form url.Values, cfg RetryConfig, sig *abort.Signal) Outcome {
	return c.retry(ctx, cfg, sig, func(ctx context.Context, timeout time.Duration) (*Response, error) {
		return c.Post(ctx, path, params, form, timeout)
	})
}

// retry executes fn up to cfg.MaxAttempts times with a fixed delay between
// attempts. Classification: success range terminates immediately; 4xx is
// fatal and returned as-is; 5xx and transport failures are retried. The
// abort signal is re-checked before every attempt and before every sleep so
// an abort never consumes a delay or a network call.
func (c *Client) retry(ctx context.Context, cfg RetryConfig, sig *abort.Signal, fn func(context.Context, time.Duration) (*Response, error)) Outcome {
	cfg = cfg.withDefaults()
	start := time.Now()

	out := Outcome{}
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if sig.IsSet() || ctx.Err() != nil {
			portalAbortedTotal.Inc()
			out.Aborted = true
			out.Err = ErrAborted
			out.Elapsed = time.Since(start)
			return out
		}

		resp, err := fn(ctx, cfg.AttemptTimeout)
		out.Attempts = attempt

		if err != nil {
			if errors.Is(err, ErrClientDisposed) {
				// Lifecycle misuse, not an environmental failure.
				out.Err = err
				out.Elapsed = time.Since(start)
				return out
			}
			out.StatusCode = 0
			out.Body = err.Error()
			out.Err = err
		} else {
			out.StatusCode = resp.StatusCode
			out.Body = resp.Body

			if resp.OK() {
				if attempt > 1 {
					log.Info().
						Int("attempt", attempt).
						Int("status", resp.StatusCode).
						Msg("Request succeeded after retry")
				}
				out.Succeeded = true
				out.Err = nil
				out.Elapsed = time.Since(start)
				return out
			}

			class := ClassifyStatus(resp.StatusCode)
			out.Err = &PortalError{StatusCode: resp.StatusCode, Class: class, Message: "request failed"}
			if !shouldRetry(class) {
				out.Elapsed = time.Since(start)
				return out
			}
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		portalRetriesTotal.WithLabelValues(string(classifyOutcome(out))).Inc()
		log.Debug().
			Int("attempt", attempt).
			Int("status", out.StatusCode).
			Dur("delay", cfg.Delay).
			Msg("Retrying request after delay")

		if sig.IsSet() {
			portalAbortedTotal.Inc()
			out.Aborted = true
			out.Err = ErrAborted
			out.Elapsed = time.Since(start)
			return out
		}
		select {
		case <-ctx.Done():
			out.Aborted = true
			out.Err = ErrAborted
			out.Elapsed = time.Since(start)
			return out
		case <-time.After(cfg.Delay):
		}
	}

	portalRetryExhaustedTotal.WithLabelValues(string(classifyOutcome(out))).Inc()
	log.Warn().
		Int("max_attempts", cfg.MaxAttempts).
		Int("status", out.StatusCode).
		Msg("Retry attempts exhausted")

	out.Err = fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, cfg.MaxAttempts, out.Err)
	out.Elapsed = time.Since(start)
	return out
}

// classifyOutcome maps the running outcome to an error class for metrics.
func classifyOutcome(out Outcome) ErrorClass {
	if out.StatusCode == 0 {
		return ErrorClassNetwork
	}
	return ClassifyStatus(out.StatusCode)
}
