// Package sender implements the HTTP delivery client. It POSTs one encoded
// snapshot per call to the configured ingest endpoint with bearer
// authentication, retrying transient failures with capped exponential
// backoff plus jitter. Permanent failures (4xx other than 429) are reported
// immediately without retry. All waits select on the caller's context, so
// shutdown or the cycle's delivery budget interrupts an in-flight backoff.
package sender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/msle237-lees/homelab-agent/internal/config"
)

// maxBackoff caps the computed exponential delay between attempts.
const maxBackoff = 60 * time.Second

// Outcome classifies the result of a single delivery attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTransient
	OutcomePermanent
)

// String returns a log-friendly name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient_failure"
	case OutcomePermanent:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// Attempt records one delivery attempt. It is transient: used only for
// retry decisions and logging, never persisted.
type Attempt struct {
	Endpoint    string
	PayloadSize int
	Outcome     Outcome
	Status      int
	Number      int
	Elapsed     time.Duration
	RetryAfter  time.Duration
	Err         error
}

// TransientError is a delivery failure worth retrying: a network error,
// timeout, 5xx, or 429 response.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transient delivery failure: server returned %d", e.Status)
	}
	return fmt.Sprintf("transient delivery failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a delivery failure that retrying cannot fix: an auth or
// validation rejection (4xx other than 429).
type PermanentError struct {
	Status int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent delivery failure: server returned %d", e.Status)
}

// Sender delivers encoded snapshots to the configured endpoint.
type Sender struct {
	client *http.Client
	cfg    *config.Config
	logger *zap.Logger
}

// New creates a Sender with the given configuration and logger.
func New(cfg *config.Config, logger *zap.Logger) *Sender {
	return &Sender{
		client: &http.Client{
			Timeout: cfg.Delivery.Timeout.Duration,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Deliver sends one payload, retrying transient failures up to the
// configured maximum. The caller bounds the total retry budget through
// ctx (typically one sampling interval); when the budget or a shutdown
// cancels the context, the in-flight delivery is abandoned and the last
// error is returned. Deliver never panics; every outcome comes back as a
// nil or typed error.
func (s *Sender) Deliver(ctx context.Context, payload []byte) error {
	var lastErr error

	for attempt := 1; attempt <= s.cfg.Delivery.MaxRetries+1; attempt++ {
		a := s.attempt(ctx, payload, attempt)

		switch a.Outcome {
		case OutcomeSuccess:
			s.logger.Debug("Snapshot delivered",
				zap.Int("attempt", a.Number),
				zap.Int("bytes", a.PayloadSize),
				zap.Duration("elapsed", a.Elapsed))
			return nil

		case OutcomePermanent:
			s.logger.Error("Delivery rejected, not retrying",
				zap.Int("status", a.Status),
				zap.Int("attempt", a.Number))
			return a.Err

		case OutcomeTransient:
			lastErr = a.Err
			s.logger.Warn("Delivery attempt failed",
				zap.Int("attempt", a.Number),
				zap.Int("status", a.Status),
				zap.Duration("elapsed", a.Elapsed),
				zap.Error(a.Err))
		}

		if attempt > s.cfg.Delivery.MaxRetries {
			break
		}

		delay := s.backoff(attempt, a.RetryAfter)
		s.logger.Debug("Backing off before retry",
			zap.Int("next_attempt", attempt+1),
			zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("delivery abandoned: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("retries exhausted: %w", lastErr)
}

// attempt performs a single POST and classifies the result.
func (s *Sender) attempt(ctx context.Context, payload []byte, number int) Attempt {
	a := Attempt{
		Endpoint:    s.cfg.Server.EndpointURL,
		PayloadSize: len(payload),
		Number:      number,
	}

	start := time.Now()
	status, retryAfter, err := s.post(ctx, payload)
	a.Elapsed = time.Since(start)
	a.Status = status
	a.RetryAfter = retryAfter

	switch {
	case err == nil && status >= 200 && status < 300:
		a.Outcome = OutcomeSuccess
	case err == nil && status >= 400 && status < 500 && status != http.StatusTooManyRequests:
		a.Outcome = OutcomePermanent
		a.Err = &PermanentError{Status: status}
	default:
		// Network errors, timeouts, 5xx, 429, and anything unexpected.
		a.Outcome = OutcomeTransient
		a.Err = &TransientError{Status: status, Err: err}
	}

	return a
}

// post performs the HTTP request and returns the status code plus any
// Retry-After hint. A zero status means the request never got a response.
func (s *Sender) post(ctx context.Context, payload []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.Server.EndpointURL, bytes.NewReader(payload))
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.Server.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

// backoff computes the delay before the next attempt:
// base × 2^(attempt-1), capped, plus up to 20% jitter to avoid synchronized
// retry storms across agents. A server-supplied Retry-After hint overrides
// the computed delay.
func (s *Sender) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}

	delay := s.cfg.Delivery.BackoffBase.Duration << (attempt - 1)
	if delay > maxBackoff || delay <= 0 {
		delay = maxBackoff
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/5 + 1))
	return delay + jitter
}

// parseRetryAfter parses a Retry-After header value, accepting both
// delay-seconds and HTTP-date forms. Returns 0 when absent or unparseable.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// IsPermanent reports whether err is a permanent delivery rejection.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
