package sender

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/msle237-lees/homelab-agent/internal/config"
)

func testConfig(endpoint string, maxRetries int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.EndpointURL = endpoint
	cfg.Server.AuthToken = "test-token"
	cfg.Delivery.MaxRetries = maxRetries
	cfg.Delivery.BackoffBase = config.Duration{Duration: time.Millisecond}
	cfg.Delivery.Timeout = config.Duration{Duration: time.Second}
	return cfg
}

func TestDeliver_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(testConfig(srv.URL, 5), zap.NewNop())
	err := s.Deliver(context.Background(), []byte(`{}`))

	require.NoError(t, err)
	assert.Equal(t, int32(4), attempts.Load(), "3 transient failures then success should take exactly 4 attempts")
}

func TestDeliver_PermanentNoRetry(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := New(testConfig(srv.URL, 5), zap.NewNop())
	err := s.Deliver(context.Background(), []byte(`{}`))

	require.Error(t, err)
	assert.True(t, IsPermanent(err), "404 should classify as permanent")
	assert.Equal(t, int32(1), attempts.Load(), "permanent failure must not be retried")
}

func TestDeliver_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(testConfig(srv.URL, 2), zap.NewNop())
	err := s.Deliver(context.Background(), []byte(`{}`))

	require.Error(t, err)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, int32(3), attempts.Load(), "maxRetries=2 means 3 total attempts")
}

func TestDeliver_429IsTransient(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(testConfig(srv.URL, 3), zap.NewNop())
	err := s.Deliver(context.Background(), []byte(`{}`))

	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestDeliver_HonorsRetryAfter(t *testing.T) {
	var attempts atomic.Int32
	var secondAttemptAt time.Time
	start := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		secondAttemptAt = time.Now()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(testConfig(srv.URL, 3), zap.NewNop())
	err := s.Deliver(context.Background(), []byte(`{}`))

	require.NoError(t, err)
	assert.GreaterOrEqual(t, secondAttemptAt.Sub(start), time.Second,
		"retry must wait at least the Retry-After hint")
}

func TestDeliver_ContextCancelInterruptsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL, 5)
	cfg.Delivery.BackoffBase = config.Duration{Duration: 30 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	s := New(cfg, zap.NewNop())
	start := time.Now()
	err := s.Deliver(ctx, []byte(`{}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second,
		"cancellation must interrupt the backoff wait, not sit it out")
}

func TestDeliver_DeadlineBoundsRetryBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL, 100)
	cfg.Delivery.BackoffBase = config.Duration{Duration: 200 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	s := New(cfg, zap.NewNop())
	start := time.Now()
	err := s.Deliver(ctx, []byte(`{}`))

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second,
		"delivery must stop when its budget deadline passes")
}

func TestDeliver_SendsAuthAndContentType(t *testing.T) {
	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := New(testConfig(srv.URL, 0), zap.NewNop())
	require.NoError(t, s.Deliver(context.Background(), []byte(`{}`)))

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "application/json", gotType)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter("5"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))

	future := time.Now().Add(3 * time.Second).UTC().Format(http.TimeFormat)
	got := parseRetryAfter(future)
	assert.Greater(t, got, time.Duration(0))
	assert.LessOrEqual(t, got, 3*time.Second)

	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	assert.Equal(t, time.Duration(0), parseRetryAfter(past))
}

func TestBackoff_CappedAndGrowing(t *testing.T) {
	cfg := testConfig("http://localhost:1", 0)
	cfg.Delivery.BackoffBase = config.Duration{Duration: 2 * time.Second}
	s := New(cfg, zap.NewNop())

	first := s.backoff(1, 0)
	assert.GreaterOrEqual(t, first, 2*time.Second)
	assert.Less(t, first, 3*time.Second)

	// Far past the cap: 2s << 29 overflows the cap long before jitter.
	huge := s.backoff(30, 0)
	assert.LessOrEqual(t, huge, maxBackoff+maxBackoff/5)

	hinted := s.backoff(1, 7*time.Second)
	assert.Equal(t, 7*time.Second, hinted)
}
