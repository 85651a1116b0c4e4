package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig(maxBody int64) Config {
	return Config{
		Timeout:     5 * time.Second,
		MaxBodySize: maxBody,
		RetryConfig: RetryConfig{
			MaxRetries:        2,
			InitialDelay:      time.Millisecond,
			MaxDelay:          5 * time.Millisecond,
			BackoffMultiplier: 2,
		},
	}
}

func TestFetcher_Fetch(t *testing.T) {
	const page = `<table class="cdk-table"><tr class="cdk-row"></tr></table>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.UserAgent())
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	cfg := testConfig(1024)
	cfg.UserAgent = "test-agent"

	body, err := New(cfg, zap.NewNop()).Fetch(context.Background(), srv.URL+"/file/bot123:secret/history.html")
	require.NoError(t, err)
	assert.Equal(t, page, string(body))
}

func TestFetcher_ErrorsHideToken(t *testing.T) {
	const token = "123456:SECRETTOKEN"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	_, err := New(testConfig(1024), zap.New(core)).Fetch(context.Background(), srv.URL+"/file/bot"+token+"/documents/file_1.html")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
	assert.Contains(t, err.Error(), strings.TrimPrefix(srv.URL, "http://"))

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		for key, value := range entry.ContextMap() {
			assert.NotContains(t, fmt.Sprint(value), token, "%q field %s", entry.Message, key)
		}
	}
}

func TestFetcher_TooLarge(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(strings.Repeat("x", 200)))
	}))
	defer srv.Close()

	_, err := New(testConfig(100), zap.NewNop()).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrDocumentTooLarge)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "size errors are not retried")

	body, err := New(testConfig(200), zap.NewNop()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, 200, "a body exactly at the limit is accepted")
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := New(testConfig(1024), zap.NewNop()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetcher_ClientErrorIsPermanent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(testConfig(1024), zap.NewNop()).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestWithRetry(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 2}

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), zap.NewNop(), cfg, func() error {
			calls++
			return errors.New("boom")
		})
		assert.Error(t, err)
		assert.Equal(t, 4, calls)
	})

	t.Run("permanent stops immediately", func(t *testing.T) {
		calls := 0
		sentinel := errors.New("fatal")
		err := WithRetry(context.Background(), zap.NewNop(), cfg, func() error {
			calls++
			return Permanent(sentinel)
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, zap.NewNop(), cfg, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
