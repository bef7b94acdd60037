package duka

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ulikunitz/xz/lzma"
)

func lzmaCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		t.Fatalf("lzma.NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("lzma write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("lzma close: %v", err)
	}
	return buf.Bytes()
}

func noDelay(int) time.Duration { return 0 }

type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) SetBytes(_ context.Context, key string, value []byte) error {
	c.data[key] = value
	return nil
}

func TestFetcherFetch200Decompresses(t *testing.T) {
	payload := []byte("hello duka")
	compressed := lzmaCompress(t, payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(compressed)
	}))
	defer srv.Close()

	f := NewFetcher(Request{MaxRetries: 0, RetryDelay: noDelay, UnitTimeout: 5 * time.Second})
	got, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestFetcherFetch404IsTerminalEmpty(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(Request{MaxRetries: 3, RetryDelay: noDelay, UnitTimeout: 5 * time.Second})
	got, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result on 404, got %q", got)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt for a terminal 404, got %d", calls)
	}
}

func TestFetcherFetch500RetriesThenFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(Request{MaxRetries: 2, RetryDelay: noDelay, FailAfterRetries: true, UnitTimeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), srv.URL)

	var ferr *FetchError
	if !errors.As(err, &ferr) || ferr.Code != ErrRetryExhausted {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 1+maxRetries=3 attempts, got %d", calls)
	}
}

func TestFetcherFetch500ExhaustsToEmptyWhenNotFailAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(Request{MaxRetries: 1, RetryDelay: noDelay, FailAfterRetries: false, UnitTimeout: 5 * time.Second})
	got, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestFetcherUsesCache(t *testing.T) {
	payload := []byte("cached bytes")
	compressed := lzmaCompress(t, payload)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
		w.Write(compressed)
	}))
	defer srv.Close()

	cache := newMemCache()
	f := NewFetcher(Request{MaxRetries: 0, RetryDelay: noDelay, UnitTimeout: 5 * time.Second, UseCache: true, Cache: cache})

	first, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("cached fetch mismatch: %q vs %q", first, second)
	}
	if calls != 1 {
		t.Fatalf("expected the second fetch to be served from cache, saw %d network calls", calls)
	}
}

func TestFetcherRetryOnEmptyBody(t *testing.T) {
	var calls int32
	payload := []byte("finally")
	compressed := lzmaCompress(t, payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
		if n < 2 {
			return
		}
		w.Write(compressed)
	}))
	defer srv.Close()

	f := NewFetcher(Request{MaxRetries: 2, RetryDelay: noDelay, RetryOnEmpty: true, UnitTimeout: 5 * time.Second})
	got, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
}
