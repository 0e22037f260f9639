package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
)

type fakeWindowStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{counts: map[string]int64{}}
}

func (f *fakeWindowStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func shareLimitedRouter(store fixedWindowStore, cfg config.ShareRateLimitConfig) *chi.Mux {
	router := chi.NewRouter()
	router.With(ShareRateLimit(cfg, store, nil)).Post("/gallery/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return router
}

func TestShareRateLimitPerToken(t *testing.T) {
	store := newFakeWindowStore()
	router := shareLimitedRouter(store, config.ShareRateLimitConfig{Window: time.Minute, TokenLimit: 2, IPLimit: 0})

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/gallery/tok-1", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d should pass, got %d", i+1, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/gallery/tok-1", nil))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the limit, got %d", resp.Code)
	}

	// A different token has its own counter.
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/gallery/tok-2", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("other tokens must not share the counter, got %d", resp.Code)
	}
}

func TestShareRateLimitPerIP(t *testing.T) {
	store := newFakeWindowStore()
	router := shareLimitedRouter(store, config.ShareRateLimitConfig{Window: time.Minute, TokenLimit: 0, IPLimit: 1})

	first := httptest.NewRequest(http.MethodPost, "/gallery/tok-1", nil)
	first.RemoteAddr = "10.0.0.9:4455"
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, first)
	if resp.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", resp.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/gallery/tok-2", nil)
	second.RemoteAddr = "10.0.0.9:4456"
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, second)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("the ip counter must span tokens, got %d", resp.Code)
	}
}

func TestShareRateLimitDisabledWithoutStore(t *testing.T) {
	router := shareLimitedRouter(nil, config.ShareRateLimitConfig{Window: time.Minute, TokenLimit: 1, IPLimit: 1})

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/gallery/tok-1", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("limit must be disabled without a store, got %d", resp.Code)
		}
	}
}
