package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageno") != "1" {
			t.Errorf("missing query param: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Timeout: time.Second})
	body, ok := c.Get(context.Background(), srv.URL, map[string]string{"pageno": "1"}, nil)
	if !ok {
		t.Fatal("expected success")
	}
	if string(body) != `[{"id":1}]` {
		t.Fatalf("body=%s", body)
	}
}

func TestThrottleLowerBound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	minDelay := 80 * time.Millisecond
	c := NewClient(ClientConfig{MinDelay: minDelay, Timeout: time.Second})

	ctx := context.Background()
	if _, ok := c.Get(ctx, srv.URL, nil, nil); !ok {
		t.Fatal("first request failed")
	}
	start := time.Now()
	if _, ok := c.Get(ctx, srv.URL, nil, nil); !ok {
		t.Fatal("second request failed")
	}
	if elapsed := time.Since(start); elapsed < minDelay-5*time.Millisecond {
		t.Fatalf("consecutive requests separated by %v, want >= %v", elapsed, minDelay)
	}
}

func TestRetryOnTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Timeout: time.Second, MaxRetries: 2})
	body, ok := c.Get(context.Background(), srv.URL, nil, nil)
	if !ok {
		t.Fatal("expected success after retry")
	}
	if string(body) != "ok" {
		t.Fatalf("body=%s", body)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls=%d want 2", calls.Load())
	}
}

func TestAbsentAfterRetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Timeout: time.Second, MaxRetries: 2})
	if _, ok := c.Get(context.Background(), srv.URL, nil, nil); ok {
		t.Fatal("expected absent response")
	}
	if calls.Load() != 3 {
		t.Fatalf("calls=%d want 3", calls.Load())
	}
}

func TestNonRetryableStatusFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Timeout: time.Second, MaxRetries: 3})
	if _, ok := c.Get(context.Background(), srv.URL, nil, nil); ok {
		t.Fatal("expected failure")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls=%d want 1", calls.Load())
	}
}

func TestAllowStatusAcceptsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`conflict-body`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Timeout: time.Second})
	body, ok := c.Get(context.Background(), srv.URL, nil, nil, http.StatusConflict)
	if !ok {
		t.Fatal("allow_status should accept 409")
	}
	if string(body) != "conflict-body" {
		t.Fatalf("body=%s", body)
	}
}

func TestUserAgentInjected(t *testing.T) {
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		Timeout:     time.Second,
		BaseHeaders: map[string]string{"User-Agent": "base-agent"},
		UserAgents:  []string{"rotated-agent"},
	})
	if _, ok := c.Get(context.Background(), srv.URL, nil, nil); !ok {
		t.Fatal("request failed")
	}
	if gotUA.Load().(string) != "rotated-agent" {
		t.Fatalf("ua=%v, pool should overwrite the base header", gotUA.Load())
	}
}

func TestHooksInvoked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var sawResponse atomic.Bool
	c := NewClient(ClientConfig{
		Timeout:    time.Second,
		OnResponse: func(*http.Response) { sawResponse.Store(true) },
	})
	if _, ok := c.Get(context.Background(), srv.URL, nil, nil); !ok {
		t.Fatal("request failed")
	}
	if !sawResponse.Load() {
		t.Fatal("on_response hook not invoked")
	}
}
