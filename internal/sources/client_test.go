package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bdresolve/internal/services"
)

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"title":"Le Grand Duc"}`))
	}))
	defer srv.Close()

	client := NewClient(WithRetries(2))
	var out struct {
		Title string `json:"title"`
	}
	if err := client.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("get after retry: %v", err)
	}
	if out.Title != "Le Grand Duc" {
		t.Fatalf("body lost: %+v", out)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(WithRetries(3))
	if _, err := client.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("4xx must be an error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("4xx must not be retried, got %d requests", got)
	}
}

func TestClientExhaustedRetriesAreTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithRetries(1))
	_, err := client.Get(context.Background(), srv.URL)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("exhausted retries must be transient, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected retries+1 requests, got %d", got)
	}
}

func TestClientHonorsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(WithTimeout(50*time.Millisecond), WithRetries(0))
	if _, err := client.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("slow server must hit the request timeout")
	}
}

func TestClientSendsUserAgent(t *testing.T) {
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	client := NewClient(WithUserAgent("bdresolve-test/1.0"))
	if _, err := client.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got, _ := agent.Load().(string); got != "bdresolve-test/1.0" {
		t.Fatalf("user agent not sent: %q", got)
	}
}
