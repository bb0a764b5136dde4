package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/rpdarchive/internal/log"
)

func newTestFetcher(opts ...Option) *Fetcher {
	base := []Option{
		WithDelay(0),
		WithBackoff(time.Millisecond, 2*time.Millisecond),
		WithLogger(log.Discard()),
	}
	return New(append(base, opts...)...)
}

func TestFetcherGet(t *testing.T) {
	t.Parallel()

	t.Run("returns body and sends user agent", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>ok</html>"))
		}))
		defer server.Close()

		f := newTestFetcher(WithUserAgent("RarePepeWorld-Archive/1.0"))
		resp, err := f.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != "<html>ok</html>" {
			t.Errorf("expected body, got %q", resp.Body)
		}
		if resp.ContentType != "text/html" {
			t.Errorf("expected text/html, got %s", resp.ContentType)
		}
		if gotUA != "RarePepeWorld-Archive/1.0" {
			t.Errorf("expected user agent to be sent, got %q", gotUA)
		}
	})

	t.Run("404 is returned without retry", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		f := newTestFetcher(WithRetries(2))
		_, err := f.Get(context.Background(), server.URL)
		if !errors.Is(err, ErrStatus) {
			t.Fatalf("expected ErrStatus, got %v", err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
			t.Errorf("expected StatusError 404, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
	})

	t.Run("503 is retried until success", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("finally"))
		}))
		defer server.Close()

		f := newTestFetcher(WithRetries(2))
		resp, err := f.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != "finally" {
			t.Errorf("expected body from third attempt, got %q", resp.Body)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 calls, got %d", calls.Load())
		}
	})

	t.Run("retries are bounded", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		f := newTestFetcher(WithRetries(1))
		_, err := f.Get(context.Background(), server.URL)
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("body is truncated at the limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("0123456789"))
		}))
		defer server.Close()

		f := newTestFetcher(WithMaxBodySize(4))
		resp, err := f.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != "0123" {
			t.Errorf("expected truncated body, got %q", resp.Body)
		}
	})

	t.Run("cancelled context stops the request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f := newTestFetcher()
		if _, err := f.Get(ctx, server.URL); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func TestFetcherPacing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := New(WithDelay(50*time.Millisecond), WithLogger(log.Discard()))
	start := time.Now()
	for range 3 {
		if _, err := f.Get(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected requests to be spaced, took %v", elapsed)
	}
}

func TestFetcherDownload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG fake"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "pepes", "FAKEPEPE.png")
	f := newTestFetcher()
	if err := f.Download(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	if string(data) != "\x89PNG fake" {
		t.Errorf("unexpected content %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(dest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no temp files left, got %d entries", len(entries))
	}
}

func TestStatusErrorRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			t.Parallel()
			se := &StatusError{URL: "http://x", StatusCode: tt.code}
			if se.Retryable() != tt.want {
				t.Errorf("expected %v for %d", tt.want, tt.code)
			}
		})
	}
}

func TestNewProxyClient(t *testing.T) {
	t.Parallel()

	client, err := NewProxyClient("127.0.0.1:9050", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", client.Timeout)
	}
}
