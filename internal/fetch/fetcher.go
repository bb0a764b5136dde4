package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// Response is a fully read HTTP response.
type Response struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is the response body, truncated at the fetcher's size limit.
	Body []byte
}

// Fetcher performs paced GET requests. It is the only component of the
// archive that touches the network. Every attempt, retries included,
// waits on a shared limiter so consecutive requests are at least the
// configured delay apart.
//
// A Fetcher is safe for concurrent use, but the crawler calls it from a
// single goroutine.
type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	userAgent   string
	accept      string
	maxBodySize int64
	retries     int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger
	executor    failsafe.Executor[*Response]
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client. Use NewProxyClient for SOCKS5.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithDelay sets the minimum spacing between requests. Zero disables pacing.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithAccept sets the Accept header. The JSON ledger client uses
// "application/json".
func WithAccept(accept string) Option {
	return func(f *Fetcher) {
		f.accept = accept
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.retries = n
		}
	}
}

// WithBackoff sets the exponential backoff bounds between retries.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = base
		f.maxDelay = maxDelay
	}
}

// WithLogger sets the logger used for retry notices.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher. Defaults: 30s timeout client, 1.5s delay,
// 2 retries with 2s..10s backoff, 20MB body limit.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(1500*time.Millisecond), 1),
		userAgent:   "rpdarchive",
		accept:      "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		maxBodySize: 20 * 1024 * 1024,
		retries:     2,
		baseDelay:   2 * time.Second,
		maxDelay:    10 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.executor = failsafe.With[*Response](f.retryPolicy())
	return f
}

func (f *Fetcher) retryPolicy() retrypolicy.RetryPolicy[*Response] {
	base := f.baseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	maxDelay := f.maxDelay
	if maxDelay <= base {
		maxDelay = 2 * base
	}

	return retrypolicy.NewBuilder[*Response]().
		WithBackoff(base, maxDelay).
		WithMaxRetries(f.retries).
		WithJitterFactor(0.1).
		HandleIf(func(_ *Response, err error) bool {
			return shouldRetry(err)
		}).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*Response]) {
			f.logger.Warn("retrying request",
				"attempt", e.Attempts(),
				"error", e.LastError())
		}).
		Build()
}

// shouldRetry retries transport errors and transient HTTP statuses.
// Cancellation and permanent statuses such as 404 are returned at once.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

// Get fetches rawURL. A non-2xx answer is returned as *StatusError after
// the retry policy gave up.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	resp, err := f.executor.WithContext(ctx).Get(func() (*Response, error) {
		return f.do(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", f.accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	return &Response{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Download fetches rawURL and writes the body to dest. The file is written
// to a temporary name first and renamed, so an interrupted download never
// leaves a truncated file behind.
func (f *Fetcher) Download(ctx context.Context, rawURL, dest string) error {
	resp, err := f.Get(ctx, rawURL)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", dest, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", dest, err)
	}
	return nil
}

// NewProxyClient creates an HTTP client that dials through the SOCKS5
// proxy at address ("host:port").
func NewProxyClient(address string, timeout time.Duration) (*http.Client, error) {
	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProxy, err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: timeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
