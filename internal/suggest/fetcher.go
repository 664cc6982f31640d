package suggest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"time"
)

// FetcherConfig controls the bounded page fetch.
type FetcherConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	PerHostRPS   float64
	PerHostBurst int
}

const (
	defaultFetchTimeout = 10 * time.Second
	defaultMaxBodyBytes = 2 << 20
	defaultUserAgent    = "beacon-preview/1.0"
)

// Fetcher performs a single bounded HTTP GET against a validated URL.
// Redirects are followed by the transport; hops are not re-validated
// against the SSRF rules.
type Fetcher struct {
	cfg        FetcherConfig
	client     *http.Client
	politeness *hostLimiter
}

// NewFetcher builds a Fetcher with a pooled transport.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFetchTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Fetcher{
		cfg:        cfg,
		client:     &http.Client{Transport: newHTTPTransport()},
		politeness: newHostLimiter(cfg.PerHostRPS, cfg.PerHostBurst),
	}
}

// Fetch retrieves the page body as a string, or fails with one of
// ErrFetchTimeout, ErrUpstreamStatus, ErrUnsupportedContent, ErrTooLarge.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, host string) (string, error) {
	if err := f.politeness.Wait(ctx, host); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrFetchTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrUpstreamStatus, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !htmlMediaType(mediaType) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContent, resp.Header.Get("Content-Type"))
	}

	// Read one byte past the cap so oversized bodies are detected without
	// buffering them whole; closing the body aborts the rest of the stream.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrFetchTimeout
		}
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		return "", ErrTooLarge
	}
	return string(body), nil
}

func htmlMediaType(mediaType string) bool {
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
