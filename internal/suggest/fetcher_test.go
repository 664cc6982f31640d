package suggest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetch(t *testing.T, f *Fetcher, rawURL string) (string, error) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return f.Fetch(context.Background(), rawURL, u.Hostname())
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	const page = "<html><head><title>ok</title></head></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{})
	body, err := testFetch(t, f, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, page, body)
}

func TestFetchXHTMLAccepted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xhtml+xml")
		_, _ = w.Write([]byte("<html/>"))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{})
	_, err := testFetch(t, f, srv.URL)
	require.NoError(t, err)
}

func TestFetchUpstreamStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{})
	_, err := testFetch(t, f, srv.URL)
	require.ErrorIs(t, err, ErrUpstreamStatus)
}

func TestFetchUnsupportedContentType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{})
	_, err := testFetch(t, f, srv.URL)
	require.ErrorIs(t, err, ErrUnsupportedContent)
}

func TestFetchTooLargeAborts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{MaxBodyBytes: 1024})
	_, err := testFetch(t, f, srv.URL)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{Timeout: 50 * time.Millisecond})
	_, err := testFetch(t, f, srv.URL)
	require.ErrorIs(t, err, ErrFetchTimeout)
}

func TestFetchFollowsRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>final</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFetcher(FetcherConfig{})
	body, err := testFetch(t, f, srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "final")
}
