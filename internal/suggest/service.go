package suggest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tidemark/beacon/internal/metrics"
)

// PageFetcher retrieves a page body for a validated URL.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL, host string) (string, error)
}

// HostValidator decides whether an outbound fetch may proceed.
type HostValidator interface {
	ValidateHost(ctx context.Context, host string) error
}

// Service orchestrates the suggestion pipeline: cache, SSRF validation,
// bounded fetch, extraction.
type Service struct {
	validator HostValidator
	fetcher   PageFetcher
	cache     *Cache
	logger    *zap.Logger
}

// NewService wires the pipeline together.
func NewService(validator HostValidator, fetcher PageFetcher, cache *Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		validator: validator,
		fetcher:   fetcher,
		cache:     cache,
		logger:    logger,
	}
}

// Suggest produces preview metadata for rawURL. A homepage cache hit
// short-circuits both the SSRF validation and the fetch.
func (s *Service) Suggest(ctx context.Context, rawURL string) (Metadata, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Metadata{}, ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	root := isRootPath(u)

	if root {
		if meta, ok := s.cache.Get(host); ok {
			metrics.RecordCacheHit()
			return meta, nil
		}
		metrics.RecordCacheMiss()
	}

	if err := s.validator.ValidateHost(ctx, host); err != nil {
		return Metadata{}, fmt.Errorf("validate %s: %w", host, err)
	}

	start := time.Now()
	body, err := s.fetcher.Fetch(ctx, u.String(), host)
	metrics.ObserveFetchDuration(time.Since(start), err == nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("fetch %s: %w", host, err)
	}

	meta := Extract(body, u)
	if root {
		s.cache.Put(host, meta)
	}
	s.logger.Debug("metadata extracted",
		zap.String("host", host),
		zap.Bool("root", root),
		zap.Int("tags", len(meta.SuggestedTags)),
	)
	return meta, nil
}
