// Package ratelimit implements a fixed-window per-client request
// limiter for the suggestion endpoint.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultWindow        = time.Minute
	defaultLimit         = 30
	defaultSweepInterval = 5 * time.Minute
)

// Config controls window size and request cap.
type Config struct {
	Limit         int
	Window        time.Duration
	SweepInterval time.Duration
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is the whole seconds until the window resets; only
	// meaningful when Allowed is false.
	RetryAfter int
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key in non-overlapping windows. Windows
// are created lazily on the first request from a key and swept
// periodically once expired.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	windows map[string]*window
	logger  *zap.Logger
	now     func() time.Time
}

// New builds a Limiter, applying defaults for unset config values.
func New(cfg Config, logger *zap.Logger) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		cfg:     cfg,
		windows: make(map[string]*window, 256),
		logger:  logger,
		now:     time.Now,
	}
}

// Allow records one request for key and reports whether it is within
// the window's cap.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
	}
	w.count++

	if w.count > l.cfg.Limit {
		retry := int(math.Ceil(w.resetAt.Sub(now).Seconds()))
		if retry < 1 {
			retry = 1
		}
		return Decision{Limit: l.cfg.Limit, RetryAfter: retry}
	}
	return Decision{
		Allowed:   true,
		Limit:     l.cfg.Limit,
		Remaining: l.cfg.Limit - w.count,
	}
}

// Run sweeps expired windows until ctx is canceled, bounding memory
// under churny client populations.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := l.sweep()
			if removed > 0 {
				l.logger.Debug("rate limit windows swept", zap.Int("removed", removed))
			}
		}
	}
}

func (l *Limiter) sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
