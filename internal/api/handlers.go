package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/tidemark/beacon/internal/metrics"
	"github.com/tidemark/beacon/internal/netguard"
	"github.com/tidemark/beacon/internal/ratelimit"
	"github.com/tidemark/beacon/internal/suggest"
)

type suggestRequest struct {
	URL string `json:"url"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	services := []string{"relay"}
	if s.cfg.Suggest.Enabled {
		services = append(services, "suggest")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"services": services,
	})
}

func (s *Server) suggestHandler(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Suggest.Enabled {
		metrics.RecordSuggest("disabled")
		writeError(w, http.StatusNotFound, "suggestion endpoint is disabled")
		return
	}

	decision := s.limiter.Allow(ratelimit.ClientIP(r, s.cfg.RateLimit.TrustProxy))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.Allowed {
		metrics.RecordSuggest("rate_limited")
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "rate limit exceeded",
			"retryAfter": decision.RetryAfter,
		})
		return
	}

	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		metrics.RecordSuggest("invalid")
		writeError(w, http.StatusBadRequest, "missing or invalid url")
		return
	}

	meta, err := s.suggester.Suggest(r.Context(), req.URL)
	if err != nil {
		s.writeSuggestError(w, req.URL, err)
		return
	}
	metrics.RecordSuggest("ok")
	writeJSON(w, http.StatusOK, meta)
}

// writeSuggestError maps pipeline failures onto the HTTP taxonomy. The
// forbidden branch deliberately says no more than "blocked": resolution
// details must not leak to the caller.
func (s *Server) writeSuggestError(w http.ResponseWriter, rawURL string, err error) {
	switch {
	case errors.Is(err, suggest.ErrInvalidURL):
		metrics.RecordSuggest("invalid")
		writeError(w, http.StatusBadRequest, "missing or invalid url")
	case errors.Is(err, netguard.ErrBlockedTarget), errors.Is(err, netguard.ErrResolutionFailed):
		metrics.RecordSuggest("blocked")
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":  "forbidden",
			"detail": "target address is blocked",
		})
	case errors.Is(err, suggest.ErrFetchTimeout),
		errors.Is(err, suggest.ErrUpstreamStatus),
		errors.Is(err, suggest.ErrUnsupportedContent),
		errors.Is(err, suggest.ErrTooLarge):
		metrics.RecordSuggest("upstream_error")
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
	default:
		metrics.RecordSuggest("error")
		s.logger.Error("suggestion failed", zap.String("url", rawURL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
