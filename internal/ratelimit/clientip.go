package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the client address a request should be limited by.
// When trustProxy is set the left-most X-Forwarded-For hop wins, then
// X-Real-IP; otherwise only the transport-level peer address is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := firstForwardedFor(r.Header.Get("X-Forwarded-For")); xff != "" {
			if ip := hostNoPort(xff); ip != "" {
				return ip
			}
		}
		if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
			if ip := hostNoPort(v); ip != "" {
				return ip
			}
		}
	}
	return hostNoPort(r.RemoteAddr)
}

func firstForwardedFor(xff string) string {
	xff = strings.TrimSpace(xff)
	if xff == "" {
		return ""
	}
	if i := strings.IndexByte(xff, ','); i >= 0 {
		xff = xff[:i]
	}
	return strings.TrimSpace(xff)
}

func hostNoPort(s string) string {
	if s == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}
