package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// limitAuthAttempts is a per-operation huma middleware that rate limits
// login and registration by client IP.
func (s *Server) limitAuthAttempts(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx)
	if !s.authRateLimiter.Allow(key) {
		s.logger.Warn("rate limit exceeded",
			"ip", key,
			"path", ctx.URL().Path,
		)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "Too many attempts. Please try again later.")
		return
	}
	next(ctx)
}

// clientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func clientIP(ctx huma.Context) string {
	// X-Forwarded-For may contain multiple IPs; the first is the client.
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	addr := ctx.RemoteAddr()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
