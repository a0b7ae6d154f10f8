package handlers

import (
	"net"
	"net/http"

	"github.com/reelview/backend/internal/middleware"
)

// RateLimited guards a handler with the per-IP limiter. Registration, review,
// and validation endpoints sit behind it.
func RateLimited(limiter middleware.RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	if limiter == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		if !limiter.Allow(host) {
			respondJSON(r.Context(), w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
			return
		}

		next(w, r)
	}
}
