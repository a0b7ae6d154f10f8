package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reelview/backend/internal/middleware"
)

func TestRateLimitedRejectsOverBudget(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(1, time.Hour, 2, time.Hour)
	handler := RateLimited(limiter, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over budget, got %d", rec.Code)
	}

	// A different address has its own budget.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/reviews", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	handler(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected fresh address to pass, got %d", rec.Code)
	}
}

func TestRateLimitedNilLimiterPassesThrough(t *testing.T) {
	handler := RateLimited(nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reviews", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}
