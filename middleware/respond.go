package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/siteguard"
)

// Rejection categories sent to clients.
const (
	CategoryUnauthenticated = "unauthenticated"
	CategoryForbidden       = "forbidden"
	CategoryCSRF            = "csrf"
	CategoryRateLimited     = "rate_limited"
	CategoryInternal        = "internal"
)

// ErrorBody is the JSON shape of every rejection.
type ErrorBody struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

// Status maps an Engine error to the HTTP status, category and generic message
// returned to the client.
func Status(err error) (int, string, string) {
	switch {
	case errors.Is(err, siteguard.ErrUnauthenticated):
		return http.StatusUnauthorized, CategoryUnauthenticated, "Authentication required"
	case errors.Is(err, siteguard.ErrForbidden):
		return http.StatusForbidden, CategoryForbidden, "Insufficient permissions"
	case siteguard.IsCSRFError(err):
		return http.StatusForbidden, CategoryCSRF, "Invalid request"
	case errors.Is(err, siteguard.ErrRateLimited):
		return http.StatusTooManyRequests, CategoryRateLimited, "Too many requests"
	default:
		return http.StatusInternalServerError, CategoryInternal, "Internal server error"
	}
}

// WriteError writes the rejection for err. The message never names the specific
// check that failed.
func WriteError(w http.ResponseWriter, err error) {
	status, category, msg := Status(err)
	writeJSON(w, status, ErrorBody{Error: msg, Category: category})
}

// WriteRateLimitHeaders sets the X-RateLimit-* headers from res, and Retry-After
// when the request was throttled. Nothing is written when res carries no limit.
func WriteRateLimitHeaders(w http.ResponseWriter, res siteguard.RateLimitResult, now time.Time) {
	if res.Limit <= 0 {
		return
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
	if !res.Reset.IsZero() {
		h.Set("X-RateLimit-Reset", res.Reset.UTC().Format(time.RFC3339))
	}
	if !res.Success {
		h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(res, now)))
	}
}

// WriteRateLimited writes the 429 response for res, headers included.
func WriteRateLimited(w http.ResponseWriter, res siteguard.RateLimitResult, now time.Time) {
	WriteRateLimitHeaders(w, res, now)
	writeJSON(w, http.StatusTooManyRequests, ErrorBody{
		Error:    "Too many requests. " + WaitMessage(res, now),
		Category: CategoryRateLimited,
	})
}

// WaitMessage renders the time until res resets for people. Daily rejections are
// given in hours, everything else in minutes, rounded up.
func WaitMessage(res siteguard.RateLimitResult, now time.Time) string {
	wait := res.RetryAfter(now)
	if res.Reason == siteguard.ReasonDailyWindow {
		return "Please try again in " + plural(ceilDiv(wait, time.Hour), "hour") + "."
	}
	return "Please try again in " + plural(ceilDiv(wait, time.Minute), "minute") + "."
}

func retryAfterSeconds(res siteguard.RateLimitResult, now time.Time) int {
	return max(int(res.RetryAfter(now)/time.Second), 1)
}

func ceilDiv(d, unit time.Duration) int {
	return max(int(math.Ceil(float64(d)/float64(unit))), 1)
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
