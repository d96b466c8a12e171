package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/airaware/airaware/internal/api/models"
)

// RateLimitConfig is a fixed window budget.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Presets. Lookup covers routes that may call WAQI live, so it is the
// tightest public budget.
var (
	AdminRateLimit    = RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute}
	LookupRateLimit   = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// retryAfter is the Retry-After value in whole seconds, at least one.
func (c RateLimitConfig) retryAfter() string {
	return strconv.Itoa(int(math.Max(1, math.Ceil(c.WindowLength.Seconds()))))
}

func (c RateLimitConfig) String() string {
	return fmt.Sprintf("%d requests per %s", c.RequestLimit, c.WindowLength)
}

// RateLimitByIP limits per client IP. RealIP must run first so proxied
// visitors are not lumped together.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, httprate.KeyByRealIP)
}

// RateLimitBySubject limits per admin token subject, falling back to the
// client IP before Auth has run.
func RateLimitBySubject(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, func(r *http.Request) (string, error) {
		if subject := GetSubject(r.Context()); subject != "" {
			return "sub:" + subject, nil
		}
		return httprate.KeyByRealIP(r)
	})
}

func limit(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			problem := models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit of "+cfg.String()+" exceeded")
			problem.Instance = r.URL.Path
			w.Header().Set("Retry-After", cfg.retryAfter())
			problem.Write(w)
		}),
	)
}
