// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Rate limiting header names.
//
// ref: https://www.ietf.org/archive/id/draft-polli-ratelimit-headers-02.html
const (
	HeaderRateLimitLimit     string = "RateLimit-Limit"
	HeaderRateLimitRemaining string = "RateLimit-Remaining"
)

const (
	LimiterExpiryDuration = time.Hour       // How long to keep idle limiters in memory.
	CleanupInterval       = 5 * time.Minute // Interval between limiter cleanup runs.
)

// excludedPaths are never limited. The fragment itself lives under /static/
// and is fetched by the compose route over loopback.
var excludedPaths = []string{
	"/static/",
}

// limiterWrapper holds a rate limiter for one client network.
type limiterWrapper struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

// Limiter hands out one token bucket per client network.
type Limiter struct {
	rate  rate.Limit
	burst int

	limiters sync.Map // network string -> *limiterWrapper

	cleanupMu     sync.Mutex
	lastCleanupAt time.Time

	now func() time.Time
}

// New returns a Limiter refilling ratePerSecond tokens per second up to burst.
func New(ratePerSecond float64, burst int) *Limiter {
	log.Info().
		Float64("rate", ratePerSecond).
		Int("burst", burst).
		Msg("Limiter enabled")

	return &Limiter{
		rate:  rate.Limit(ratePerSecond),
		burst: burst,
		now:   time.Now,
	}
}

// Evaluate is the entrypoint to the limiter middleware.
func (l *Limiter) Evaluate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	defer l.doCleanup()

	if isExcludedPath(r.URL.Path) {
		next.ServeHTTP(w, r)

		return
	}

	network := networkKey(getClientIP(r))
	if network == "" {
		http.Error(w, "Could not determine client address", http.StatusBadRequest)

		return
	}

	allowed, remaining := l.take(network)

	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(l.burst))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(remaining))

	if !allowed {
		log.Warn().
			Str("network", network).
			Str("path", r.URL.Path).
			Msg("Rate limit exceeded")

		w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)

		return
	}

	next.ServeHTTP(w, r)
}

// take consumes one token from the bucket of network.
func (l *Limiter) take(network string) (bool, int) {
	wrapper := l.getOrCreate(network)

	wrapper.mu.Lock()
	defer wrapper.mu.Unlock()

	now := l.now()
	wrapper.lastAccess = now

	allowed := wrapper.limiter.AllowN(now, 1)
	remaining := max(int(math.Floor(wrapper.limiter.TokensAt(now))), 0)

	return allowed, remaining
}

func (l *Limiter) getOrCreate(network string) *limiterWrapper {
	if value, ok := l.limiters.Load(network); ok {
		if wrapper, ok := value.(*limiterWrapper); ok {
			return wrapper
		}
	}

	value, _ := l.limiters.LoadOrStore(network, &limiterWrapper{
		limiter:    rate.NewLimiter(l.rate, l.burst),
		lastAccess: l.now(),
	})

	wrapper, _ := value.(*limiterWrapper)

	return wrapper
}

// retryAfter is the number of whole seconds until one token is available.
func (l *Limiter) retryAfter() int {
	if l.rate <= 0 {
		return int(CleanupInterval.Seconds())
	}

	return max(int(math.Ceil(1/float64(l.rate))), 1)
}

// doCleanup removes idle limiters at most once per CleanupInterval.
func (l *Limiter) doCleanup() {
	l.cleanupMu.Lock()
	defer l.cleanupMu.Unlock()

	now := l.now()
	if l.lastCleanupAt.IsZero() {
		l.lastCleanupAt = now

		return
	}

	if now.Sub(l.lastCleanupAt) < CleanupInterval {
		return
	}

	l.lastCleanupAt = now

	l.cleanupExpiredLimiters(now)
}

func (l *Limiter) cleanupExpiredLimiters(now time.Time) {
	var keysToDelete []any

	l.limiters.Range(func(key, value any) bool {
		wrapper, ok := value.(*limiterWrapper)
		if !ok {
			keysToDelete = append(keysToDelete, key)

			return true
		}

		wrapper.mu.Lock()
		lastAccess := wrapper.lastAccess
		wrapper.mu.Unlock()

		if now.Sub(lastAccess) > LimiterExpiryDuration {
			keysToDelete = append(keysToDelete, key)
		}

		return true
	})

	for _, key := range keysToDelete {
		l.limiters.Delete(key)
	}

	if len(keysToDelete) > 0 {
		log.Info().Int("count", len(keysToDelete)).
			Msg("Cleaned up expired limiters")
	}
}

func isExcludedPath(path string) bool {
	for _, p := range excludedPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
