package server

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig sets per-client limits. Zero values disable a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	MaxDataPerDayMB   int64
}

// RateLimitError is returned when a client exceeds a limit.
type RateLimitError struct {
	Kind       string // "requests" or "data"
	Limit      int64
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s limit of %d exceeded, retry after %s", e.Kind, e.Limit, e.RetryAfter.Round(time.Second))
}

type clientUsage struct {
	limiter   *rate.Limiter
	dataToday int64
	day       time.Time
	lastSeen  time.Time
}

// RateLimiter tracks request rate and uploaded bytes per client.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	clients map[string]*clientUsage
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{cfg: cfg, clients: make(map[string]*clientUsage)}
}

// Allow records one request of size bytes from client, or reports which
// limit it would exceed. A rejected request is not counted.
func (rl *RateLimiter) Allow(client string, size int64, now time.Time) *RateLimitError {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	u := rl.usage(client, now)
	day := startOfDay(now)
	if !u.day.Equal(day) {
		u.day = day
		u.dataToday = 0
	}

	if maxBytes := rl.cfg.MaxDataPerDayMB << 20; maxBytes > 0 && u.dataToday+size > maxBytes {
		return &RateLimitError{Kind: "data", Limit: maxBytes, RetryAfter: day.AddDate(0, 0, 1).Sub(now)}
	}

	if u.limiter != nil {
		r := u.limiter.ReserveN(now, 1)
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			return &RateLimitError{Kind: "requests", Limit: int64(rl.cfg.RequestsPerMinute), RetryAfter: delay}
		}
	}

	u.dataToday += size
	u.lastSeen = now
	return nil
}

func (rl *RateLimiter) usage(client string, now time.Time) *clientUsage {
	u, ok := rl.clients[client]
	if !ok {
		u = &clientUsage{day: startOfDay(now), lastSeen: now}
		if rpm := rl.cfg.RequestsPerMinute; rpm > 0 {
			u.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
		}
		rl.clients[client] = u
	}
	return u
}

// Prune forgets clients idle for longer than idle.
func (rl *RateLimiter) Prune(now time.Time, idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for k, u := range rl.clients {
		if now.Sub(u.lastSeen) > idle {
			delete(rl.clients, k)
			removed++
		}
	}
	return removed
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
