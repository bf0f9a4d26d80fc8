package server

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Limit types reported in RateLimitError and QuotaExceededError.
const (
	limitRequestsPerMinute = "requests_per_minute"
	quotaDataPerDay        = "data_per_day"
)

// idleExpiry is how long a client may stay silent before its state is
// dropped.
const idleExpiry = 24 * time.Hour

// RateLimiter is a per-client token bucket with an optional daily upload
// quota.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	burst             int
	maxDataPerDay     int64 // in bytes

	clients   map[string]*clientUsage
	lastSweep time.Time
	now       func() time.Time
}

// clientUsage tracks the bucket and quota state of one client.
type clientUsage struct {
	tokens    float64
	lastSeen  time.Time
	dataToday int64
	day       time.Time
}

// Usage is a snapshot of a client's limiter state.
type Usage struct {
	Tokens    float64
	DataToday int64
}

// NewRateLimiter allows requestsPerMinute sustained requests with bursts of
// up to burst. A non-positive rate disables request limiting, a
// non-positive maxDataPerDay disables the upload quota.
func NewRateLimiter(requestsPerMinute, burst int, maxDataPerDay int64) *RateLimiter {
	if burst < 1 {
		burst = max(1, requestsPerMinute)
	}
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*clientUsage),
		now:               time.Now,
	}
}

// CheckRateLimit admits or rejects a request of dataSize bytes from
// clientID. Admitted requests consume one token and count against the
// daily quota.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)
	usage := rl.client(clientID, now)
	rl.refill(usage, now)

	if rl.requestsPerMinute > 0 && usage.tokens < 1 {
		perToken := time.Minute / time.Duration(rl.requestsPerMinute)
		wait := time.Duration(math.Ceil((1 - usage.tokens) * float64(perToken)))
		return &RateLimitError{Type: limitRequestsPerMinute, Limit: rl.requestsPerMinute, RetryAfter: wait}
	}

	if rl.maxDataPerDay > 0 && usage.dataToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{
			Type:   quotaDataPerDay,
			Limit:  rl.maxDataPerDay,
			Used:   usage.dataToday,
			Resets: usage.day.AddDate(0, 0, 1),
		}
	}

	if rl.requestsPerMinute > 0 {
		usage.tokens--
	}
	usage.dataToday += dataSize
	return nil
}

func (rl *RateLimiter) client(id string, now time.Time) *clientUsage {
	usage, ok := rl.clients[id]
	if !ok {
		usage = &clientUsage{tokens: float64(rl.burst), lastSeen: now, day: startOfDay(now)}
		rl.clients[id] = usage
	}
	return usage
}

func (rl *RateLimiter) refill(usage *clientUsage, now time.Time) {
	if day := startOfDay(now); !day.Equal(usage.day) {
		usage.day = day
		usage.dataToday = 0
	}
	if rl.requestsPerMinute > 0 {
		elapsed := now.Sub(usage.lastSeen).Minutes()
		usage.tokens = math.Min(float64(rl.burst), usage.tokens+elapsed*float64(rl.requestsPerMinute))
	}
	usage.lastSeen = now
}

// sweep drops clients idle for longer than idleExpiry, at most once per
// hour.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < time.Hour {
		return
	}
	rl.lastSweep = now
	for id, u := range rl.clients {
		if now.Sub(u.lastSeen) > idleExpiry {
			delete(rl.clients, id)
		}
	}
}

// GetUsage returns the current state for clientID.
func (rl *RateLimiter) GetUsage(clientID string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if u, ok := rl.clients[clientID]; ok {
		return Usage{Tokens: u.tokens, DataToday: u.dataToday}
	}
	return Usage{Tokens: float64(rl.burst)}
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a quota violation.
type QuotaExceededError struct {
	Type   string
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
