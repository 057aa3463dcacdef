// Package ratelimit throttles the public RSVP endpoints, which are reachable
// by anyone holding a link.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	gerr "github.com/wedsync/guestlist/internal/errors"
)

// Limiter implements a simple in-memory fixed window rate limiter
type Limiter struct {
	mu       sync.RWMutex
	counters map[string]*counter
	window   time.Duration
	max      int
	now      func() time.Time
}

type counter struct {
	count     int
	expiresAt time.Time
}

// NewLimiter creates a new rate limiter with the specified window and max requests
func NewLimiter(window time.Duration, max int) *Limiter {
	l := newLimiter(window, max, time.Now)
	go l.cleanup()
	return l
}

func newLimiter(window time.Duration, max int, now func() time.Time) *Limiter {
	return &Limiter{
		counters: make(map[string]*counter),
		window:   window,
		max:      max,
		now:      now,
	}
}

// Allow checks if a request for the given key is allowed
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, exists := l.counters[key]

	if !exists || now.After(c.expiresAt) {
		l.counters[key] = &counter{
			count:     1,
			expiresAt: now.Add(l.window),
		}
		return true
	}

	if c.count >= l.max {
		return false
	}

	c.count++
	return true
}

// GetRemaining returns the number of remaining requests for the given key
func (l *Limiter) GetRemaining(key string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, exists := l.counters[key]
	if !exists || l.now().After(c.expiresAt) {
		return l.max
	}
	return max(l.max-c.count, 0)
}

// cleanup periodically removes expired counters
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.purge()
	}
}

func (l *Limiter) purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, c := range l.counters {
		if now.After(c.expiresAt) {
			delete(l.counters, key)
		}
	}
}

type Config struct {
	LookupsPerIPPerMinute   int `mapstructure:"lookups_per_ip_per_minute"`
	ResponsesPerIPPerHour   int `mapstructure:"responses_per_ip_per_hour"`
	ResponsesPerTokenPerDay int `mapstructure:"responses_per_token_per_day"`
}

func DefaultConfig() Config {
	return Config{
		LookupsPerIPPerMinute:   30,
		ResponsesPerIPPerHour:   60,
		ResponsesPerTokenPerDay: 20,
	}
}

const (
	keyIPLookup  = "ip_lookup"
	keyIPRSVP    = "ip_rsvp"
	keyTokenRSVP = "token_rsvp"
)

// MultiKeyLimiter manages one limiter per kind of public request
type MultiKeyLimiter struct {
	limiters map[string]*Limiter
}

// NewMultiKeyLimiter creates a limiter from c, falling back to the defaults
// for unset limits.
func NewMultiKeyLimiter(c Config) *MultiKeyLimiter {
	def := DefaultConfig()
	if c.LookupsPerIPPerMinute <= 0 {
		c.LookupsPerIPPerMinute = def.LookupsPerIPPerMinute
	}
	if c.ResponsesPerIPPerHour <= 0 {
		c.ResponsesPerIPPerHour = def.ResponsesPerIPPerHour
	}
	if c.ResponsesPerTokenPerDay <= 0 {
		c.ResponsesPerTokenPerDay = def.ResponsesPerTokenPerDay
	}
	return &MultiKeyLimiter{
		limiters: map[string]*Limiter{
			keyIPLookup:  NewLimiter(time.Minute, c.LookupsPerIPPerMinute),
			keyIPRSVP:    NewLimiter(time.Hour, c.ResponsesPerIPPerHour),
			keyTokenRSVP: NewLimiter(24*time.Hour, c.ResponsesPerTokenPerDay),
		},
	}
}

// CheckLookup verifies if an RSVP link may be opened from the given IP
func (m *MultiKeyLimiter) CheckLookup(ip string) error {
	if !m.limiters[keyIPLookup].Allow(ip) {
		return fmt.Errorf("%w: too many lookups from this IP address", gerr.ErrRateLimited)
	}
	return nil
}

// CheckResponse verifies if a response may be submitted from the given IP
// for the given RSVP token
func (m *MultiKeyLimiter) CheckResponse(ip, token string) error {
	if !m.limiters[keyIPRSVP].Allow(ip) {
		return fmt.Errorf("%w: too many responses from this IP address", gerr.ErrRateLimited)
	}
	if !m.limiters[keyTokenRSVP].Allow(token) {
		return fmt.Errorf("%w: too many responses for this invitation", gerr.ErrRateLimited)
	}
	return nil
}

// GetResponseLimits returns remaining response attempts for IP and token
func (m *MultiKeyLimiter) GetResponseLimits(ip, token string) (ipRemaining, tokenRemaining int) {
	return m.limiters[keyIPRSVP].GetRemaining(ip), m.limiters[keyTokenRSVP].GetRemaining(token)
}
