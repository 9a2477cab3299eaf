package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/riftsim/internal/config"
)

// RequestLimiter caps simulation requests per IP within a window.
// Exceeding the cap locks the IP out, doubling the lockout on every repeat.
type RequestLimiter struct {
	mu                sync.Mutex
	clients           map[string]*requestInfo
	maxRequests       int
	window            time.Duration
	lockoutSeconds    int
	maxLockoutSeconds int
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
	now               func() time.Time
}

type requestInfo struct {
	windowStart  time.Time
	requests     int
	lockedUntil  time.Time
	lockoutCount int // Number of times locked out (for exponential backoff)
}

// NewRequestLimiter creates a new limiter with the given config.
func NewRequestLimiter(cfg config.RateLimitConfig) *RequestLimiter {
	rl := &RequestLimiter{
		clients:           make(map[string]*requestInfo),
		maxRequests:       cfg.MaxRequests,
		window:            time.Duration(cfg.WindowSeconds) * time.Second,
		lockoutSeconds:    cfg.LockoutSeconds,
		maxLockoutSeconds: cfg.MaxLockoutSeconds,
		cleanupInterval:   5 * time.Minute,
		stopCleanup:       make(chan struct{}),
		now:               time.Now,
	}

	if rl.maxRequests == 0 {
		rl.maxRequests = 30
	}
	if rl.window == 0 {
		rl.window = time.Minute
	}
	if rl.lockoutSeconds == 0 {
		rl.lockoutSeconds = 30
	}
	if rl.maxLockoutSeconds == 0 {
		rl.maxLockoutSeconds = 300
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the cleanup goroutine.
func (rl *RequestLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// Allow records a request from ip. It returns false and the remaining
// lockout when the request must be refused.
func (rl *RequestLimiter) Allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	info, exists := rl.clients[ip]
	if !exists {
		info = &requestInfo{windowStart: now}
		rl.clients[ip] = info
	}

	if now.Before(info.lockedUntil) {
		return false, info.lockedUntil.Sub(now)
	}

	if now.Sub(info.windowStart) >= rl.window {
		info.windowStart = now
		info.requests = 0
	}

	info.requests++
	if info.requests <= rl.maxRequests {
		return true, 0
	}

	info.lockoutCount++
	lockout := rl.lockoutFor(info.lockoutCount)
	info.lockedUntil = now.Add(lockout)
	info.requests = 0
	info.windowStart = info.lockedUntil
	return false, lockout
}

// lockoutFor doubles the base lockout for every previous lockout, up to the max.
func (rl *RequestLimiter) lockoutFor(count int) time.Duration {
	lockout := time.Duration(rl.lockoutSeconds) * time.Second
	maxDuration := time.Duration(rl.maxLockoutSeconds) * time.Second
	for i := 1; i < count; i++ {
		// Check before multiplication to prevent overflow
		if lockout >= maxDuration/2 {
			lockout = maxDuration
			break
		}
		lockout *= 2
	}
	if lockout > maxDuration {
		lockout = maxDuration
	}
	return lockout
}

// Requests returns the number of requests counted in the current window for ip.
func (rl *RequestLimiter) Requests(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if info, exists := rl.clients[ip]; exists {
		return info.requests
	}
	return 0
}

func (rl *RequestLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes clients whose window and lockout have both expired.
func (rl *RequestLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, info := range rl.clients {
		if now.After(info.lockedUntil) && now.Sub(info.windowStart) >= rl.window {
			delete(rl.clients, ip)
		}
	}
}
